package listeners

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GuardianSOS/internal/emergency"
	"GuardianSOS/internal/models"
	"GuardianSOS/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserGroup(t *testing.T) {
	assert.Equal(t, "user:42", UserGroup(42))
}

func TestAlertListenerPublishesToOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := sse.NewHub(time.Minute)
	r := gin.New()
	r.GET("/stream", func(c *gin.Context) { hub.Serve(c, "c1", UserGroup(7)) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return hub.GroupSize(UserGroup(7)) == 1 }, time.Second, 5*time.Millisecond)

	l := NewAlertListener(hub)
	// other users' events are not delivered
	l.AlertChanged(context.Background(), emergency.Event{Type: emergency.EventStatus, AlertID: 1, UserID: 8, Status: models.StatusNotified})
	l.AlertChanged(context.Background(), emergency.Event{Type: emergency.EventStatus, AlertID: 2, UserID: 7, Status: models.StatusResolved})

	buf := make([]byte, 0, 1024)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(string(buf), `"alertId":2`) {
		chunk := make([]byte, 256)
		n, err := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	out := string(buf)
	assert.Contains(t, out, "event: alert.status")
	assert.Contains(t, out, `"status":"RESOLVED"`)
	assert.NotContains(t, out, `"alertId":1,`)
}

func TestAlertListenerNilHub(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAlertListener(nil).AlertChanged(context.Background(), emergency.Event{UserID: 1})
	})
}
