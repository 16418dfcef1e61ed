package location

import (
	"context"
	"testing"
	"time"

	"GuardianSOS/internal/models"
	"GuardianSOS/internal/testutil"
	"GuardianSOS/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, ClampLimit(0))
	assert.Equal(t, 10, ClampLimit(-5))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 100, ClampLimit(1000))
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("startDate", "2024-03-01T09:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.UTC())

	got, err = ParseTime("startDate", "2024-03-01T09:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local), got)

	_, err = ParseTime("endDate", "yesterday")
	assert.True(t, errors.IsValidation(err))
	_, err = ParseTime("endDate", "")
	assert.True(t, errors.IsValidation(err))
}

func TestHistoryAndRanges(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.SeedUser(t, db, "kim", "dev-1")
	other := testutil.SeedUser(t, db, "lee", "dev-2")
	now := time.Now()

	for i := 0; i < 15; i++ {
		require.NoError(t, models.CreateLocation(db, &models.LocationHistory{
			UserID: u.ID, Latitude: 37, Longitude: 127, Accuracy: models.AccuracyGPS,
			RecordedAt: now.Add(-time.Duration(i) * time.Hour * 3),
		}))
	}
	require.NoError(t, models.CreateLocation(db, &models.LocationHistory{UserID: other.ID, RecordedAt: now}))

	svc := NewService(db)
	svc.now = func() time.Time { return now.Add(time.Minute) }
	ctx := context.Background()

	hist, err := svc.History(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 10)
	assert.True(t, hist[0].RecordedAt.After(hist[1].RecordedAt))

	hist, err = svc.History(ctx, u.ID, 3)
	require.NoError(t, err)
	assert.Len(t, hist, 3)

	// 0h..21h ago are inside the window, 24h ago is not
	recent, err := svc.Recent(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, recent, 8)
	for _, v := range recent {
		assert.Equal(t, u.ID, v.UserID)
	}

	ranged, err := svc.Range(ctx, u.ID, now.Add(-7*time.Hour), now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	_, err = svc.Range(ctx, u.ID, now, now.Add(-time.Hour))
	assert.True(t, errors.IsValidation(err))
}
