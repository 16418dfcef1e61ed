package emergency_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"GuardianSOS/internal/analysis"
	"GuardianSOS/internal/emergency"
	"GuardianSOS/internal/models"
	"GuardianSOS/internal/testutil"
	apperrors "GuardianSOS/pkg/errors"
	"GuardianSOS/pkg/scheduler"
	"GuardianSOS/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubAnalyzer struct {
	out   string
	err   error
	calls int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	s.calls++
	return s.out, s.err
}

// cancelingAnalyzer drops the caller's request while the model is running.
type cancelingAnalyzer struct {
	cancel context.CancelFunc
}

func (a cancelingAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	a.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

type geoStub struct {
	addr string
	err  error
}

func (g geoStub) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return g.addr, g.err
}

type sent struct {
	channel string
	to      string
	subject string
	body    string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	failSMS map[string]bool
	panicOn string
	gate    chan struct{}
}

func (f *fakeSender) SendSMS(ctx context.Context, phone, message string) error {
	if f.gate != nil {
		<-f.gate
	}
	if phone == f.panicOn {
		panic("sms provider exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{channel: "sms", to: phone, body: message})
	if f.failSMS[phone] {
		return errors.New("sms rejected")
	}
	return nil
}

func (f *fakeSender) SendEmail(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{channel: "email", to: to, subject: subject, body: body})
	return errors.New("smtp unavailable")
}

func (f *fakeSender) calls() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

// manualPool holds jobs until the test runs them.
type manualPool struct {
	mu   sync.Mutex
	jobs []scheduler.Job
}

func (p *manualPool) Submit(job scheduler.Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return true
}

func (p *manualPool) runAll() {
	p.mu.Lock()
	jobs := p.jobs
	p.jobs = nil
	p.mu.Unlock()
	for _, j := range jobs {
		j.Run(context.Background())
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []emergency.Event
}

func (r *recordingSink) AlertChanged(ctx context.Context, ev emergency.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type fixture struct {
	db       *gorm.DB
	svc      *emergency.Service
	analyzer *stubAnalyzer
	sender   *fakeSender
	pool     *manualPool
	sink     *recordingSink
	user     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		analyzer: &stubAnalyzer{out: "건물 3층에서 화재가 발생한 것으로 보입니다. 즉시 대피가 필요합니다."},
		sender:   &fakeSender{},
		pool:     &manualPool{},
		sink:     &recordingSink{},
		user:     testutil.SeedUser(t, db, "kim", "dev-1"),
	}
	f.svc = emergency.NewService(emergency.Deps{
		DB:             db,
		Classifier:     analysis.NewClassifier(f.analyzer, time.Second),
		Geocoder:       geoStub{addr: "서울특별시 중구 세종대로 110"},
		GeocodeTimeout: time.Second,
		Sender:         f.sender,
		Pool:           f.pool,
		Events:         f.sink,
	})
	return f
}

func (f *fixture) create(t *testing.T, transcript string) *emergency.AlertView {
	t.Helper()
	v, err := f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{
		DeviceID:        "dev-1",
		Latitude:        37.5665,
		Longitude:       126.978,
		AudioTranscript: transcript,
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) reload(t *testing.T, id uint) *models.EmergencyAlert {
	t.Helper()
	a, err := models.GetAlert(f.db, id)
	require.NoError(t, err)
	return a
}

func TestCreateAlertFireScenario(t *testing.T) {
	f := newFixture(t)
	testutil.SeedContact(t, f.db, f.user.ID, "엄마", "010-1111-2222", "mom@example.com", 1)

	v := f.create(t, "불이야 살려주세요")
	assert.Equal(t, models.StatusPending, v.Status)
	assert.Equal(t, models.EmergencyFire, v.EmergencyType)
	assert.Equal(t, "화재", v.EmergencyTypeDescription)
	assert.False(t, v.NotificationSent)
	assert.Equal(t, "서울특별시 중구 세종대로 110", v.Address)
	assert.Equal(t, f.user.Name, v.UserName)
	assert.Equal(t, 1, f.analyzer.calls)

	// nothing is sent until the job runs
	assert.Empty(t, f.sender.calls())
	f.pool.runAll()

	a := f.reload(t, v.ID)
	assert.Equal(t, models.StatusNotified, a.Status)
	assert.True(t, a.NotificationSent)
	assert.Equal(t, "1명의 긴급 연락처에게 알림 전송 완료", a.NotificationMessage)
	assert.Nil(t, a.ResolvedTime)

	calls := f.sender.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "sms", calls[0].channel)
	assert.Equal(t, "010-1111-2222", calls[0].to)
	assert.Contains(t, calls[0].body, "⚠️ 상황: 화재")
	assert.Equal(t, "email", calls[1].channel)
	assert.Equal(t, emergency.EmailSubject, calls[1].subject)

	locs, err := models.ListRecentLocations(f.db, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, models.AccuracyGPS, locs[0].Accuracy)
	assert.Equal(t, v.Address, locs[0].Address)
	assert.InDelta(t, 37.5665, locs[0].Latitude, 1e-9)
}

func TestCreateAlertUnknownDevice(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{
		DeviceID: "ghost", Latitude: 1, Longitude: 2, AudioTranscript: "도와주세요",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "등록되지 않은 장치입니다: ghost", apperrors.GetMessage(err))
	assert.Zero(t, f.analyzer.calls)

	var alerts, locs int64
	f.db.Model(&models.EmergencyAlert{}).Count(&alerts)
	f.db.Model(&models.LocationHistory{}).Count(&locs)
	assert.Zero(t, alerts)
	assert.Zero(t, locs)
	assert.Empty(t, f.pool.jobs)
}

func TestCreateAlertRequiresDevice(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{DeviceID: "  "})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateAlertBlankTranscript(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "   ")
	assert.Equal(t, analysis.FallbackNoTranscript, v.SituationAnalysis)
	assert.Equal(t, models.EmergencyOther, v.EmergencyType)
	assert.Zero(t, f.analyzer.calls)
}

func TestCreateAlertClassifierFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = errors.New("model unavailable")

	v := f.create(t, "사람이 쓰러졌어요")
	assert.Equal(t, analysis.FallbackAnalysisFailed, v.SituationAnalysis)
	assert.Equal(t, models.EmergencyOther, v.EmergencyType)
	assert.Equal(t, models.StatusPending, v.Status)
}

func TestCreateAlertSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc = emergency.NewService(emergency.Deps{
		DB:         f.db,
		Classifier: analysis.NewClassifier(cancelingAnalyzer{cancel: cancel}, time.Second),
		Geocoder:   geoStub{addr: "서울특별시 중구 세종대로 110"},
		Sender:     f.sender,
		Pool:       f.pool,
	})

	v, err := f.svc.CreateEmergencyAlert(ctx, emergency.CreateAlertRequest{
		DeviceID: "dev-1", Latitude: 37.5, Longitude: 127.0, AudioTranscript: "살려주세요",
	})
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, analysis.FallbackAnalysisFailed, v.SituationAnalysis)
	assert.Equal(t, models.StatusPending, v.Status)

	var alerts, locs int64
	f.db.Model(&models.EmergencyAlert{}).Count(&alerts)
	f.db.Model(&models.LocationHistory{}).Count(&locs)
	assert.EqualValues(t, 1, alerts)
	assert.EqualValues(t, 1, locs)
	require.Len(t, f.pool.jobs, 1)

	f.pool.runAll()
	assert.Equal(t, models.StatusNotified, f.reload(t, v.ID).Status)
}

func TestCreateAlertGeocoderFailure(t *testing.T) {
	f := newFixture(t)
	f.svc = emergency.NewService(emergency.Deps{
		DB:       f.db,
		Geocoder: geoStub{err: errors.New("quota exceeded")},
		Sender:   f.sender,
		Pool:     f.pool,
	})
	v, err := f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{
		DeviceID: "dev-1", Latitude: 37.5, Longitude: 127.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "좌표: 37.500000, 127.000000", v.Address)
}

func TestCreateAlertStoresAudio(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "http://files.local")
	require.NoError(t, err)
	f.svc = emergency.NewService(emergency.Deps{DB: f.db, Store: store, Pool: f.pool})

	audio := []byte("RIFF....WAVEfmt ")
	v, err := f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{
		DeviceID:  "dev-1",
		AudioData: base64.StdEncoding.EncodeToString(audio),
	})
	require.NoError(t, err)
	require.NotNil(t, v.AudioURL)
	assert.True(t, strings.HasPrefix(*v.AudioURL, "http://files.local/audio/"))

	key := strings.TrimPrefix(*v.AudioURL, "http://files.local/")
	b, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, audio, b)

	// 非法 base64 不影响告警创建
	v, err = f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{
		DeviceID: "dev-1", AudioData: "%%% not base64",
	})
	require.NoError(t, err)
	assert.Nil(t, v.AudioURL)
}

func TestNotifyWithoutContacts(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "도와주세요")
	f.pool.runAll()

	a := f.reload(t, v.ID)
	assert.Equal(t, models.StatusNotified, a.Status)
	assert.True(t, a.NotificationSent)
	assert.Equal(t, emergency.MsgNoContacts, a.NotificationMessage)
	assert.Empty(t, f.sender.calls())
}

func TestNotifyPartialFailure(t *testing.T) {
	f := newFixture(t)
	testutil.SeedContact(t, f.db, f.user.ID, "셋째", "010-3333-3333", "", 3)
	testutil.SeedContact(t, f.db, f.user.ID, "첫째", "010-1111-1111", "", 1)
	testutil.SeedContact(t, f.db, f.user.ID, "둘째", "010-2222-2222", "second@example.com", 2)
	f.sender.failSMS = map[string]bool{"010-2222-2222": true}

	v := f.create(t, "도와주세요")
	f.pool.runAll()

	a := f.reload(t, v.ID)
	assert.Equal(t, models.StatusNotified, a.Status)
	assert.Equal(t, "2명의 긴급 연락처에게 알림 전송 완료", a.NotificationMessage)

	var order []string
	for _, c := range f.sender.calls() {
		order = append(order, c.channel+":"+c.to)
	}
	// email is still attempted after the SMS of the same contact failed
	assert.Equal(t, []string{
		"sms:010-1111-1111",
		"sms:010-2222-2222",
		"email:second@example.com",
		"sms:010-3333-3333",
	}, order)
}

func TestNotifySkipsInactiveContacts(t *testing.T) {
	f := newFixture(t)
	c := testutil.SeedContact(t, f.db, f.user.ID, "전 연락처", "010-9999-9999", "", 1)
	require.NoError(t, models.DeactivateContact(f.db, c.ID))

	v := f.create(t, "")
	f.pool.runAll()
	assert.Equal(t, emergency.MsgNoContacts, f.reload(t, v.ID).NotificationMessage)
}

func TestNotifyPanicResetsToPending(t *testing.T) {
	f := newFixture(t)
	testutil.SeedContact(t, f.db, f.user.ID, "a", "010-1111-1111", "", 1)
	f.sender.panicOn = "010-1111-1111"

	v := f.create(t, "")
	err := f.svc.Notify(context.Background(), v.ID)
	assert.Error(t, err)

	a := f.reload(t, v.ID)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.False(t, a.NotificationSent)
	assert.Equal(t, emergency.MsgNotifyFailed, a.NotificationMessage)
}

func TestNotifyMissingAlert(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Notify(context.Background(), 4242)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestNotifyKeepsStatusSetByOwner(t *testing.T) {
	f := newFixture(t)
	testutil.SeedContact(t, f.db, f.user.ID, "a", "010-1111-1111", "", 1)
	v := f.create(t, "")

	_, err := f.svc.ResolveAlert(context.Background(), f.user.ID, v.ID)
	require.NoError(t, err)
	f.pool.runAll()

	a := f.reload(t, v.ID)
	assert.Equal(t, models.StatusResolved, a.Status)
	assert.NotNil(t, a.ResolvedTime)
	assert.Equal(t, "1명의 긴급 연락처에게 알림 전송 완료", a.NotificationMessage)
}

func TestCreateReturnsBeforeFanOut(t *testing.T) {
	f := newFixture(t)
	testutil.SeedContact(t, f.db, f.user.ID, "a", "010-1111-1111", "", 1)
	f.sender.gate = make(chan struct{})
	pool := scheduler.NewPool(1, 4)
	f.svc = emergency.NewService(emergency.Deps{DB: f.db, Sender: f.sender, Pool: pool})

	done := make(chan *emergency.AlertView, 1)
	go func() {
		v, err := f.svc.CreateEmergencyAlert(context.Background(), emergency.CreateAlertRequest{DeviceID: "dev-1"})
		assert.NoError(t, err)
		done <- v
	}()

	var v *emergency.AlertView
	select {
	case v = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("create blocked on notification delivery")
	}
	assert.Equal(t, models.StatusPending, v.Status)

	close(f.sender.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	a := f.reload(t, v.ID)
	assert.Equal(t, models.StatusNotified, a.Status)
	assert.Equal(t, "1명의 긴급 연락처에게 알림 전송 완료", a.NotificationMessage)
}

func TestResolveAlert(t *testing.T) {
	f := newFixture(t)
	other := testutil.SeedUser(t, f.db, "lee", "dev-2")
	v := f.create(t, "")
	f.pool.runAll()

	_, err := f.svc.ResolveAlert(context.Background(), other.ID, v.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermissionDenied(err))
	assert.Equal(t, "해당 알림을 처리할 권한이 없습니다", apperrors.GetMessage(err))
	before := f.reload(t, v.ID)
	assert.Equal(t, models.StatusNotified, before.Status)
	assert.Nil(t, before.ResolvedTime)

	rv, err := f.svc.ResolveAlert(context.Background(), f.user.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, rv.Status)
	assert.Equal(t, "해결됨", rv.StatusDescription)
	require.NotNil(t, rv.ResolvedTime)
	assert.True(t, rv.NotificationSent)
	assert.Equal(t, emergency.MsgNoContacts, rv.NotificationMessage)

	_, err = f.svc.ResolveAlert(context.Background(), f.user.ID, 999)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMarkInProgressAndFalseAlarm(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "")

	_, err := f.svc.MarkInProgress(context.Background(), f.user.ID, v.ID)
	assert.True(t, apperrors.IsValidation(err), "PENDING cannot move to IN_PROGRESS")

	f.pool.runAll()
	iv, err := f.svc.MarkInProgress(context.Background(), f.user.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, iv.Status)
	assert.True(t, iv.NotificationSent)

	fv, err := f.svc.MarkFalseAlarm(context.Background(), f.user.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFalseAlarm, fv.Status)
	assert.Nil(t, fv.ResolvedTime)

	_, err = f.svc.MarkFalseAlarm(context.Background(), f.user.ID, v.ID)
	assert.True(t, apperrors.IsValidation(err))

	other := testutil.SeedUser(t, f.db, "park", "dev-3")
	_, err = f.svc.MarkFalseAlarm(context.Background(), other.ID, v.ID)
	assert.True(t, apperrors.IsPermissionDenied(err))
}

func TestUpdateAlertStatusInvariants(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "")

	for _, st := range []models.AlertStatus{
		models.StatusNotified, models.StatusResolved, models.StatusInProgress,
		models.StatusPending, models.StatusResolved, models.StatusFalseAlarm,
	} {
		a, err := f.svc.UpdateAlertStatus(context.Background(), v.ID, st, "msg "+string(st))
		require.NoError(t, err)
		assert.Equal(t, st == models.StatusResolved, a.ResolvedTime != nil, st)
		assert.Equal(t, st == models.StatusNotified || st == models.StatusInProgress, a.NotificationSent, st)
		assert.Equal(t, "msg "+string(st), a.NotificationMessage)
	}

	_, err := f.svc.UpdateAlertStatus(context.Background(), v.ID, "BOGUS", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestConcurrentStatusWrites(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = f.svc.ResolveAlert(context.Background(), f.user.ID, v.ID)
			} else {
				_, _ = f.svc.UpdateAlertStatus(context.Background(), v.ID, models.StatusNotified, fmt.Sprint(i))
			}
		}(i)
	}
	wg.Wait()

	a := f.reload(t, v.ID)
	assert.Equal(t, a.Status == models.StatusResolved, a.ResolvedTime != nil)
}

func TestGetAndListAlerts(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, "")
	second := f.create(t, "")

	list, err := f.svc.ListUserAlerts(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	got, err := f.svc.GetAlert(context.Background(), f.user.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	other := testutil.SeedUser(t, f.db, "choi", "")
	_, err = f.svc.GetAlert(context.Background(), other.ID, first.ID)
	assert.True(t, apperrors.IsPermissionDenied(err))

	empty, err := f.svc.ListUserAlerts(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchAlerts(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "")
	f.create(t, "")
	_, err := f.svc.UpdateAlertStatus(context.Background(), a.ID, models.StatusNotified, "")
	require.NoError(t, err)

	pending, err := f.svc.SearchAlerts(context.Background(), models.StatusPending, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, f.user.Name, pending[0].UserName)

	now := time.Now()
	ranged, err := f.svc.SearchAlerts(context.Background(), "", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	_, err = f.svc.SearchAlerts(context.Background(), "", time.Time{}, time.Time{})
	assert.True(t, apperrors.IsValidation(err))
	_, err = f.svc.SearchAlerts(context.Background(), "", now, now.Add(-time.Hour))
	assert.True(t, apperrors.IsValidation(err))
}

func TestEventsEmitted(t *testing.T) {
	f := newFixture(t)
	v := f.create(t, "")
	f.pool.runAll()

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	require.Len(t, f.sink.events, 2)
	assert.Equal(t, emergency.EventCreated, f.sink.events[0].Type)
	assert.Equal(t, models.StatusPending, f.sink.events[0].Status)
	assert.Equal(t, emergency.EventStatus, f.sink.events[1].Type)
	assert.Equal(t, models.StatusNotified, f.sink.events[1].Status)
	assert.Equal(t, v.ID, f.sink.events[1].AlertID)
	assert.Equal(t, f.user.ID, f.sink.events[1].UserID)
}

func TestRefreshPendingGaugeWithoutMetrics(t *testing.T) {
	f := newFixture(t)
	f.create(t, "")
	assert.NoError(t, f.svc.RefreshPendingGauge(context.Background()))
}
