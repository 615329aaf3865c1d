package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"venue_control/internal/models"
	"venue_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockIdentity struct {
	verifyUID string
	verifyErr error

	signUpUID  string
	signUpErr  error
	loginOut   map[string]any
	loginErr   error
	refresh    service.RefreshResult
	refreshErr error

	lastHeader  string
	lastSignUp  service.SignUpInput
	lastRefresh string
}

func (m *mockIdentity) Login(_ context.Context, email, password string) (map[string]any, error) {
	return m.loginOut, m.loginErr
}
func (m *mockIdentity) SignUp(_ context.Context, in service.SignUpInput) (string, error) {
	m.lastSignUp = in
	return m.signUpUID, m.signUpErr
}
func (m *mockIdentity) Refresh(_ context.Context, token string) (service.RefreshResult, error) {
	m.lastRefresh = token
	return m.refresh, m.refreshErr
}
func (m *mockIdentity) VerifyToken(_ context.Context, header string) (string, error) {
	m.lastHeader = header
	return m.verifyUID, m.verifyErr
}

// mockDevices keeps profiles by uid and records mutations.
type mockDevices struct {
	profiles   map[string]models.Profile
	profileErr error
	err        error

	calls []string
	args  [][]string
}

func (m *mockDevices) record(op string, args ...string) {
	m.calls = append(m.calls, op)
	m.args = append(m.args, args)
}

func (m *mockDevices) Profile(_ context.Context, uid string) (models.Profile, error) {
	return m.profiles[uid], m.profileErr
}
func (m *mockDevices) SaveFCMToken(_ context.Context, uid, token string) error {
	m.record("SaveFCMToken", uid, token)
	return m.err
}
func (m *mockDevices) AddVenue(_ context.Context, uid, venue string) (string, error) {
	m.record("AddVenue", uid, venue)
	return venue, m.err
}
func (m *mockDevices) AddDevice(_ context.Context, uid, venue, device, state string) (string, error) {
	m.record("AddDevice", uid, venue, device, state)
	return device, m.err
}
func (m *mockDevices) UpdateDeviceState(_ context.Context, uid, venue, device, value string) (string, error) {
	m.record("UpdateDeviceState", uid, venue, device, value)
	return value, m.err
}
func (m *mockDevices) DeleteVenue(_ context.Context, uid, venue string) (string, error) {
	m.record("DeleteVenue", uid, venue)
	return venue, m.err
}
func (m *mockDevices) DeleteDevice(_ context.Context, uid, venue, device string) (string, error) {
	m.record("DeleteDevice", uid, venue, device)
	return device, m.err
}

type mockSchedules struct {
	list    map[string]any
	err     error
	lastSet service.ScheduleInput
	lastArg []string
}

func (m *mockSchedules) SetSchedule(_ context.Context, uid string, in service.ScheduleInput) (service.ScheduleView, error) {
	m.lastSet = in
	return service.ScheduleView{Venue: in.Venue, Device: in.Device, Time: in.Time, Action: in.Action, Status: true}, m.err
}
func (m *mockSchedules) ListSchedules(_ context.Context, uid string) (map[string]any, error) {
	return m.list, m.err
}
func (m *mockSchedules) DeleteSchedule(_ context.Context, uid, venue, device string) error {
	m.lastArg = []string{uid, venue, device}
	return m.err
}
func (m *mockSchedules) UpdateScheduleStatus(_ context.Context, uid, venue, device, status string) error {
	m.lastArg = []string{uid, venue, device, status}
	return m.err
}

type mockMonitoring struct {
	data        map[string]any
	err         error
	lastSensors []string
}

func (m *mockMonitoring) AddMonitoringVenue(_ context.Context, uid, venue string, sensors []string) (map[string]any, error) {
	m.lastSensors = sensors
	return m.data, m.err
}
func (m *mockMonitoring) MonitoringData(_ context.Context, uid string) (map[string]any, error) {
	return m.data, m.err
}
func (m *mockMonitoring) DeleteMonitoringVenue(_ context.Context, uid, venue string) error {
	return m.err
}

type mockVoice struct {
	exists   bool
	cmd      service.VoiceCommand
	err      error
	lastKey  string
	lastText string
}

func (m *mockVoice) SetVoiceKey(_ context.Context, uid, key string) error {
	m.lastKey = key
	return m.err
}
func (m *mockVoice) VoiceKeyExists(_ context.Context, uid string) (bool, error) {
	return m.exists, m.err
}
func (m *mockVoice) VoiceCommand(_ context.Context, uid, text string) (service.VoiceCommand, error) {
	m.lastText = text
	return m.cmd, m.err
}

type mockAdmin struct {
	signInToken string
	signInErr   error
	parseID     int
	parseErr    error
	tokens      []models.AccessToken
	addErr      error
	deleted     bool

	lastParseToken string
	lastAdded      string
	lastDeleted    string
}

func (m *mockAdmin) Bootstrap(context.Context, string, string) error { return nil }
func (m *mockAdmin) SignIn(_ context.Context, username, password string) (string, error) {
	return m.signInToken, m.signInErr
}
func (m *mockAdmin) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}
func (m *mockAdmin) ListAccessTokens(context.Context) ([]models.AccessToken, error) {
	return m.tokens, nil
}
func (m *mockAdmin) AddAccessToken(_ context.Context, token string) (models.AccessToken, error) {
	m.lastAdded = token
	if token == "" {
		token = "generated"
	}
	return models.AccessToken{Token: token}, m.addErr
}
func (m *mockAdmin) DeleteAccessToken(_ context.Context, token string) (bool, error) {
	m.lastDeleted = token
	return m.deleted, nil
}

// ---- Shared Test Helpers ----

const testUID = "uid-1"

// verifiedServices returns a Service whose identity mock admits testUID.
func verifiedServices() (*service.Service, *mockIdentity, *mockDevices) {
	id := &mockIdentity{verifyUID: testUID}
	dev := &mockDevices{profiles: map[string]models.Profile{
		testUID: {UID: testUID, VerifiedAccess: true, Venues: map[string]any{"Hall": map[string]any{"Fan": "on"}}},
	}}
	return &service.Service{Identity: id, Devices: dev}, id, dev
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return out
}
