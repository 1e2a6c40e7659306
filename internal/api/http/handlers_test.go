package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/shell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell/internal/service"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

type testWindow struct {
	id      string
	pid     int
	wmClass string
}

func (w testWindow) ID() string        { return w.id }
func (w testWindow) PID() int          { return w.pid }
func (w testWindow) Title() string     { return w.id }
func (w testWindow) WMClass() string   { return w.wmClass }
func (w testWindow) Workspace() int    { return 0 }
func (w testWindow) SkipTaskbar() bool { return false }

type testWM struct {
	mu        sync.Mutex
	activated []string
	refuse    bool
}

func (wm *testWM) Activate(w app.Window, _ uint32) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.activated = append(wm.activated, w.ID())
	return nil
}
func (wm *testWM) MoveToWorkspace(app.Window, int) error { return nil }
func (wm *testWM) ActiveWorkspace() int                  { return 0 }

func (wm *testWM) RequestClose(windows []app.Window, _ uint32) []bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	accepted := make([]bool, len(windows))
	for i := range accepted {
		accepted[i] = !wm.refuse
	}
	return accepted
}

type testSpawner struct {
	mu    sync.Mutex
	err   error
	token id.LaunchToken
	calls int
}

func (s *testSpawner) Spawn(_ context.Context, req app.SpawnRequest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	s.token = req.Token
	return 4000 + s.calls, nil
}

type fixture struct {
	router     *gin.Engine
	dispatcher *service.Dispatcher
	wm         *testWM
	spawner    *testSpawner
}

func descriptors() []*types.Descriptor {
	return []*types.Descriptor{
		{
			ID: "org.example.Editor", Name: "Editor", Exec: "editor",
			StartupWMClass: "ExampleEditor", MultiInstance: true,
			Actions: []types.Action{{ID: "new-window", Name: "New Window", Args: []string{"--new-window"}}},
		},
		{ID: "org.example.Archive", Name: "Archive", Exec: "archive"},
		{ID: "org.example.Hidden", Name: "Hidden", Exec: "hidden", NoDisplay: true},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := registry.NewManager()
	for _, d := range descriptors() {
		require.NoError(t, catalog.Register(d))
	}

	wm, spawner := &testWM{}, &testSpawner{}
	metrics := monitoring.NewMetrics()
	manager := app.NewManager(wm, spawner, app.WithMetrics(metrics))
	require.NoError(t, manager.Init(catalog.Descriptors()))

	dispatcher := service.NewDispatcher(manager)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = dispatcher.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	router := gin.New()
	NewHandlers(dispatcher, catalog, metrics, zaptest.NewLogger(t), "test").Register(router)

	return &fixture{router: router, dispatcher: dispatcher, wm: wm, spawner: spawner}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) window(t *testing.T, w testWindow, token string) {
	t.Helper()
	require.NoError(t, f.dispatcher.Post(app.WindowCreated{Window: w, LaunchToken: token}))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertKind(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	body := decode[map[string]string](t, w)
	assert.Equal(t, kind, body["kind"])
	assert.NotEmpty(t, body["error"])
}

func TestListApps(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/apps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	apps := decode[[]types.AppInfo](t, w)
	require.Len(t, apps, 3)
	assert.Equal(t, []string{"Archive", "Editor", "Hidden"}, []string{apps[0].Name, apps[1].Name, apps[2].Name})

	w = f.do(t, http.MethodGet, "/apps?running=true", nil)
	assert.Empty(t, decode[[]types.AppInfo](t, w))

	f.window(t, testWindow{id: "w1", pid: 10, wmClass: "ExampleEditor"}, "")
	w = f.do(t, http.MethodGet, "/apps?running=true", nil)
	running := decode[[]types.AppInfo](t, w)
	require.Len(t, running, 1)
	assert.Equal(t, "org.example.Editor", running[0].ID)
	assert.Equal(t, types.StateRunning, running[0].State)

	assertKind(t, f.do(t, http.MethodGet, "/apps?sort=size", nil), http.StatusBadRequest, "bad_request")
}

func TestGetApp(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/apps/org.example.Editor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[types.AppInfo](t, w)
	assert.True(t, info.CanOpenNewWindow)
	assert.Equal(t, types.StateStopped, info.State)

	assertKind(t, f.do(t, http.MethodGet, "/apps/org.example.Missing", nil), http.StatusNotFound, "unknown_app")
}

func TestLaunchLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/apps/org.example.Archive/launch", types.LaunchRequest{Timestamp: 5, DiscreteGPU: true})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	info := decode[types.AppInfo](t, w)
	assert.Equal(t, types.StateStarting, info.State)
	require.Len(t, info.Launches, 1)
	assert.Equal(t, types.GPUDiscrete, info.Launches[0].GPU)

	assertKind(t, f.do(t, http.MethodPost, "/apps/org.example.Archive/launch", nil), http.StatusConflict, "already_starting")

	f.window(t, testWindow{id: "w9", pid: 4001}, f.spawner.token.String())
	w = f.do(t, http.MethodGet, "/apps/org.example.Archive", nil)
	assert.Equal(t, types.StateRunning, decode[types.AppInfo](t, w).State)
}

func TestLaunchSpawnFailure(t *testing.T) {
	f := newFixture(t)
	f.spawner.err = errors.New("no such file")

	assertKind(t, f.do(t, http.MethodPost, "/apps/org.example.Archive/launch", nil), http.StatusBadGateway, "spawn_failed")

	w := f.do(t, http.MethodGet, "/apps/org.example.Archive", nil)
	assert.Equal(t, types.StateStopped, decode[types.AppInfo](t, w).State)
}

func TestCancelLaunch(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/apps/org.example.Archive/launch", nil).Code)
	token := f.spawner.token.String()

	for range 2 {
		w := f.do(t, http.MethodDelete, "/apps/org.example.Archive/launch/"+token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	w := f.do(t, http.MethodGet, "/apps/org.example.Archive", nil)
	assert.Equal(t, types.StateStopped, decode[types.AppInfo](t, w).State)

	assertKind(t, f.do(t, http.MethodDelete, "/apps/org.example.Archive/launch/nope", nil), http.StatusBadRequest, "bad_request")
	assertKind(t, f.do(t, http.MethodDelete, "/apps/org.example.Missing/launch/"+token, nil), http.StatusNotFound, "unknown_app")
}

func TestActivate(t *testing.T) {
	f := newFixture(t)

	// stopped apps launch
	w := f.do(t, http.MethodPost, "/apps/org.example.Archive/activate", types.ActivateRequest{Timestamp: 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, types.StateStarting, decode[types.AppInfo](t, w).State)

	// running apps focus their most recent window
	f.window(t, testWindow{id: "w1", pid: 10, wmClass: "ExampleEditor"}, "")
	w = f.do(t, http.MethodPost, "/apps/org.example.Editor/activate", types.ActivateRequest{Timestamp: 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"w1"}, f.wm.activated)
}

func TestActivateWindow(t *testing.T) {
	f := newFixture(t)
	f.window(t, testWindow{id: "w1", pid: 10, wmClass: "ExampleEditor"}, "")

	w := f.do(t, http.MethodPost, "/apps/org.example.Editor/windows/w1/activate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"w1"}, f.wm.activated)

	assertKind(t, f.do(t, http.MethodPost, "/apps/org.example.Archive/windows/w1/activate", nil), http.StatusNotFound, "not_owned")
}

func TestOpenNewWindowAndActions(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/apps/org.example.Editor/new-window", map[string]int{"workspace": 1})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	w = f.do(t, http.MethodPost, "/apps/org.example.Editor/actions/new-window", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Len(t, decode[types.AppInfo](t, w).Launches, 2)

	assertKind(t, f.do(t, http.MethodPost, "/apps/org.example.Editor/actions/explode", nil), http.StatusUnprocessableEntity, "unknown_action")

	f.window(t, testWindow{id: "x1", pid: 77, wmClass: "stray"}, "")
	var windowApp string
	require.NoError(t, f.dispatcher.Do(context.Background(), func(m *app.Manager) error {
		a, _ := m.WindowApp("x1")
		windowApp = a.ID()
		return nil
	}))
	assertKind(t, f.do(t, http.MethodPost, "/apps/"+windowApp+"/launch", nil), http.StatusUnprocessableEntity, "not_launchable")
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	f.window(t, testWindow{id: "w1", pid: 10, wmClass: "ExampleEditor"}, "")

	w := f.do(t, http.MethodPost, "/apps/org.example.Editor/quit", types.ActivateRequest{Timestamp: 9})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"all_accepted":true}`, w.Body.String())

	f.wm.mu.Lock()
	f.wm.refuse = true
	f.wm.mu.Unlock()
	w = f.do(t, http.MethodPost, "/apps/org.example.Editor/quit", nil)
	assert.JSONEq(t, `{"all_accepted":false}`, w.Body.String())
}

func TestBadBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/apps/org.example.Editor/launch", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assertKind(t, w, http.StatusBadRequest, "bad_request")
}

func TestDescriptors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/descriptors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.DescriptorMetadata](t, w), 2)

	w = f.do(t, http.MethodGet, "/descriptors?hidden=true", nil)
	assert.Len(t, decode[[]types.DescriptorMetadata](t, w), 3)

	w = f.do(t, http.MethodGet, "/descriptors/org.example.Editor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ExampleEditor", decode[types.Descriptor](t, w).StartupWMClass)

	assertKind(t, f.do(t, http.MethodGet, "/descriptors/nope", nil), http.StatusNotFound, "unknown_app")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 3, body["apps"].(map[string]any)["total_apps"])

	w = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shelld_uptime_seconds")

	w = f.do(t, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime_seconds")
}

func TestStreamLogs(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/logs", UILogBatch{
		Source:  "dock",
		Entries: []UILogEntry{{Level: "warn", Message: "icon missing", AppID: "org.example.Editor"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"accepted":1}`, w.Body.String())

	assertKind(t, f.do(t, http.MethodPost, "/logs", UILogBatch{Source: "dock"}), http.StatusBadRequest, "bad_request")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&app.Error{Op: "launch", Err: app.ErrSpawnFailed, Cause: context.Canceled}, http.StatusBadGateway, "spawn_failed"},
		{&app.Error{Op: "activate", Err: app.ErrWindowManager, Cause: errors.New("no compositor")}, http.StatusBadGateway, "window_manager"},
		{service.ErrStopped, http.StatusServiceUnavailable, "unavailable"},
		{errors.New("mystery"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, kind := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.kind, kind)
	}
}
