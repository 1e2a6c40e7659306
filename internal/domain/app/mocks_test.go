package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
)

// fakeWindow is a window manager window under test control
type fakeWindow struct {
	id          string
	pid         int
	title       string
	wmClass     string
	workspace   int
	skipTaskbar bool
}

func (w *fakeWindow) ID() string        { return w.id }
func (w *fakeWindow) PID() int          { return w.pid }
func (w *fakeWindow) Title() string     { return w.title }
func (w *fakeWindow) WMClass() string   { return w.wmClass }
func (w *fakeWindow) Workspace() int    { return w.workspace }
func (w *fakeWindow) SkipTaskbar() bool { return w.skipTaskbar }

func newWindow(windowID string, pid int) *fakeWindow {
	return &fakeWindow{id: windowID, pid: pid, title: windowID, workspace: 0}
}

// mockWM is a mock window manager
type mockWM struct {
	mock.Mock
	active int
}

func (m *mockWM) Activate(w Window, timestamp uint32) error {
	args := m.Called(w, timestamp)
	return args.Error(0)
}

func (m *mockWM) MoveToWorkspace(w Window, workspace int) error {
	args := m.Called(w, workspace)
	return args.Error(0)
}

func (m *mockWM) RequestClose(windows []Window, timestamp uint32) []bool {
	args := m.Called(windows, timestamp)
	return args.Get(0).([]bool)
}

// ActiveWorkspace returns the active field; launches query it on every
// spawn, so it is not an expectation.
func (m *mockWM) ActiveWorkspace() int {
	return m.active
}

// mockSpawner is a mock process spawner
type mockSpawner struct {
	mock.Mock
}

func (m *mockSpawner) Spawn(ctx context.Context, req SpawnRequest) (int, error) {
	args := m.Called(ctx, req)
	return args.Int(0), args.Error(1)
}

// recorder collects notifications
type recorder struct {
	notes []types.Notification
}

func (r *recorder) record(n types.Notification) { r.notes = append(r.notes, n) }

func (r *recorder) kinds(kind types.NotificationKind) []types.Notification {
	var out []types.Notification
	for _, n := range r.notes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) transitions() [][2]types.State {
	var out [][2]types.State
	for _, n := range r.kinds(types.NotifyStateChanged) {
		out = append(out, [2]types.State{n.OldState, n.NewState})
	}
	return out
}

func editorDescriptor() *types.Descriptor {
	return &types.Descriptor{
		ID:             "org.example.Editor",
		Name:           "Editor",
		GenericName:    "Text Editor",
		Description:    "Edit text files",
		Exec:           "editor",
		Args:           []string{"--gui"},
		Env:            map[string]string{"EDITOR_MODE": "gui"},
		StartupWMClass: "ExampleEditor",
		MultiInstance:  true,
		Icons: types.IconSet{
			{Path: "/icons/16.png", Size: 16},
			{Path: "/icons/64.png", Size: 64},
			{Path: "/icons/32.png", Size: 32},
		},
		Actions: []types.Action{
			{ID: "new-window", Name: "New Window", Args: []string{"--new-window"}},
			{ID: "preferences", Name: "Preferences", Exec: "editor-prefs"},
		},
	}
}

// newTestApp builds an installed app with its own ownership index
func newTestApp(d *types.Descriptor, wm WindowManager, sp Spawner, rec *recorder) *App {
	e := env{wm: wm, spawner: sp}
	if rec != nil {
		e.notify = rec.record
	}
	return newApp(d.ID, InstalledSource(d), e)
}
