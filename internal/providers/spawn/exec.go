package spawn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/id"
)

// ExitFunc receives the exit of a spawned process. err is nil for a zero
// exit status.
type ExitFunc func(token id.LaunchToken, pid int, err error)

// Option configures a backend
type Option func(*options)

type options struct {
	logger  *zap.Logger
	onExit  ExitFunc
	environ func() []string
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// OnExit registers the exit callback
func OnExit(fn ExitFunc) Option {
	return func(o *options) { o.onExit = fn }
}

// WithEnviron replaces os.Environ as the base environment
func WithEnviron(fn func() []string) Option {
	return func(o *options) { o.environ = fn }
}

func newOptions(opts []Option) options {
	o := options{
		logger:  zap.NewNop(),
		onExit:  func(id.LaunchToken, int, error) {},
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Exec spawns processes with os/exec
type Exec struct {
	opts options
}

// NewExec creates an exec backend
func NewExec(opts ...Option) *Exec {
	return &Exec{opts: newOptions(opts)}
}

// Spawn starts the command and returns its pid
func (e *Exec) Spawn(ctx context.Context, req app.SpawnRequest) (int, error) {
	cmd, err := e.opts.command(ctx, req)
	if err != nil {
		return 0, err
	}
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		return 0, startError(req.Command, err)
	}

	pid := cmd.Process.Pid
	e.opts.logger.Info("Process spawned",
		zap.String("app_id", req.AppID),
		zap.String("token", req.Token.String()),
		zap.Int("pid", pid))

	go e.opts.wait(req, pid, cmd.Wait)
	return pid, nil
}

func (o options) command(ctx context.Context, req app.SpawnRequest) (*exec.Cmd, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Command) == "" {
		return nil, errors.New("empty command")
	}

	// Not CommandContext: launched programs outlive the request
	cmd := exec.Command(req.Command, req.Args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = mergeEnv(o.environ(), req.Env)
	return cmd, nil
}

func (o options) wait(req app.SpawnRequest, pid int, wait func() error) {
	err := wait()
	fields := []zap.Field{
		zap.String("app_id", req.AppID),
		zap.String("token", req.Token.String()),
		zap.Int("pid", pid),
	}
	if err != nil {
		o.logger.Debug("Process exited with error", append(fields, zap.Error(err))...)
	} else {
		o.logger.Debug("Process exited", fields...)
	}
	o.onExit(req.Token, pid, err)
}

// startError trims exec's messages down to what a user can act on
func startError(command string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%s: %w", command, exec.ErrNotFound)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%s: %w", command, os.ErrPermission)
	default:
		return fmt.Errorf("start %s: %w", command, err)
	}
}

// mergeEnv overlays KEY=VALUE pairs on base; later keys win
func mergeEnv(base, overlay []string) []string {
	merged := make(map[string]string, len(base)+len(overlay))
	for _, list := range [][]string{base, overlay} {
		for _, kv := range list {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				continue
			}
			merged[key] = value
		}
	}

	env := make([]string, 0, len(merged))
	for key, value := range merged {
		env = append(env, key+"="+value)
	}
	sort.Strings(env)
	return env
}
