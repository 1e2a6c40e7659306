package spawn

import (
	"bufio"
	"context"
	"os"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/domain/app"
)

const (
	defaultCols = 80
	defaultRows = 24
)

// PTY spawns terminal applications on a pseudo-terminal. Output is
// drained to the debug log so the child never blocks on a full buffer.
type PTY struct {
	opts options
	size pty.Winsize
}

// NewPTY creates a pty backend
func NewPTY(opts ...Option) *PTY {
	return &PTY{
		opts: newOptions(opts),
		size: pty.Winsize{Cols: defaultCols, Rows: defaultRows},
	}
}

// Spawn starts the command on a new pty and returns its pid
func (p *PTY) Spawn(ctx context.Context, req app.SpawnRequest) (int, error) {
	cmd, err := p.opts.command(ctx, req)
	if err != nil {
		return 0, err
	}
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")

	size := p.size
	ptmx, err := pty.StartWithSize(cmd, &size)
	if err != nil {
		return 0, startError(req.Command, err)
	}

	pid := cmd.Process.Pid
	p.opts.logger.Info("Terminal process spawned",
		zap.String("app_id", req.AppID),
		zap.String("token", req.Token.String()),
		zap.Int("pid", pid))

	go p.drain(req.AppID, ptmx)
	go p.opts.wait(req, pid, func() error {
		err := cmd.Wait()
		ptmx.Close()
		return err
	})
	return pid, nil
}

func (p *PTY) drain(appID string, ptmx *os.File) {
	scanner := bufio.NewScanner(ptmx)
	for scanner.Scan() {
		p.opts.logger.Debug("Terminal output",
			zap.String("app_id", appID),
			zap.String("line", scanner.Text()))
	}
}
