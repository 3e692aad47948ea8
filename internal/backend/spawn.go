package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
)

// Spawner starts the backend process when nothing is listening.
type Spawner interface {
	Spawn(ctx context.Context) error
}

// ProcSpawner launches the configured backend command fully detached: its
// own session, no inherited stdio, and the process handle released so the
// backend outlives this client.
type ProcSpawner struct {
	Command []string
	Logger  *slog.Logger
}

func (s *ProcSpawner) Spawn(ctx context.Context) error {
	if len(s.Command) == 0 {
		return errors.New("no backend command configured")
	}
	if s.Logger != nil {
		s.Logger.Info("spawning backend", "cmd", s.Command)
	}

	started := make(chan error, 1)
	go func() {
		cmd := exec.Command(s.Command[0], s.Command[1:]...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		// stdin/stdout/stderr stay nil: the child gets /dev/null

		if err := cmd.Start(); err != nil {
			started <- err
			return
		}
		started <- cmd.Process.Release()
	}()

	select {
	case err := <-started:
		if err != nil {
			return fmt.Errorf("failed to spawn backend: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
