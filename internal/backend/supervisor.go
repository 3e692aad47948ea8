package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/programme-lv/taskeval/api"
)

// State of the supervised connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Streaming
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Sink receives the stream. The tracker implements it.
type Sink interface {
	Apply(ev api.Event) error
	Fatal(msg string)
}

// Supervisor drives one evaluation end to end: it dials the backend,
// submits the plan, pumps the event stream into a Sink and handles
// cancellation. When the backend is unreachable it spawns it (once) and
// keeps retrying for a bounded window.
type Supervisor struct {
	addr    string
	dial    Dialer
	spawner Spawner
	log     *slog.Logger

	// retry policy; the defaults cover a freshly spawned backend's warmup
	Attempts   int
	RetryDelay time.Duration

	state    atomic.Int32
	spawned  bool
	evalUuid string
}

func New(addr string, dial Dialer, spawner Spawner, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		addr:       addr,
		dial:       dial,
		spawner:    spawner,
		log:        log,
		Attempts:   100,
		RetryDelay: 100 * time.Millisecond,
	}
}

// State is safe to read from other goroutines.
func (s *Supervisor) State() State { return State(s.state.Load()) }

func (s *Supervisor) setState(st State) { s.state.Store(int32(st)) }

// EvalUuid returns the backend-assigned id, empty before submission.
func (s *Supervisor) EvalUuid() string { return s.evalUuid }

// Run submits the plan and consumes the stream until the terminal message,
// a structural error, or cancellation. It returns nil on a normal finish;
// partial state stays readable through the sink either way.
func (s *Supervisor) Run(ctx context.Context, req *api.EvaluateReq, sink Sink) error {
	s.setState(Connecting)
	client, evalUuid, err := s.connect(ctx, req)
	if err != nil {
		s.setState(Disconnected)
		sink.Fatal(fmt.Sprintf("aborted: %v", err))
		return err
	}
	defer client.Close()
	s.evalUuid = evalUuid
	s.log.Debug("plan submitted", "eval_uuid", evalUuid)

	events, err := client.Events(ctx, evalUuid)
	if err != nil {
		s.setState(Disconnected)
		sink.Fatal(fmt.Sprintf("aborted: %v", err))
		return err
	}
	s.setState(Streaming)

	for {
		select {
		case <-ctx.Done():
			if stopErr := client.Stop(evalUuid); stopErr != nil {
				s.log.Debug("stop publish failed", "error", stopErr)
			}
			sink.Fatal(fmt.Sprintf("aborted: %v", context.Cause(ctx)))
			s.setState(Aborted)
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				s.setState(Done)
				return nil
			}
			if err := sink.Apply(ev); err != nil {
				if stopErr := client.Stop(evalUuid); stopErr != nil {
					s.log.Debug("stop publish failed", "error", stopErr)
				}
				sink.Fatal(fmt.Sprintf("aborted: %v", err))
				s.setState(Aborted)
				return fmt.Errorf("event stream is inconsistent with the plan: %w", err)
			}
			if _, done := ev.(*api.JobFinished); done {
				s.setState(Done)
				return nil
			}
		}
	}
}

// connect dials and submits, retrying unreachable failures. The first
// unreachable failure spawns the backend; a spawn error ends the run.
func (s *Supervisor) connect(ctx context.Context, req *api.EvaluateReq) (Client, string, error) {
	var lastErr error
	for attempt := 0; attempt < s.Attempts; attempt++ {
		client, err := s.dial(s.addr)
		if err == nil {
			evalUuid, submitErr := client.Submit(ctx, req)
			if submitErr == nil {
				return client, evalUuid, nil
			}
			client.Close()
			err = submitErr
		}
		if !errors.Is(err, ErrUnreachable) {
			return nil, "", err
		}
		lastErr = err

		if !s.spawned {
			s.spawned = true
			if spawnErr := s.spawner.Spawn(ctx); spawnErr != nil {
				return nil, "", spawnErr
			}
		}

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(s.RetryDelay):
		}
	}
	return nil, "", fmt.Errorf("backend still unreachable after %d attempts: %w", s.Attempts, lastErr)
}
