// Package backend owns the channel to the evaluation backend: plan
// submission, the event stream, cancellation, and spawning the backend
// process when nothing is listening yet.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/nats-io/nats.go"

	"github.com/programme-lv/taskeval/api"
)

// ErrUnreachable marks transient connectivity failures. Only these are
// retried; anything else aborts the run immediately.
var ErrUnreachable = errors.New("backend unreachable")

const (
	subjSubmit = "eval.submit"
	subjEvents = "eval.%s.events"
	subjStop   = "eval.%s.stop"

	submitTimeout = 10 * time.Second
)

// Client is one established connection to the backend.
type Client interface {
	// Submit sends the compressed plan and returns the evaluation uuid.
	Submit(ctx context.Context, req *api.EvaluateReq) (string, error)
	// Events subscribes to the evaluation's stream. The channel closes
	// after the terminal message or when ctx is cancelled.
	Events(ctx context.Context, evalUuid string) (<-chan api.Event, error)
	// Stop asks the backend to cancel the evaluation. Best effort.
	Stop(evalUuid string) error
	Close()
}

// Dialer opens a Client against an address.
type Dialer func(addr string) (Client, error)

type natsClient struct {
	nc  *nats.Conn
	enc *zstd.Encoder
}

// Dial connects to the backend's broker. Connection refusals come back as
// ErrUnreachable so the supervisor can retry them.
func Dial(addr string) (Client, error) {
	nc, err := nats.Connect(addr,
		nats.Timeout(time.Second),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		if isUnreachable(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return nil, fmt.Errorf("failed to connect to backend: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to init compressor: %w", err)
	}
	return &natsClient{nc: nc, enc: enc}, nil
}

func isUnreachable(err error) bool {
	if errors.Is(err, nats.ErrNoServers) || errors.Is(err, nats.ErrTimeout) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}

func (c *natsClient) Submit(ctx context.Context, req *api.EvaluateReq) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	payload := c.enc.EncodeAll(raw, nil)

	subCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()
	msg, err := c.nc.RequestWithContext(subCtx, subjSubmit, payload)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) || errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return "", fmt.Errorf("failed to submit plan: %w", err)
	}

	var res api.SubmitRes
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return "", fmt.Errorf("failed to parse submit reply: %w", err)
	}
	if err := uuid.Validate(res.EvalUuid); err != nil {
		return "", fmt.Errorf("backend returned invalid eval uuid %q: %w", res.EvalUuid, err)
	}
	return res.EvalUuid, nil
}

func (c *natsClient) Events(ctx context.Context, evalUuid string) (<-chan api.Event, error) {
	raw := make(chan *nats.Msg, 512)
	sub, err := c.nc.ChanSubscribe(fmt.Sprintf(subjEvents, evalUuid), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to event stream: %w", err)
	}

	out := make(chan api.Event, 512)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				ev, err := api.ParseEvent(msg.Data)
				if err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if _, done := ev.(*api.JobFinished); done {
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *natsClient) Stop(evalUuid string) error {
	payload, err := json.Marshal(api.StopReq{EvalUuid: evalUuid})
	if err != nil {
		return err
	}
	if err := c.nc.Publish(fmt.Sprintf(subjStop, evalUuid), payload); err != nil {
		return fmt.Errorf("failed to publish stop: %w", err)
	}
	return c.nc.Flush()
}

func (c *natsClient) Close() {
	c.enc.Close()
	c.nc.Close()
}
