// Package bus serves solve requests over NATS request/reply.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"svw.info/meldsolver/internal/config"
	"svw.info/meldsolver/internal/domain"
	"svw.info/meldsolver/internal/usecase"
	"svw.info/meldsolver/internal/workerpool"
)

// Request is the body of a solve request.
type Request struct {
	Tiles domain.TileSet `json:"tiles"`
}

// Reply is the body of a solve reply.
type Reply struct {
	Outcome    domain.Outcome   `json:"outcome"`
	Melds      []domain.TileSet `json:"melds,omitempty"`
	Nodes      int              `json:"nodes,omitempty"`
	Forced     int              `json:"forced,omitempty"`
	DurationMs int64            `json:"durationMs,omitempty"`
	Cached     bool             `json:"cached,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Connect dials NATS with reconnect handling logged through slog.
func Connect(cfg config.NATSConfig) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("meldsolver"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}
	return nats.Connect(cfg.URL, opts...)
}

// Worker answers solve requests published on a subject. Every instance
// joins the same queue group so each request is solved once.
type Worker struct {
	uc      *usecase.Service
	subject string
	queue   string
	logger  *slog.Logger
	sub     *nats.Subscription

	// Pool, when set, solves requests off the subscription goroutine.
	// A request arriving while its queue is full is answered as busy.
	Pool *workerpool.Pool
}

var busyReply = Reply{Outcome: domain.Unknown, Error: "solver busy"}

func NewWorker(uc *usecase.Service, subject, queue string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{uc: uc, subject: subject, queue: queue, logger: logger}
}

// Start subscribes on nc. Requests are solved under ctx.
func (w *Worker) Start(ctx context.Context, nc *nats.Conn) error {
	sub, err := nc.QueueSubscribe(w.subject, w.queue, func(msg *nats.Msg) {
		w.dispatch(ctx, msg.Data, func(reply []byte) {
			if msg.Reply == "" {
				return
			}
			if err := msg.Respond(reply); err != nil {
				w.logger.Error("failed to respond", "subject", w.subject, "error", err)
			}
		})
	})
	if err != nil {
		return err
	}
	w.sub = sub
	w.logger.Info("solve worker subscribed", "subject", w.subject, "queue", w.queue)
	return nil
}

func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Drain()
}

// dispatch solves data inline, or on Pool when one is set, and passes
// the encoded reply to respond.
func (w *Worker) dispatch(ctx context.Context, data []byte, respond func([]byte)) {
	if w.Pool == nil {
		respond(w.Handle(ctx, data))
		return
	}
	if !w.Pool.TrySubmit(func() { respond(w.Handle(ctx, data)) }) {
		w.logger.Warn("solve request rejected, worker pool full", "subject", w.subject, "queued", w.Pool.Queued())
		respond(w.encode(busyReply))
	}
}

// Handle decodes one request and encodes its reply.
func (w *Worker) Handle(ctx context.Context, data []byte) []byte {
	var req Request
	var rep Reply
	if err := json.Unmarshal(data, &req); err != nil {
		rep.Error = "invalid request: " + err.Error()
		return w.encode(rep)
	}
	res, err := w.uc.Solve(ctx, req.Tiles)
	if err != nil {
		rep.Error = err.Error()
		return w.encode(rep)
	}
	rep = Reply{
		Outcome:    res.Solution.Outcome,
		Melds:      res.Solution.Melds,
		Nodes:      res.Stats.Nodes,
		Forced:     res.Stats.Forced,
		DurationMs: res.Stats.Duration.Milliseconds(),
		Cached:     res.Cached,
	}
	return w.encode(rep)
}

func (w *Worker) encode(rep Reply) []byte {
	data, err := json.Marshal(rep)
	if err != nil {
		w.logger.Error("failed to marshal reply", "error", err)
		return []byte(`{"error":"internal error"}`)
	}
	return data
}
