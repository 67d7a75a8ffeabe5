// Package jobs runs the portal's background work on asynq: delayed
// landlord auto replies and the periodic overdue payment scan.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"renttalk-tenant-portal/api/internal/services"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
)

const (
	TypeAutoReply   = "message.auto_reply"
	TypeMarkOverdue = "payments.mark_overdue"

	autoReplyMaxRetry = 3
)

type overduePayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

func NewAutoReplyTask(job services.ReplyJob, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAutoReply, payload, asynq.Queue(queue), asynq.MaxRetry(autoReplyMaxRetry)), nil
}

// NewMarkOverdueTask scans against the time the task runs when asOf is zero.
func NewMarkOverdueTask(asOf time.Time, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(overduePayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMarkOverdue, payload, asynq.Queue(queue)), nil
}

// Enqueuer is the part of asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher hands reply jobs to the worker; the typing delay becomes
// the task's ProcessIn.
type AsynqDispatcher struct {
	Client Enqueuer
	Queue  string
}

var _ services.ReplyDispatcher = AsynqDispatcher{}

func (d AsynqDispatcher) Dispatch(ctx context.Context, job services.ReplyJob) error {
	task, err := NewAutoReplyTask(job, d.Queue)
	if err != nil {
		return err
	}
	_, err = d.Client.EnqueueContext(ctx, task, asynq.ProcessIn(job.Delay))
	return err
}

type Handlers struct {
	Messages *services.MessageService
	Payments *services.PaymentService
	Log      logx.Logger
	Now      func() time.Time
}

func (h Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAutoReply, h.HandleAutoReply)
	mux.HandleFunc(TypeMarkOverdue, h.HandleMarkOverdue)
}

func (h Handlers) HandleAutoReply(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("asynq").Start(ctx, TypeAutoReply)
	defer span.End()

	var job services.ReplyJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeAutoReply, err, asynq.SkipRetry)
	}
	if strings.TrimSpace(job.MessageID) == "" {
		return fmt.Errorf("%s without message_id: %w", TypeAutoReply, asynq.SkipRetry)
	}
	span.SetAttributes(attribute.String("message_id", job.MessageID))

	reply, err := h.Messages.DeliverAutoReply(ctx, job)
	if err != nil {
		return err
	}
	h.Log.Info(ctx, "auto_reply_delivered", "auto reply delivered",
		slog.String("message_id", job.MessageID),
		slog.String("reply_id", reply.ID),
	)
	return nil
}

func (h Handlers) HandleMarkOverdue(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("asynq").Start(ctx, TypeMarkOverdue)
	defer span.End()

	var payload overduePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", TypeMarkOverdue, err, asynq.SkipRetry)
		}
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = h.now()
	}
	changed, err := h.Payments.MarkOverdue(ctx, asOf)
	span.SetAttributes(attribute.Int("changed", len(changed)))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("mark overdue: %w", err)
	}
	if len(changed) > 0 {
		h.Log.Info(ctx, "payments_overdue", "payments marked overdue",
			slog.Int("count", len(changed)),
		)
	}
	return nil
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// RegisterOverdueScan schedules the overdue scan every interval.
func RegisterOverdueScan(s *asynq.Scheduler, interval time.Duration, queue string) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("overdue scan interval must be positive, got %s", interval)
	}
	task, err := NewMarkOverdueTask(time.Time{}, queue)
	if err != nil {
		return "", err
	}
	return s.Register("@every "+interval.String(), task)
}

// QueueInspector is the part of asynq.Inspector the depth monitor uses.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// MonitorQueueDepth reports the queue size as a gauge until ctx ends.
func MonitorQueueDepth(ctx context.Context, inspector QueueInspector, queue string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := inspector.GetQueueInfo(queue)
			if err != nil {
				continue
			}
			metricsx.SetAsynqQueueDepth(queue, info.Size)
		}
	}
}
