package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/api/internal/responder"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/workflow"
)

const (
	maxMessageLength       = 4000
	DefaultSimulationDelay = 2 * time.Second
)

// ReplyJob asks for the landlord's automatic answer to one tenant message.
type ReplyJob struct {
	MessageID string        `json:"message_id"`
	TenantID  string        `json:"tenant_id"`
	Content   string        `json:"content"`
	Delay     time.Duration `json:"delay"`
}

// ReplyDispatcher runs DeliverAutoReply for a job after job.Delay.
type ReplyDispatcher interface {
	Dispatch(ctx context.Context, job ReplyJob) error
}

type MessageOptions struct {
	TypingDelayMin time.Duration
	TypingDelayMax time.Duration
	Dispatcher     ReplyDispatcher
}

type MessageService struct {
	res        *resource.Service[models.Message]
	responder  *responder.Responder
	dispatcher ReplyDispatcher
	local      *GoroutineDispatcher
	typingMin  time.Duration
	typingMax  time.Duration
	deps       Deps
}

// NewMessageService wires the service. Without a dispatcher in opts,
// replies run on in-process goroutines.
func NewMessageService(res *resource.Service[models.Message], resp *responder.Responder, deps Deps, opts MessageOptions) *MessageService {
	s := &MessageService{
		res:       res,
		responder: resp,
		typingMin: opts.TypingDelayMin,
		typingMax: opts.TypingDelayMax,
		deps:      deps.withDefaults(),
	}
	if opts.Dispatcher != nil {
		s.dispatcher = opts.Dispatcher
	} else {
		s.local = NewGoroutineDispatcher(s.DeliverAutoReply, s.deps.Logger)
		s.dispatcher = s.local
	}
	return s
}

func (s *MessageService) Resource() *resource.Service[models.Message] { return s.res }

// List returns the conversation in chronological order.
func (s *MessageService) List(ctx context.Context) []models.Message {
	all := s.res.GetAll(ctx).Value
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all
}

// SendMessage stores a tenant message and schedules the automatic reply.
// It returns as soon as the tenant message is stored.
func (s *MessageService) SendMessage(ctx context.Context, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, &ValidationError{Problems: "content is required"}
	}
	if len(content) > maxMessageLength {
		return models.Message{}, &ValidationError{Problems: fmt.Sprintf("content must be at most %d characters", maxMessageLength)}
	}

	res := s.res.Create(ctx, models.Message{
		Sender:    TenantID,
		Recipient: LandlordID,
		Content:   content,
		Timestamp: s.deps.Now(),
		Read:      false,
	})
	if res.StoreErr != nil {
		return models.Message{}, storeError("send message", res.StoreErr)
	}
	sent := res.Value
	s.deps.emit(ctx, events.AggregateMessage, sent.ID, workflow.EventMessageSent, map[string]any{
		"sender":    sent.Sender,
		"recipient": sent.Recipient,
	})

	job := ReplyJob{MessageID: sent.ID, TenantID: TenantID, Content: content, Delay: s.typingDelay()}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.deps.Logger.Warn(ctx, "auto_reply_dispatch_failed", "auto reply not scheduled",
			slog.String("message_id", sent.ID),
			slog.String("error_code", "DISPATCH_FAILED"),
			slog.String("error", err.Error()),
		)
	}
	return sent, nil
}

// DeliverAutoReply stores the landlord's answer to job.Content. A store
// failure is returned so the caller can retry the job.
func (s *MessageService) DeliverAutoReply(ctx context.Context, job ReplyJob) (models.Message, error) {
	reply := s.responder.Reply(ctx, job.TenantID, job.Content)
	created, err := s.landlordMessage(ctx, reply)
	if err != nil {
		return models.Message{}, fmt.Errorf("auto reply for %s: %w", job.MessageID, err)
	}
	s.deps.emit(ctx, events.AggregateMessage, created.ID, workflow.EventMessageReplied, map[string]any{
		"in_reply_to": job.MessageID,
	})
	s.deps.notify(ctx, notify.LevelInfo, "messages", "New message from "+DefaultLandlord().Name)
	return created, nil
}

// SimulateLandlordResponse waits delay, then stores one of the landlord's
// acknowledgements.
func (s *MessageService) SimulateLandlordResponse(ctx context.Context, delay time.Duration) (models.Message, error) {
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return models.Message{}, ctx.Err()
		case <-t.C:
		}
	}
	created, err := s.landlordMessage(ctx, s.responder.Acknowledge())
	if err != nil {
		return models.Message{}, err
	}
	s.deps.emit(ctx, events.AggregateMessage, created.ID, workflow.EventMessageReplied, map[string]any{
		"simulated": true,
	})
	return created, nil
}

// GetUnreadCount counts unread messages addressed to the tenant.
func (s *MessageService) GetUnreadCount(ctx context.Context) int {
	n := 0
	for _, m := range s.res.GetAll(ctx).Value {
		if m.Recipient == TenantID && !m.Read {
			n++
		}
	}
	return n
}

// MarkAsRead flags one message as read. An unknown id reports false.
// message.read is emitted only when this call flipped the flag.
func (s *MessageService) MarkAsRead(ctx context.Context, id string) (models.Message, bool, error) {
	msg, found, _, err := s.markRead(ctx, id)
	return msg, found, err
}

// MarkAllAsRead marks every unread message to the tenant and returns how
// many this call changed.
func (s *MessageService) MarkAllAsRead(ctx context.Context) (int, error) {
	n := 0
	var errs []error
	for _, m := range s.res.GetAll(ctx).Value {
		if m.Recipient != TenantID || m.Read {
			continue
		}
		_, _, changed, err := s.markRead(ctx, m.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			n++
		}
	}
	return n, errors.Join(errs...)
}

func (s *MessageService) markRead(ctx context.Context, id string) (models.Message, bool, bool, error) {
	var changed bool
	res := s.res.Modify(ctx, id, func(m models.Message) (models.Message, bool) {
		changed = !m.Read
		m.Read = true
		return m, changed
	})
	if res.StoreErr != nil {
		return models.Message{}, res.Found, false, storeError("mark read", res.StoreErr)
	}
	if !res.Found {
		return models.Message{}, false, false, nil
	}
	if changed {
		s.deps.emit(ctx, events.AggregateMessage, id, workflow.EventMessageRead, map[string]any{})
	}
	return res.Value, true, changed, nil
}

// Wait blocks until in-process replies have been delivered. It is a no-op
// with an external dispatcher.
func (s *MessageService) Wait() {
	if s.local != nil {
		s.local.Wait()
	}
}

// Close cancels pending in-process replies and waits for running ones.
func (s *MessageService) Close() {
	if s.local != nil {
		s.local.Close()
	}
}

func (s *MessageService) landlordMessage(ctx context.Context, content string) (models.Message, error) {
	res := s.res.Create(ctx, models.Message{
		Sender:    LandlordID,
		Recipient: TenantID,
		Content:   content,
		Timestamp: s.deps.Now(),
		Read:      false,
	})
	if res.StoreErr != nil {
		return models.Message{}, storeError("landlord message", res.StoreErr)
	}
	return res.Value, nil
}

func (s *MessageService) typingDelay() time.Duration {
	spread := s.typingMax - s.typingMin
	if spread <= 0 {
		return s.typingMin
	}
	return s.typingMin + time.Duration(s.responder.Intn(int(spread/time.Millisecond)))*time.Millisecond
}
