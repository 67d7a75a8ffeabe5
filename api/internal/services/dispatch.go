package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/shared/logx"
)

// GoroutineDispatcher runs reply jobs on background goroutines of this
// process. Pending jobs are lost on exit.
type GoroutineDispatcher struct {
	handle func(context.Context, ReplyJob) (models.Message, error)
	log    logx.Logger
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGoroutineDispatcher(handle func(context.Context, ReplyJob) (models.Message, error), log logx.Logger) *GoroutineDispatcher {
	base, cancel := context.WithCancel(context.Background())
	return &GoroutineDispatcher{handle: handle, log: log, base: base, cancel: cancel}
}

// Dispatch never blocks on the job. The caller's context only contributes
// its values; cancelling it does not stop the reply.
func (d *GoroutineDispatcher) Dispatch(ctx context.Context, job ReplyJob) error {
	if err := d.base.Err(); err != nil {
		return err
	}
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(d.base, cancel)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer stop()
		defer cancel()
		if job.Delay > 0 {
			t := time.NewTimer(job.Delay)
			defer t.Stop()
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
			}
		}
		if _, err := d.handle(jobCtx, job); err != nil {
			d.log.Warn(jobCtx, "auto_reply_failed", "auto reply failed",
				slog.String("message_id", job.MessageID),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

func (d *GoroutineDispatcher) Wait() {
	d.wg.Wait()
}

func (d *GoroutineDispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
