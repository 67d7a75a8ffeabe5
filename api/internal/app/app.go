// Package app assembles a tenant portal from configuration. Every binary
// builds the same graph; only the reply dispatcher differs.
package app

import (
	"context"
	"log/slog"
	"time"

	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/remote"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/api/internal/responder"
	"renttalk-tenant-portal/api/internal/services"
	"renttalk-tenant-portal/api/internal/store"
	"renttalk-tenant-portal/shared/clients/assistant"
	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/influxx"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/mqx"
)

type Options struct {
	// Dispatcher overrides the in-process auto reply goroutines.
	Dispatcher services.ReplyDispatcher
	// Quiet drops the log sinks for events and notifications.
	Quiet bool
}

type App struct {
	Config   config.Config
	Log      logx.Logger
	Store    *store.Handle
	Portal   *services.Portal
	Notifier notify.Notifier
	Events   *events.Async

	closers []func()
}

func Build(ctx context.Context, cfg config.Config, log logx.Logger, opts Options) (*App, error) {
	handle, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, Store: handle}
	a.closers = append(a.closers, handle.Close)

	sinks := events.Multi{}
	if !opts.Quiet {
		sinks = append(sinks, events.LogPublisher{Logger: log})
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := mqx.NewProducer(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = producer.Close() })
		sinks = append(sinks, mqx.EventPublisher{Producer: producer, Topic: cfg.DomainEventsTopic})
	}
	if cfg.InfluxURL != "" {
		influx, err := influxx.New(cfg)
		if err != nil {
			log.Warn(ctx, "influx_init_failed", "activity points disabled",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		} else {
			a.closers = append(a.closers, influx.Close)
			sinks = append(sinks, influx)
		}
	}
	a.Events = &events.Async{Next: sinks, Logger: log, Sink: "domain_events"}
	// Registered after the sinks so pending publishes drain before they close.
	a.closers = append(a.closers, a.Events.Wait)

	notifiers := notify.Multi{}
	if !opts.Quiet {
		notifiers = append(notifiers, notify.LogNotifier{Logger: log})
	}
	if handle.Redis != nil {
		notifiers = append(notifiers, notify.RedisNotifier{Client: handle.Redis, Channel: cfg.NotificationsChannel, Logger: log})
	}
	a.Notifier = notifiers

	var asst responder.Assistant
	if cfg.AssistantURL != "" {
		client, err := assistant.New(cfg)
		if err != nil {
			log.Warn(ctx, "assistant_init_failed", "rule based replies only",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		} else {
			asst = client
		}
	}

	resOpts := resource.Options{Mode: cfg.APIMode, Delays: resource.DelaysFor(cfg)}
	if cfg.APIMode == config.APIModeRemote {
		client, err := remote.NewClient(cfg.APIBaseURL, time.Duration(cfg.RemoteTimeoutMS)*time.Millisecond)
		if err != nil {
			a.Close()
			return nil, err
		}
		resOpts.Remote = client
	}

	a.Portal = services.NewPortal(services.PortalOptions{
		Backend:   handle.Backend,
		Locker:    handle.Locker,
		Resource:  resOpts,
		Responder: responder.New(uint64(time.Now().UnixNano()), asst, log),
		Deps: services.Deps{
			Events:   a.Events,
			Notifier: a.Notifier,
			Logger:   log,
		},
		Messages: services.MessageOptions{
			TypingDelayMin: time.Duration(cfg.TypingDelayMinMS) * time.Millisecond,
			TypingDelayMax: time.Duration(cfg.TypingDelayMaxMS) * time.Millisecond,
			Dispatcher:     opts.Dispatcher,
		},
		FuturePayments: cfg.FuturePaymentsDefault,
	})
	a.closers = append(a.closers, a.Portal.Close)
	return a, nil
}

// Close stops pending replies, drains events and releases connections in
// reverse build order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
