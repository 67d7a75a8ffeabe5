package services

import (
	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/api/internal/responder"
	"renttalk-tenant-portal/api/internal/store"
)

type PortalOptions struct {
	Backend        store.Backend
	Locker         store.Locker
	Resource       resource.Options
	Responder      *responder.Responder
	Deps           Deps
	Messages       MessageOptions
	FuturePayments int
}

// NewPortal builds one resource service per record type over a shared
// backend and locker, and the domain services on top of them.
func NewPortal(opts PortalOptions) *Portal {
	if opts.Locker == nil {
		opts.Locker = store.NewLocalLocker()
	}
	deps := opts.Deps.withDefaults()
	opts.Resource.Logger = deps.Logger
	resp := opts.Responder
	if resp == nil {
		resp = responder.New(uint64(deps.Now().UnixNano()), nil, deps.Logger)
	}

	maintenance := resource.New(store.New[models.MaintenanceRequest](ResourceMaintenanceRequests, opts.Backend, opts.Locker, deps.Logger), opts.Resource)
	messages := resource.New(store.New[models.Message](ResourceMessages, opts.Backend, opts.Locker, deps.Logger), opts.Resource)
	payments := resource.New(store.New[models.Payment](ResourcePayments, opts.Backend, opts.Locker, deps.Logger), opts.Resource)

	return &Portal{
		Maintenance: NewMaintenanceService(maintenance, deps),
		Messages:    NewMessageService(messages, resp, deps, opts.Messages),
		Payments:    NewPaymentService(payments, deps, opts.FuturePayments),
		Profiles:    NewProfileService(opts.Backend, deps),
	}
}

func (p *Portal) Close() {
	p.Messages.Close()
}
