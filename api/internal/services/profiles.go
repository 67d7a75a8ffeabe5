package services

import (
	"context"
	"strings"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/store"
	"renttalk-tenant-portal/shared/validatex"
)

// ProfileUpdate holds the settings a tenant may change.
type ProfileUpdate struct {
	Name   string `json:"name" validate:"notblank,max=100"`
	Email  string `json:"email" validate:"required,email"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,url"`
	Phone  string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// ProfileService keeps the tenant and landlord profiles, each as one
// document. Missing documents read as the defaults.
type ProfileService struct {
	tenant   *store.Document[models.Profile]
	landlord *store.Document[models.Profile]
	deps     Deps
}

func NewProfileService(backend store.Backend, deps Deps) *ProfileService {
	deps = deps.withDefaults()
	return &ProfileService{
		tenant:   store.NewDocument[models.Profile]("current_user", backend, deps.Logger),
		landlord: store.NewDocument[models.Profile]("landlord", backend, deps.Logger),
		deps:     deps,
	}
}

func (s *ProfileService) Tenant(ctx context.Context) models.Profile {
	if p, ok := s.tenant.Load(ctx); ok {
		return p
	}
	return DefaultTenant()
}

func (s *ProfileService) Landlord(ctx context.Context) models.Profile {
	if p, ok := s.landlord.Load(ctx); ok {
		return p
	}
	return DefaultLandlord()
}

// UpdateTenant overwrites the editable fields of the tenant profile.
func (s *ProfileService) UpdateTenant(ctx context.Context, in ProfileUpdate) (models.Profile, error) {
	if err := validatex.Struct(in); err != nil {
		return models.Profile{}, &ValidationError{Problems: validatex.Problems(err)}
	}
	p := s.Tenant(ctx)
	p.Name = strings.TrimSpace(in.Name)
	p.Email = strings.TrimSpace(in.Email)
	if in.Avatar != "" {
		p.Avatar = in.Avatar
	}
	if in.Phone != "" {
		p.Phone = in.Phone
	}
	if err := s.tenant.Save(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func (s *ProfileService) Seed(ctx context.Context) error {
	if _, err := s.tenant.SaveIfAbsent(ctx, DefaultTenant()); err != nil {
		return err
	}
	_, err := s.landlord.SaveIfAbsent(ctx, DefaultLandlord())
	return err
}
