package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

// ErrUnauthorized indicates the actor may not perform the attempted action.
var ErrUnauthorized = errors.New("order: unauthorized")

// UnauthorizedError carries the attempted action and a human-readable reason.
// It matches ErrUnauthorized under errors.Is.
type UnauthorizedError struct {
	Action string
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("order: unauthorized: %s: %s", e.Action, e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Failure reasons are stable strings; callers and tests distinguish them.
const (
	reasonProviderRoleRequired = "provider role required"
	reasonClientRoleRequired   = "client role required"
	reasonProfileNotFound      = "profile not found"
	reasonNotAssignedProvider  = "not assigned to this provider"
	reasonNotOrderParticipant  = "order does not belong to this user"
)

// OrderAccessPolicyDeps bundles collaborators for the access policy.
type OrderAccessPolicyDeps struct {
	Profiles repositories.ProviderProfileRepository
}

type orderAccessPolicy struct {
	profiles repositories.ProviderProfileRepository
}

// NewOrderAccessPolicy wires the provider-profile lookup into an access policy.
func NewOrderAccessPolicy(deps OrderAccessPolicyDeps) (OrderAccessPolicy, error) {
	if deps.Profiles == nil {
		return nil, errors.New("order access policy: provider profile repository is required")
	}
	return &orderAccessPolicy{profiles: deps.Profiles}, nil
}

func (p *orderAccessPolicy) RequireProvider(ctx context.Context, actor Actor, order Order, action string) error {
	if actor.HasRole(RoleAdmin) {
		return nil
	}
	if !actor.HasRole(RoleProvider) {
		return &UnauthorizedError{Action: action, Reason: reasonProviderRoleRequired}
	}

	profile, err := p.lookupProfile(ctx, actor.ID)
	if err != nil {
		return err
	}
	if profile == nil {
		return &UnauthorizedError{Action: action, Reason: reasonProfileNotFound}
	}
	if order.ProviderProfileID == nil || *order.ProviderProfileID != profile.ID {
		return &UnauthorizedError{Action: action, Reason: reasonNotAssignedProvider}
	}
	return nil
}

func (p *orderAccessPolicy) RequireClient(ctx context.Context, actor Actor, order Order, action string) error {
	if actor.HasRole(RoleAdmin) {
		return nil
	}
	if !actor.HasRole(RoleClient) {
		return &UnauthorizedError{Action: action, Reason: reasonClientRoleRequired}
	}
	if order.ClientID != actor.ID {
		return &UnauthorizedError{Action: action, Reason: reasonNotOrderParticipant}
	}
	return nil
}

func (p *orderAccessPolicy) RequireParticipant(ctx context.Context, actor Actor, order Order, action string) error {
	if actor.HasRole(RoleAdmin) {
		return nil
	}
	if strings.TrimSpace(actor.ID) != "" && order.ClientID == actor.ID {
		return nil
	}

	profile, err := p.lookupProfile(ctx, actor.ID)
	if err != nil {
		return err
	}
	if profile != nil && order.ProviderProfileID != nil && *order.ProviderProfileID == profile.ID {
		return nil
	}
	return &UnauthorizedError{Action: action, Reason: reasonNotOrderParticipant}
}

// lookupProfile resolves the actor's provider profile, translating a not-found
// repository error into a nil profile so callers pick the reason string.
func (p *orderAccessPolicy) lookupProfile(ctx context.Context, userID string) (*ProviderProfile, error) {
	profile, err := p.profiles.FindByUser(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}
