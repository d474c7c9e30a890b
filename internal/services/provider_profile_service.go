package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

var (
	// ErrProfileInvalidInput indicates missing or malformed lookup parameters.
	ErrProfileInvalidInput = errors.New("profile: invalid input")
	// ErrProfileNotFound indicates no provider profile matches the lookup.
	ErrProfileNotFound = errors.New("profile: not found")
)

// ProviderProfileServiceDeps bundles collaborators for the profile service.
type ProviderProfileServiceDeps struct {
	Profiles repositories.ProviderProfileRepository
}

type providerProfileService struct {
	profiles repositories.ProviderProfileRepository
}

var _ ProviderProfileService = (*providerProfileService)(nil)

// NewProviderProfileService wires the profile repository into read operations.
func NewProviderProfileService(deps ProviderProfileServiceDeps) (ProviderProfileService, error) {
	if deps.Profiles == nil {
		return nil, errors.New("provider profile service: profile repository is required")
	}
	return &providerProfileService{profiles: deps.Profiles}, nil
}

func (s *providerProfileService) GetByID(ctx context.Context, profileID string) (ProviderProfile, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return ProviderProfile{}, fmt.Errorf("%w: profile id is required", ErrProfileInvalidInput)
	}

	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return ProviderProfile{}, mapProfileRepositoryError(err)
	}
	return profile, nil
}

func (s *providerProfileService) GetByUser(ctx context.Context, userID string) (ProviderProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ProviderProfile{}, fmt.Errorf("%w: user id is required", ErrProfileInvalidInput)
	}

	profile, err := s.profiles.FindByUser(ctx, userID)
	if err != nil {
		return ProviderProfile{}, mapProfileRepositoryError(err)
	}
	return profile, nil
}

func mapProfileRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrProfileNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("profile: repository unavailable: %w", err)
		}
	}
	return err
}
