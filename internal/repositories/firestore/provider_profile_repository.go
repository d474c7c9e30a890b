package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
)

const providerProfilesCollection = "providerProfiles"

// ProviderProfileRepository resolves provider identities stored in Firestore.
type ProviderProfileRepository struct {
	base *pfirestore.BaseRepository[providerProfileDocument]
}

// NewProviderProfileRepository constructs a Firestore-backed provider profile repository.
func NewProviderProfileRepository(provider *pfirestore.Provider) (*ProviderProfileRepository, error) {
	if provider == nil {
		return nil, errors.New("provider profile repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[providerProfileDocument](provider, providerProfilesCollection, nil, nil)
	return &ProviderProfileRepository{base: base}, nil
}

// FindByID fetches a provider profile.
func (r *ProviderProfileRepository) FindByID(ctx context.Context, profileID string) (domain.ProviderProfile, error) {
	if r == nil || r.base == nil {
		return domain.ProviderProfile{}, errors.New("provider profile repository not initialised")
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return domain.ProviderProfile{}, errors.New("provider profile repository: profile id is required")
	}
	doc, err := r.base.Get(ctx, profileID)
	if err != nil {
		return domain.ProviderProfile{}, err
	}
	return decodeProviderProfileDocument(profileID, doc.Data), nil
}

// FindByUser resolves the provider profile belonging to a platform user.
func (r *ProviderProfileRepository) FindByUser(ctx context.Context, userID string) (domain.ProviderProfile, error) {
	if r == nil || r.base == nil {
		return domain.ProviderProfile{}, errors.New("provider profile repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ProviderProfile{}, errors.New("provider profile repository: user id is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).Limit(1)
	})
	if err != nil {
		return domain.ProviderProfile{}, err
	}
	if len(docs) == 0 {
		return domain.ProviderProfile{}, pfirestore.WrapError("provider_profiles.find_by_user", status.Error(codes.NotFound, "provider profile not found"))
	}
	return decodeProviderProfileDocument(docs[0].ID, docs[0].Data), nil
}

type providerProfileDocument struct {
	UserID      string    `firestore:"userId"`
	DisplayName string    `firestore:"displayName"`
	Active      bool      `firestore:"active"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

func decodeProviderProfileDocument(id string, doc providerProfileDocument) domain.ProviderProfile {
	return domain.ProviderProfile{
		ID:          strings.TrimSpace(id),
		UserID:      strings.TrimSpace(doc.UserID),
		DisplayName: strings.TrimSpace(doc.DisplayName),
		Active:      doc.Active,
		CreatedAt:   doc.CreatedAt.UTC(),
	}
}
