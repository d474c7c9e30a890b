package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/UrrutyLabs/encuentraya-sub000/internal/domain"
	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
)

const categoriesCollection = "serviceCategories"

// CategoryRepository reads service category definitions.
type CategoryRepository struct {
	base *pfirestore.BaseRepository[categoryDocument]
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[categoryDocument](provider, categoriesCollection, nil, nil)
	return &CategoryRepository{base: base}, nil
}

// FindByID fetches a single service category.
func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.ServiceCategory, error) {
	if r == nil || r.base == nil {
		return domain.ServiceCategory{}, errors.New("category repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.ServiceCategory{}, errors.New("category repository: category id is required")
	}
	doc, err := r.base.Get(ctx, categoryID)
	if err != nil {
		return domain.ServiceCategory{}, err
	}
	return domain.ServiceCategory{
		ID:              categoryID,
		Name:            strings.TrimSpace(doc.Data.Name),
		PricingMode:     domain.PricingMode(strings.TrimSpace(doc.Data.PricingMode)),
		HourlyRateMinor: doc.Data.HourlyRateMinor,
		Active:          doc.Data.Active,
		CreatedAt:       chooseTime(doc.Data.CreatedAt, doc.CreateTime),
		UpdatedAt:       chooseTime(doc.Data.UpdatedAt, doc.UpdateTime),
	}, nil
}

type categoryDocument struct {
	Name            string    `firestore:"name"`
	PricingMode     string    `firestore:"pricingMode"`
	HourlyRateMinor int64     `firestore:"hourlyRateMinor"`
	Active          bool      `firestore:"active"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}
