package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	pfirestore "github.com/UrrutyLabs/encuentraya-sub000/internal/platform/firestore"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the shared
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	orders    *OrderRepository
	lineItems *LineItemRepository
	receipts  *ReceiptRepository
	payments  *PaymentRepository
	profiles  *ProviderProfileRepository
	earnings  *EarningRepository
	cats      *CategoryRepository
	counters  *CounterRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry: firestore provider is required")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	lineItems, err := NewLineItemRepository(provider)
	if err != nil {
		return nil, err
	}
	receipts, err := NewReceiptRepository(provider)
	if err != nil {
		return nil, err
	}
	payments, err := NewPaymentRepository(provider)
	if err != nil {
		return nil, err
	}
	profiles, err := NewProviderProfileRepository(provider)
	if err != nil {
		return nil, err
	}
	earnings, err := NewEarningRepository(provider)
	if err != nil {
		return nil, err
	}
	cats, err := NewCategoryRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				client, err := provider.Client(ctx)
				if err != nil {
					return err
				}
				iter := client.Collections(ctx)
				if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  provider,
		orders:    orders,
		lineItems: lineItems,
		receipts:  receipts,
		payments:  payments,
		profiles:  profiles,
		earnings:  earnings,
		cats:      cats,
		counters:  counters,
		health:    health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository                     { return r.orders }
func (r *Registry) OrderLineItems() repositories.OrderLineItemRepository     { return r.lineItems }
func (r *Registry) Receipts() repositories.ReceiptRepository                 { return r.receipts }
func (r *Registry) Payments() repositories.PaymentRepository                 { return r.payments }
func (r *Registry) ProviderProfiles() repositories.ProviderProfileRepository { return r.profiles }
func (r *Registry) Earnings() repositories.EarningRepository                 { return r.earnings }
func (r *Registry) Categories() repositories.CategoryRepository              { return r.cats }
func (r *Registry) Counters() repositories.CounterRepository                 { return r.counters }
func (r *Registry) Health() repositories.HealthRepository                    { return r.health }

// RunInTx executes fn inside a Firestore transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry: not initialised")
	}
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}
