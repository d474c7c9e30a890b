package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UrrutyLabs/encuentraya-sub000/internal/platform/config"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/repositories"
	"github.com/UrrutyLabs/encuentraya-sub000/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders       services.OrderService
	Lifecycle    services.OrderLifecycleService
	Finalization services.OrderFinalizationService
	Pricing      services.PricingEngine
	Payments     services.PaymentService
	Earnings     services.EarningService
	Profiles     services.ProviderProfileService
	Counters     services.CounterService
	System       services.SystemService
}

// ContainerDeps carries the externally constructed collaborators the services need.
type ContainerDeps struct {
	Registry repositories.Registry
	Gateway  services.PaymentGateway
	Build    services.BuildInfo
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore registry and Stripe gateway, while tests can supply in-memory fakes.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, deps ContainerDeps) (Services, error) {
	var svc Services
	reg := deps.Registry

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Rates: services.PricingRates{
			PlatformFeeRate: cfg.Pricing.PlatformFeeRate,
			TaxRate:         cfg.Pricing.TaxRate,
			TaxScheme:       cfg.Pricing.TaxScheme,
			TaxRegion:       cfg.Pricing.TaxRegion,
			TaxInclusive:    cfg.Pricing.TaxInclusive,
		},
		Currency: cfg.Pricing.Currency,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing engine: %w", err)
	}
	svc.Pricing = pricingEngine

	profileSvc, err := services.NewProviderProfileService(services.ProviderProfileServiceDeps{
		Profiles: reg.ProviderProfiles(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build provider profile service: %w", err)
	}
	svc.Profiles = profileSvc

	accessPolicy, err := services.NewOrderAccessPolicy(services.OrderAccessPolicyDeps{
		Profiles: reg.ProviderProfiles(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order access policy: %w", err)
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Categories: reg.Categories(),
		Profiles:   reg.ProviderProfiles(),
		Counters:   counterSvc,
		UnitOfWork: reg,
		Currency:   cfg.Pricing.Currency,
		Clock:      time.Now,
		Logger:     deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Payments: reg.Payments(),
		Gateway:  deps.Gateway,
		Clock:    time.Now,
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	lifecycleSvc, err := services.NewOrderLifecycleService(services.OrderLifecycleServiceDeps{
		Orders:           reg.Orders(),
		Payments:         reg.Payments(),
		Access:           accessPolicy,
		UnitOfWork:       reg,
		MaxWorkProofURLs: cfg.Orders.MaxWorkProofURLs,
		Clock:            time.Now,
		Logger:           deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order lifecycle service: %w", err)
	}
	svc.Lifecycle = lifecycleSvc

	earningSvc, err := services.NewEarningService(services.EarningServiceDeps{
		Earnings:          reg.Earnings(),
		Orders:            reg.Orders(),
		LineItems:         reg.OrderLineItems(),
		AvailabilityDelay: cfg.Earnings.AvailabilityDelay,
		Clock:             time.Now,
		Logger:            deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build earning service: %w", err)
	}
	svc.Earnings = earningSvc

	finalizationSvc, err := services.NewOrderFinalizationService(services.OrderFinalizationServiceDeps{
		Orders:     reg.Orders(),
		LineItems:  reg.OrderLineItems(),
		Receipts:   reg.Receipts(),
		Payments:   paymentSvc,
		Earnings:   earningSvc,
		Pricing:    pricingEngine,
		UnitOfWork: reg,
		Clock:      time.Now,
		Logger:     deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order finalization service: %w", err)
	}
	svc.Finalization = finalizationSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            time.Now,
		Build:            deps.Build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
