//go:build !integration

package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-pix-commerce/internal/application"
	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/domain/ports/repository"
	"telegram-pix-commerce/internal/infra/memory"
	"telegram-pix-commerce/internal/usecase"
)

type mockCatalogUC struct {
	LoadFunc func(ctx context.Context, tenantID int64) (*model.GroupedCatalog, error)
}

func (m *mockCatalogUC) Load(ctx context.Context, tenantID int64) (*model.GroupedCatalog, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, tenantID)
	}
	return nil, domain.ErrNotFound
}

type mockPayments struct {
	repository.PaymentRepository
}

func newRuntime(catalog usecase.CatalogUseCase, transports application.TransportFactory, gateways application.GatewayFactory) *application.Runtime {
	if gateways == nil {
		gateways = func(t *model.TenantConfig) (adapter.PaymentGateway, error) {
			return &noopGateway{}, nil
		}
	}
	return application.NewRuntime(
		catalog,
		&mockPayments{},
		&MockQR{},
		nil,
		transports,
		gateways,
		func() repository.SessionStore { return memory.NewSessionStore() },
		nil,
		newTestLogger(),
	)
}

type noopGateway struct{}

func (noopGateway) Name() string { return "noop" }
func (noopGateway) CreateCharge(ctx context.Context, req adapter.CreateChargeRequest) (adapter.ChargeInfo, error) {
	return adapter.ChargeInfo{}, errors.New("noop")
}
func (noopGateway) GetCharge(ctx context.Context, id int64) (adapter.ChargeInfo, error) {
	return adapter.ChargeInfo{}, errors.New("noop")
}

func stateOf(statuses []model.TenantStatus, id int64) model.TenantState {
	for _, s := range statuses {
		if s.TenantID == id {
			return s.State
		}
	}
	return ""
}

func TestRuntime_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("one failing tenant never blocks the others", func(t *testing.T) {
		transports := func(tc *model.TenantConfig) (application.TransportRunner, error) {
			if tc.ID == 2 {
				return nil, errors.New("bad token")
			}
			return &MockRunner{}, nil
		}
		rt := newRuntime(&mockCatalogUC{}, transports, nil)

		rt.Start(ctx, []*model.TenantConfig{
			{ID: 1, Token: "tok-1"},
			{ID: 2, Token: "tok-2"},
		})

		statuses := rt.Status()
		if got := stateOf(statuses, 1); got != model.TenantStateRunning {
			t.Errorf("tenant 1: expected running, got %s", got)
		}
		if got := stateOf(statuses, 2); got != model.TenantStateFailed {
			t.Errorf("tenant 2: expected failed, got %s", got)
		}
	})

	t.Run("a tenant without a token is recorded as failed", func(t *testing.T) {
		rt := newRuntime(&mockCatalogUC{}, func(tc *model.TenantConfig) (application.TransportRunner, error) {
			return &MockRunner{}, nil
		}, nil)

		rt.Start(ctx, []*model.TenantConfig{{ID: 3}})

		if got := stateOf(rt.Status(), 3); got != model.TenantStateFailed {
			t.Errorf("expected failed, got %s", got)
		}
	})

	t.Run("an empty catalog is a valid tenant", func(t *testing.T) {
		catalog := &mockCatalogUC{} // default Load reports ErrNotFound
		rt := newRuntime(catalog, func(tc *model.TenantConfig) (application.TransportRunner, error) {
			return &MockRunner{}, nil
		}, nil)

		rt.Start(ctx, []*model.TenantConfig{{ID: 4, Token: "tok"}})

		if got := stateOf(rt.Status(), 4); got != model.TenantStateRunning {
			t.Errorf("expected running, got %s", got)
		}
	})

	t.Run("a broken catalog source fails the tenant", func(t *testing.T) {
		catalog := &mockCatalogUC{LoadFunc: func(ctx context.Context, tenantID int64) (*model.GroupedCatalog, error) {
			return nil, domain.ErrOperationFailed
		}}
		rt := newRuntime(catalog, func(tc *model.TenantConfig) (application.TransportRunner, error) {
			return &MockRunner{}, nil
		}, nil)

		rt.Start(ctx, []*model.TenantConfig{{ID: 5, Token: "tok"}})

		if got := stateOf(rt.Status(), 5); got != model.TenantStateFailed {
			t.Errorf("expected failed, got %s", got)
		}
	})

	t.Run("a gateway binding failure fails the tenant", func(t *testing.T) {
		gateways := func(tc *model.TenantConfig) (adapter.PaymentGateway, error) {
			return nil, errors.New("missing credential")
		}
		rt := newRuntime(&mockCatalogUC{}, func(tc *model.TenantConfig) (application.TransportRunner, error) {
			return &MockRunner{}, nil
		}, gateways)

		rt.Start(ctx, []*model.TenantConfig{{ID: 6, Token: "tok"}})

		if got := stateOf(rt.Status(), 6); got != model.TenantStateFailed {
			t.Errorf("expected failed, got %s", got)
		}
	})

	t.Run("uptime runs from start", func(t *testing.T) {
		rt := newRuntime(&mockCatalogUC{}, func(tc *model.TenantConfig) (application.TransportRunner, error) {
			return &MockRunner{}, nil
		}, nil)
		if rt.Uptime() != 0 {
			t.Error("expected zero uptime before start")
		}

		rt.Start(ctx, nil)
		time.Sleep(2 * time.Millisecond)
		if rt.Uptime() <= 0 {
			t.Error("expected positive uptime after start")
		}
	})
}
