// File: internal/application/runtime.go
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/domain/ports/repository"
	"telegram-pix-commerce/internal/infra/i18n"
	"telegram-pix-commerce/internal/infra/logging"
	"telegram-pix-commerce/internal/infra/metrics"
	"telegram-pix-commerce/internal/usecase"
)

// TransportRunner is a Transport that also owns its inbound event loop.
type TransportRunner interface {
	adapter.Transport
	// Run polls the transport and routes decoded events into the handler,
	// keeping per-chat arrival order. Blocks until ctx is done.
	Run(ctx context.Context, h EventHandler) error
}

// Factories let the runtime build per-tenant collaborators without depending
// on concrete infra packages.
type (
	TransportFactory func(tenant *model.TenantConfig) (TransportRunner, error)
	GatewayFactory   func(tenant *model.TenantConfig) (adapter.PaymentGateway, error)
	SessionsFactory  func() repository.SessionStore
	// WorkerFactory builds the per-tenant payment reconciler (nil disables it).
	WorkerFactory func(tenant *model.TenantConfig, orch usecase.PaymentOrchestrator, notifier ApprovalNotifier) Worker
)

// Worker is a long-running per-tenant background task.
type Worker interface {
	Run(ctx context.Context) error
}

// ApprovalNotifier is how background confirmation reaches the buyer's chat.
type ApprovalNotifier interface {
	NotifyApproved(ctx context.Context, chatID int64, res *usecase.GrantResult) error
}

type tenantInstance struct {
	cfg        *model.TenantConfig
	controller *Controller
	state      model.TenantState
	detail     string
}

// Runtime owns the tenant bot instances: one transport connection, catalog
// snapshot, controller, and orchestrator per tenant. A tenant that fails to
// start is recorded as failed and never blocks the others.
type Runtime struct {
	catalogUC  usecase.CatalogUseCase
	payments   repository.PaymentRepository
	qr         adapter.QRRenderer
	tr         *i18n.Translator
	transports TransportFactory
	gateways   GatewayFactory
	sessions   SessionsFactory
	workers    WorkerFactory
	log        *zerolog.Logger

	mu        sync.RWMutex
	instances map[int64]*tenantInstance
	startedAt time.Time
}

func NewRuntime(
	catalogUC usecase.CatalogUseCase,
	payments repository.PaymentRepository,
	qr adapter.QRRenderer,
	tr *i18n.Translator,
	transports TransportFactory,
	gateways GatewayFactory,
	sessions SessionsFactory,
	workers WorkerFactory,
	logger *zerolog.Logger,
) *Runtime {
	l := logger.With().Str("component", "Runtime").Logger()
	return &Runtime{
		catalogUC:  catalogUC,
		payments:   payments,
		qr:         qr,
		tr:         tr,
		transports: transports,
		gateways:   gateways,
		sessions:   sessions,
		workers:    workers,
		log:        &l,
		instances:  make(map[int64]*tenantInstance),
	}
}

// Start brings up every tenant, isolating per-tenant failures.
func (r *Runtime) Start(ctx context.Context, tenants []*model.TenantConfig) {
	r.mu.Lock()
	r.startedAt = time.Now()
	r.mu.Unlock()

	running := 0
	for _, t := range tenants {
		if err := r.startTenant(ctx, t); err != nil {
			r.log.Error().Err(err).Int64("tenant_id", t.ID).Msg("tenant startup failed, skipping")
			r.setState(t, model.TenantStateFailed, err.Error())
			continue
		}
		running++
	}
	metrics.SetTenantsRunning(running)
	r.log.Info().Int("running", running).Int("configured", len(tenants)).Msg("runtime started")
}

func (r *Runtime) startTenant(ctx context.Context, t *model.TenantConfig) error {
	if t.Token == "" {
		return fmt.Errorf("tenant %d has no transport token: %w", t.ID, domain.ErrTenantStartup)
	}

	catalog, err := r.catalogUC.Load(ctx, t.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Sellable-nothing is a valid tenant; the menu just comes up empty.
		catalog = model.NewGroupedCatalog(t.ID, nil)
	case err != nil:
		return fmt.Errorf("load catalog: %v: %w", err, domain.ErrTenantStartup)
	}

	transport, err := r.transports(t)
	if err != nil {
		return fmt.Errorf("open transport: %v: %w", err, domain.ErrTenantStartup)
	}

	gateway, err := r.gateways(t)
	if err != nil {
		return fmt.Errorf("bind payment gateway: %v: %w", err, domain.ErrTenantStartup)
	}

	granter := NewInviteGranter(t, transport)
	orch := usecase.NewPaymentOrchestrator(t, catalog, r.payments, gateway, granter, r.log)
	ctrl := NewController(t, catalog, r.sessions(), orch, transport, r.qr, r.tr, r.log)

	inst := &tenantInstance{cfg: t, controller: ctrl, state: model.TenantStateRunning}
	r.mu.Lock()
	r.instances[t.ID] = inst
	r.mu.Unlock()

	// Everything running on behalf of this tenant logs with its id attached.
	tctx := logging.WithTenantID(ctx, t.ID)

	go func() {
		if err := transport.Run(tctx, ctrl); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error().Err(err).Int64("tenant_id", t.ID).Msg("transport loop stopped")
			r.setState(t, model.TenantStateFailed, err.Error())
		} else {
			r.setState(t, model.TenantStateStopped, "")
		}
	}()

	if r.workers != nil {
		if w := r.workers(t, orch, ctrl); w != nil {
			go func() { _ = w.Run(tctx) }()
		}
	}
	return nil
}

func (r *Runtime) setState(t *model.TenantConfig, state model.TenantState, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[t.ID]
	if !ok {
		inst = &tenantInstance{cfg: t}
		r.instances[t.ID] = inst
	}
	inst.state = state
	inst.detail = detail
}

// Status reports each tenant's run state for the health probe.
func (r *Runtime) Status() []model.TenantStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.TenantStatus, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, model.TenantStatus{TenantID: inst.cfg.ID, State: inst.state, Detail: inst.detail})
	}
	return out
}

// Uptime is how long the runtime has been up.
func (r *Runtime) Uptime() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.startedAt.IsZero() {
		return 0
	}
	return time.Since(r.startedAt)
}
