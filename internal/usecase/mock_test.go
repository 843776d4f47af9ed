//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Repositories
// =============================

// MockPaymentRepo is an in-memory ledger. Per-method Func fields override the
// default behavior for failure-path tests.
type MockPaymentRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*model.PaymentRequest

	SaveFunc                 func(ctx context.Context, p *model.PaymentRequest) error
	FindLatestFunc           func(ctx context.Context, subscriberID, tenantID, productID int64) (*model.PaymentRequest, error)
	ListApprovedFunc         func(ctx context.Context, subscriberID, tenantID, productID int64) ([]*model.PaymentRequest, error)
	ActivateFunc             func(ctx context.Context, ledgerID int64, status model.PaymentStatus, expireAt *time.Time) (bool, error)
	UpdateStatusFunc         func(ctx context.Context, ledgerID int64, status model.PaymentStatus) error
	ListPendingOlderThanFunc func(ctx context.Context, tenantID int64, cutoff time.Time, limit int) ([]*model.PaymentRequest, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo { return &MockPaymentRepo{} }

func (m *MockPaymentRepo) Save(ctx context.Context, p *model.PaymentRequest) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *MockPaymentRepo) FindLatest(ctx context.Context, subscriberID, tenantID, productID int64) (*model.PaymentRequest, error) {
	if m.FindLatestFunc != nil {
		return m.FindLatestFunc(ctx, subscriberID, tenantID, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.PaymentRequest
	for _, r := range m.rows {
		if r.SubscriberID != subscriberID || r.TenantID != tenantID || r.ProductID != productID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockPaymentRepo) ListApproved(ctx context.Context, subscriberID, tenantID, productID int64) ([]*model.PaymentRequest, error) {
	if m.ListApprovedFunc != nil {
		return m.ListApprovedFunc(ctx, subscriberID, tenantID, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentRequest
	for _, r := range m.rows {
		if r.SubscriberID == subscriberID && r.TenantID == tenantID && r.ProductID == productID && r.Status == model.PaymentStatusApproved {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) Activate(ctx context.Context, ledgerID int64, status model.PaymentStatus, expireAt *time.Time) (bool, error) {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, ledgerID, status, expireAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID != ledgerID {
			continue
		}
		if r.ExpireAt != nil || r.Status == model.PaymentStatusApproved {
			return false, nil
		}
		r.Status = status
		r.ExpireAt = expireAt
		return true, nil
	}
	return false, nil
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, ledgerID int64, status model.PaymentStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, ledgerID, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == ledgerID {
			r.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tenantID int64, cutoff time.Time, limit int) ([]*model.PaymentRequest, error) {
	if m.ListPendingOlderThanFunc != nil {
		return m.ListPendingOlderThanFunc(ctx, tenantID, cutoff, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentRequest
	for _, r := range m.rows {
		if len(out) >= limit {
			break
		}
		if r.TenantID == tenantID && r.Status == model.PaymentStatusPending && r.CreatedAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Row returns a copy of the stored ledger row, for assertions.
func (m *MockPaymentRepo) Row(ledgerID int64) (model.PaymentRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == ledgerID {
			return *r, true
		}
	}
	return model.PaymentRequest{}, false
}

func (m *MockPaymentRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---- Mock ProductRepository ----

type MockProductRepo struct {
	Products []*model.Product

	ListByTenantFunc func(ctx context.Context, tenantID int64) ([]*model.Product, error)
}

var _ repository.ProductRepository = (*MockProductRepo)(nil)

func (m *MockProductRepo) ListByTenant(ctx context.Context, tenantID int64) ([]*model.Product, error) {
	if m.ListByTenantFunc != nil {
		return m.ListByTenantFunc(ctx, tenantID)
	}
	var out []*model.Product
	for _, p := range m.Products {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu      sync.Mutex
	Created []adapter.CreateChargeRequest

	CreateChargeFunc func(ctx context.Context, req adapter.CreateChargeRequest) (adapter.ChargeInfo, error)
	GetChargeFunc    func(ctx context.Context, id int64) (adapter.ChargeInfo, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, req adapter.CreateChargeRequest) (adapter.ChargeInfo, error) {
	m.mu.Lock()
	m.Created = append(m.Created, req)
	n := len(m.Created)
	m.mu.Unlock()
	if m.CreateChargeFunc != nil {
		return m.CreateChargeFunc(ctx, req)
	}
	return adapter.ChargeInfo{ID: int64(1000 + n), Status: "pending", RedeemCode: "pix-code"}, nil
}

func (m *MockPaymentGateway) GetCharge(ctx context.Context, id int64) (adapter.ChargeInfo, error) {
	if m.GetChargeFunc != nil {
		return m.GetChargeFunc(ctx, id)
	}
	return adapter.ChargeInfo{ID: id, Status: "pending"}, nil
}

func (m *MockPaymentGateway) CreatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

// ---- Mock AccessGranter ----

type MockGranter struct {
	mu     sync.Mutex
	Grants []int64 // chat ids granted

	GrantFunc func(ctx context.Context, chatID int64, product *model.Product) (adapter.GrantPayload, error)
}

var _ adapter.AccessGranter = (*MockGranter)(nil)

func (m *MockGranter) Grant(ctx context.Context, chatID int64, product *model.Product) (adapter.GrantPayload, error) {
	m.mu.Lock()
	m.Grants = append(m.Grants, chatID)
	m.mu.Unlock()
	if m.GrantFunc != nil {
		return m.GrantFunc(ctx, chatID, product)
	}
	return adapter.GrantPayload{Type: product.Type, InviteLink: "https://t.me/+invite"}, nil
}
