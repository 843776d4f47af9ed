// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/domain/ports/repository"
	"telegram-pix-commerce/internal/infra/metrics"
)

// Compile-time check
var _ PaymentOrchestrator = (*paymentUC)(nil)

// GrantOutcome is the result class of a confirmation check.
type GrantOutcome string

const (
	GrantApproved GrantOutcome = "approved"
	GrantPending  GrantOutcome = "pending"
)

// GrantResult carries the confirmation outcome and, when approved, the
// deliverable the controller renders to the buyer.
type GrantResult struct {
	Outcome GrantOutcome
	Payment *model.PaymentRequest
	Product *model.Product
	Grant   adapter.GrantPayload
}

// PaymentOrchestrator owns the payment lifecycle of one tenant: charge
// creation, confirmation polling, expiration arithmetic, and grant issuance.
type PaymentOrchestrator interface {
	// CreatePayment opens a charge at the gateway with a per-call idempotency
	// token and persists the resulting ledger row. On a gateway failure no
	// ledger row exists.
	CreatePayment(ctx context.Context, subscriberID, chatID int64, product *model.Product, buyerEmail string) (*model.PaymentRequest, error)

	// CheckAndGrant fetches the latest payment for the subscriber/product
	// tuple and, when the gateway reports it approved, activates the plan
	// (at most once per payment) and issues the access grant.
	// Returns domain.ErrNotFound when the tuple has no payments.
	CheckAndGrant(ctx context.Context, subscriberID, chatID, productID int64) (*GrantResult, error)

	// LatestPayment returns the newest ledger row for the tuple, or
	// domain.ErrNotFound.
	LatestPayment(ctx context.Context, subscriberID, productID int64) (*model.PaymentRequest, error)

	// IsExpired reports whether the subscriber's access to the product has
	// lapsed. With no recorded expiration it reports false: access stays
	// open. That fail-open default is deliberate policy.
	IsExpired(ctx context.Context, subscriberID, productID int64) (bool, error)
}

type paymentUC struct {
	tenant   *model.TenantConfig
	catalog  *model.GroupedCatalog
	payments repository.PaymentRepository
	gateway  adapter.PaymentGateway
	granter  adapter.AccessGranter
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentOrchestrator(
	tenant *model.TenantConfig,
	catalog *model.GroupedCatalog,
	payments repository.PaymentRepository,
	gateway adapter.PaymentGateway,
	granter adapter.AccessGranter,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentOrchestrator").Int64("tenant_id", tenant.ID).Logger()
	return &paymentUC{
		tenant:   tenant,
		catalog:  catalog,
		payments: payments,
		gateway:  gateway,
		granter:  granter,
		log:      &l,
		now:      time.Now,
	}
}

func (u *paymentUC) CreatePayment(ctx context.Context, subscriberID, chatID int64, product *model.Product, buyerEmail string) (*model.PaymentRequest, error) {
	if product.IsZero() || buyerEmail == "" {
		return nil, fmt.Errorf("charge needs a product and a buyer email: %w", domain.ErrValidation)
	}

	info, err := u.gateway.CreateCharge(ctx, adapter.CreateChargeRequest{
		Amount:         product.Price,
		Description:    product.Name,
		BuyerEmail:     buyerEmail,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		metrics.IncGatewayError(u.tenant.ID, "create")
		return nil, fmt.Errorf("create charge: %v: %w", err, domain.ErrGateway)
	}
	if info.ID == 0 {
		metrics.IncGatewayError(u.tenant.ID, "create")
		return nil, fmt.Errorf("create charge: provider returned no id: %w", domain.ErrGateway)
	}

	p := &model.PaymentRequest{
		GatewayID:    info.ID,
		SubscriberID: subscriberID,
		ChatID:       chatID,
		TenantID:     u.tenant.ID,
		ProductID:    product.ID,
		BuyerEmail:   buyerEmail,
		Amount:       product.Price,
		Status:       model.PaymentStatusPending,
		RedeemCode:   info.RedeemCode,
		CreatedAt:    u.now(),
	}
	if err := u.payments.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("persist payment: %w", err)
	}
	metrics.IncPaymentCreated(u.tenant.ID)
	u.log.Info().Int64("gateway_id", p.GatewayID).Int64("product_id", product.ID).Msg("payment created")
	return p, nil
}

func (u *paymentUC) CheckAndGrant(ctx context.Context, subscriberID, chatID, productID int64) (*GrantResult, error) {
	p, err := u.payments.FindLatest(ctx, subscriberID, u.tenant.ID, productID)
	if err != nil {
		return nil, err
	}

	info, err := u.gateway.GetCharge(ctx, p.GatewayID)
	if err != nil {
		metrics.IncGatewayError(u.tenant.ID, "get")
		return nil, fmt.Errorf("get charge %d: %v: %w", p.GatewayID, err, domain.ErrGateway)
	}
	status := model.ParsePaymentStatus(info.Status)
	if info.RedeemCode != "" {
		p.RedeemCode = info.RedeemCode
	}

	if status != model.PaymentStatusApproved {
		if status == model.PaymentStatusRejected && p.Status != status {
			if err := u.payments.UpdateStatus(ctx, p.ID, status); err != nil {
				u.log.Warn().Err(err).Int64("payment_id", p.ID).Msg("record rejected status")
			}
			metrics.IncPaymentFinalized(u.tenant.ID, string(status))
		}
		p.Status = status
		return &GrantResult{Outcome: GrantPending, Payment: p}, nil
	}

	product := u.catalog.LookupAny(productID)
	if product == nil {
		return nil, fmt.Errorf("product %d not in catalog: %w", productID, domain.ErrNotFound)
	}

	// First activation wins: expire_in is written only while still unset, so
	// re-checking an already granted payment never moves the expiry.
	expireAt := model.GrantExpiry(u.now(), product.PeriodMonths)
	activated, err := u.payments.Activate(ctx, p.ID, model.PaymentStatusApproved, expireAt)
	if err != nil {
		return nil, fmt.Errorf("activate payment %d: %w", p.ID, err)
	}
	if activated {
		metrics.IncPaymentFinalized(u.tenant.ID, string(model.PaymentStatusApproved))
		p.ExpireAt = expireAt
	}
	p.Status = model.PaymentStatusApproved

	payload, err := u.granter.Grant(ctx, chatID, product)
	if err != nil {
		metrics.IncGatewayError(u.tenant.ID, "grant")
		return nil, fmt.Errorf("issue grant: %v: %w", err, domain.ErrGateway)
	}
	metrics.IncGrantIssued(u.tenant.ID, string(product.Type))
	u.log.Info().Int64("payment_id", p.ID).Int64("product_id", productID).Bool("first_activation", activated).Msg("access granted")

	return &GrantResult{Outcome: GrantApproved, Payment: p, Product: product, Grant: payload}, nil
}

func (u *paymentUC) LatestPayment(ctx context.Context, subscriberID, productID int64) (*model.PaymentRequest, error) {
	return u.payments.FindLatest(ctx, subscriberID, u.tenant.ID, productID)
}

func (u *paymentUC) IsExpired(ctx context.Context, subscriberID, productID int64) (bool, error) {
	approved, err := u.payments.ListApproved(ctx, subscriberID, u.tenant.ID, productID)
	if err != nil {
		return false, err
	}
	var latest *time.Time
	for _, p := range approved {
		if p.ExpireAt == nil {
			continue
		}
		if latest == nil || p.ExpireAt.After(*latest) {
			latest = p.ExpireAt
		}
	}
	if latest == nil {
		// No expiration on record (never-expiring grants or nothing
		// activated): treat as not expired.
		return false, nil
	}
	return u.now().After(*latest), nil
}
