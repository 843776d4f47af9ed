package adapter

import "context"

// CreateChargeRequest describes one PIX charge to open at the provider.
type CreateChargeRequest struct {
	Amount         float64
	Description    string
	BuyerEmail     string
	IdempotencyKey string // unique per logical call; prevents duplicate charges on retry
}

// ChargeInfo is the provider's view of a charge.
type ChargeInfo struct {
	ID         int64  // provider payment id
	Status     string // provider status string: pending|approved|rejected|...
	RedeemCode string // PIX copy-paste code (rendered as QR for the buyer)
}

// PaymentGateway is the hex port for payment providers. One instance is bound
// per tenant, carrying that tenant's credential.
type PaymentGateway interface {
	Name() string

	// CreateCharge opens a charge and returns the provider id and redeem code.
	// An error, or a response without an id, means no charge was created.
	CreateCharge(ctx context.Context, req CreateChargeRequest) (ChargeInfo, error)

	// GetCharge fetches the current provider status of a charge.
	GetCharge(ctx context.Context, id int64) (ChargeInfo, error)
}
