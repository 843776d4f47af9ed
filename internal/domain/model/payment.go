package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // charge created at provider; awaiting payer
	PaymentStatusApproved PaymentStatus = "approved" // provider confirmed the transfer
	PaymentStatusRejected PaymentStatus = "rejected" // provider refused or payer aborted
	PaymentStatusUnknown  PaymentStatus = "unknown"  // any provider status outside the known set
)

// ParsePaymentStatus maps a provider-reported status onto the domain set.
// Anything unrecognized collapses to unknown rather than failing.
func ParsePaymentStatus(s string) PaymentStatus {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return PaymentStatus(s)
	}
	return PaymentStatusUnknown
}

// PaymentRequest records one external charge issued for a subscriber. The
// provider mutates its status asynchronously; this row is our ledger view.
type PaymentRequest struct {
	ID           int64 // ledger row id
	GatewayID    int64 // provider payment id
	SubscriberID int64 // telegram user id of the buyer
	ChatID       int64 // conversation the charge was issued from
	TenantID     int64
	ProductID    int64
	BuyerEmail   string
	Amount       float64
	Status       PaymentStatus
	RedeemCode   string     // gateway PIX copy-paste code
	ExpireAt     *time.Time // set once on first activation; nil means never expires or not yet activated
	CreatedAt    time.Time
}

// GrantExpiry computes when access bought through this product lapses,
// counting from the activation instant. A zero period never expires.
func GrantExpiry(activatedAt time.Time, periodMonths int) *time.Time {
	if periodMonths == 0 {
		return nil
	}
	t := activatedAt.AddDate(0, 0, 30*periodMonths)
	return &t
}
