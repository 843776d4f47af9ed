package model

// SessionState tracks where a chat is inside the purchase flow.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateMainMenu       SessionState = "main_menu"
	StateProductShown   SessionState = "product_shown"
	StateAwaitingEmail  SessionState = "awaiting_email"
	StateAwaitingOK     SessionState = "awaiting_confirmation"
	StatePaymentIssued  SessionState = "payment_issued"
	StatePaymentGranted SessionState = "payment_granted"
)

// InputField names the free-text input the controller expects next.
type InputField string

const InputEmail InputField = "email"

// Session is the per-chat ephemeral flow state. It lives only in process
// memory; a restart drops in-flight flows.
type Session struct {
	State         SessionState
	ExpectedInput InputField
	Email         string
	ProductType   OfferingType
	ProductID     int64

	// InFlight marks a payment creation in progress or an unresolved issued
	// payment; while set, new selections and duplicate confirms are rejected.
	InFlight bool
}

func (s *Session) HasProduct() bool { return s != nil && s.ProductID != 0 }
