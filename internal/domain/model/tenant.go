package model

// TenantConfig is one operator's bot registration: transport credentials,
// the target chat for invite grants, and the payment gateway credential.
// Sourced from the bots registry (or the config file fallback).
type TenantConfig struct {
	ID             int64
	Token          string
	GroupTarget    int64 // chat id of the VIP channel/group invites point at
	WelcomeMessage string
	GatewayToken   string
}

// TenantState reports one tenant's runtime condition for health probes.
type TenantState string

const (
	TenantStateRunning TenantState = "running"
	TenantStateFailed  TenantState = "failed"
	TenantStateStopped TenantState = "stopped"
)

type TenantStatus struct {
	TenantID int64       `json:"tenant_id"`
	State    TenantState `json:"state"`
	Detail   string      `json:"detail,omitempty"`
}
