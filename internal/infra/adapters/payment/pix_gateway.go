// File: internal/infra/adapters/payment/pix_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"telegram-pix-commerce/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PixGateway)(nil)

const defaultBaseURL = "https://api.mercadopago.com"

// PixGateway implements adapter.PaymentGateway against the Mercado Pago
// payments REST API. One instance per tenant, bound to the tenant's
// access token.
type PixGateway struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

func NewPixGateway(accessToken, baseURL string) (*PixGateway, error) {
	if accessToken == "" {
		return nil, errors.New("gateway access token empty")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	return &PixGateway{
		accessToken: accessToken,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PixGateway) Name() string { return "mercadopago-pix" }

type chargeResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode string `json:"qr_code"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	Message string `json:"message"`
}

// CreateCharge opens a PIX charge. The idempotency key guards against the
// provider opening a second charge when a request is retried.
func (g *PixGateway) CreateCharge(ctx context.Context, req adapter.CreateChargeRequest) (adapter.ChargeInfo, error) {
	payload := map[string]any{
		"transaction_amount": req.Amount,
		"description":        req.Description,
		"payment_method_id":  "pix",
		"payer": map[string]any{
			"email": req.BuyerEmail,
		},
	}
	b, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payments", bytes.NewReader(b))
	if err != nil {
		return adapter.ChargeInfo{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return adapter.ChargeInfo{}, err
	}
	defer resp.Body.Close()

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.ChargeInfo{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapter.ChargeInfo{}, fmt.Errorf("create charge http %d: %s", resp.StatusCode, out.Message)
	}
	if out.ID == 0 || out.PointOfInteraction.TransactionData.QRCode == "" {
		return adapter.ChargeInfo{}, errors.New("charge response missing id or qr code")
	}
	return adapter.ChargeInfo{
		ID:         out.ID,
		Status:     out.Status,
		RedeemCode: out.PointOfInteraction.TransactionData.QRCode,
	}, nil
}

func (g *PixGateway) GetCharge(ctx context.Context, id int64) (adapter.ChargeInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/payments/%d", g.baseURL, id), nil)
	if err != nil {
		return adapter.ChargeInfo{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return adapter.ChargeInfo{}, err
	}
	defer resp.Body.Close()

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.ChargeInfo{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapter.ChargeInfo{}, fmt.Errorf("get charge http %d: %s", resp.StatusCode, out.Message)
	}
	if out.ID == 0 {
		return adapter.ChargeInfo{}, errors.New("charge response missing id")
	}
	return adapter.ChargeInfo{
		ID:         out.ID,
		Status:     out.Status,
		RedeemCode: out.PointOfInteraction.TransactionData.QRCode,
	}, nil
}
