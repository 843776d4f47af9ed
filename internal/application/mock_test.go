//go:build !integration

package application_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/application"
	"telegram-pix-commerce/internal/domain"
	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/infra/i18n"
	"telegram-pix-commerce/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "pt-BR")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	return tr
}

// =============================
// Transport
// =============================

type SentMessage struct {
	ChatID int64
	Text   string
	Rows   [][]adapter.InlineButton
	Photo  bool
}

// MockTransport records outbound traffic. A Func field overrides the default
// recording behavior when a test needs a failure.
type MockTransport struct {
	mu      sync.Mutex
	nextID  int
	Sent    []SentMessage
	Edits   []SentMessage
	Deleted []int

	SendMessageFunc      func(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (int, error)
	CreateInviteLinkFunc func(ctx context.Context, targetChatID int64, opts adapter.InviteOptions) (string, error)
}

var _ adapter.Transport = (*MockTransport)(nil)

func (m *MockTransport) SendMessage(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (int, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, text, rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, Text: text, Rows: rows})
	return m.nextID, nil
}

func (m *MockTransport) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, rows [][]adapter.InlineButton) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, SentMessage{ChatID: chatID, Text: text, Rows: rows})
	return nil
}

func (m *MockTransport) EditMessageCaption(ctx context.Context, chatID int64, messageID int, caption string, rows [][]adapter.InlineButton) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, SentMessage{ChatID: chatID, Text: caption, Rows: rows})
	return nil
}

func (m *MockTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, messageID)
	return nil
}

func (m *MockTransport) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string, rows [][]adapter.InlineButton) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Sent = append(m.Sent, SentMessage{ChatID: chatID, Text: caption, Rows: rows, Photo: true})
	return m.nextID, nil
}

func (m *MockTransport) CreateInviteLink(ctx context.Context, targetChatID int64, opts adapter.InviteOptions) (string, error) {
	if m.CreateInviteLinkFunc != nil {
		return m.CreateInviteLinkFunc(ctx, targetChatID, opts)
	}
	return "https://t.me/+mock-invite", nil
}

// Last returns the most recent outbound message.
func (m *MockTransport) Last(t *testing.T) SentMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		t.Fatal("no messages were sent")
	}
	return m.Sent[len(m.Sent)-1]
}

func (m *MockTransport) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockRunner wraps MockTransport with a no-op Run for runtime tests.
type MockRunner struct {
	MockTransport
	RunFunc func(ctx context.Context, h application.EventHandler) error
}

var _ application.TransportRunner = (*MockRunner)(nil)

func (m *MockRunner) Run(ctx context.Context, h application.EventHandler) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, h)
	}
	<-ctx.Done()
	return ctx.Err()
}

// =============================
// Orchestrator
// =============================

type MockOrchestrator struct {
	mu      sync.Mutex
	Creates []string // buyer emails passed to CreatePayment

	CreatePaymentFunc func(ctx context.Context, subscriberID, chatID int64, product *model.Product, buyerEmail string) (*model.PaymentRequest, error)
	CheckAndGrantFunc func(ctx context.Context, subscriberID, chatID, productID int64) (*usecase.GrantResult, error)
	LatestPaymentFunc func(ctx context.Context, subscriberID, productID int64) (*model.PaymentRequest, error)
	IsExpiredFunc     func(ctx context.Context, subscriberID, productID int64) (bool, error)
}

var _ usecase.PaymentOrchestrator = (*MockOrchestrator)(nil)

func (m *MockOrchestrator) CreatePayment(ctx context.Context, subscriberID, chatID int64, product *model.Product, buyerEmail string) (*model.PaymentRequest, error) {
	m.mu.Lock()
	m.Creates = append(m.Creates, buyerEmail)
	m.mu.Unlock()
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, subscriberID, chatID, product, buyerEmail)
	}
	return &model.PaymentRequest{
		ID:           1,
		GatewayID:    1001,
		SubscriberID: subscriberID,
		ChatID:       chatID,
		ProductID:    product.ID,
		Amount:       product.Price,
		Status:       model.PaymentStatusPending,
		RedeemCode:   "pix-copy-paste",
	}, nil
}

func (m *MockOrchestrator) CheckAndGrant(ctx context.Context, subscriberID, chatID, productID int64) (*usecase.GrantResult, error) {
	if m.CheckAndGrantFunc != nil {
		return m.CheckAndGrantFunc(ctx, subscriberID, chatID, productID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrchestrator) LatestPayment(ctx context.Context, subscriberID, productID int64) (*model.PaymentRequest, error) {
	if m.LatestPaymentFunc != nil {
		return m.LatestPaymentFunc(ctx, subscriberID, productID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrchestrator) IsExpired(ctx context.Context, subscriberID, productID int64) (bool, error) {
	if m.IsExpiredFunc != nil {
		return m.IsExpiredFunc(ctx, subscriberID, productID)
	}
	return false, nil
}

func (m *MockOrchestrator) CreateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Creates)
}

func adapterGrant() adapter.GrantPayload {
	return adapter.GrantPayload{Type: model.OfferingChannel, InviteLink: "https://t.me/+mock-invite"}
}

// =============================
// QR
// =============================

type MockQR struct {
	RenderFunc func(code string) ([]byte, error)
}

var _ adapter.QRRenderer = (*MockQR)(nil)

func (m *MockQR) Render(code string) ([]byte, error) {
	if m.RenderFunc != nil {
		return m.RenderFunc(code)
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}
