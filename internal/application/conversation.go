// File: internal/application/conversation.go
package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"

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

var _ EventHandler = (*Controller)(nil)

// emailRe accepts local@domain.tld with no whitespace, nothing stricter.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Controller is the per-chat conversation state machine of one tenant. Events
// for a single chat arrive in order (the transport serializes them), so each
// handler reads, mutates, and writes that chat's session without further
// coordination.
type Controller struct {
	tenant    *model.TenantConfig
	catalog   *model.GroupedCatalog
	sessions  repository.SessionStore
	payments  usecase.PaymentOrchestrator
	transport adapter.Transport
	qr        adapter.QRRenderer
	tr        *i18n.Translator
	log       *zerolog.Logger
}

func NewController(
	tenant *model.TenantConfig,
	catalog *model.GroupedCatalog,
	sessions repository.SessionStore,
	payments usecase.PaymentOrchestrator,
	transport adapter.Transport,
	qr adapter.QRRenderer,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *Controller {
	l := logger.With().Str("component", "Controller").Int64("tenant_id", tenant.ID).Logger()
	return &Controller{
		tenant:    tenant,
		catalog:   catalog,
		sessions:  sessions,
		payments:  payments,
		transport: transport,
		qr:        qr,
		tr:        tr,
		log:       &l,
	}
}

// HandleEvent drives one transition of the state machine. Failures degrade to
// a user-visible message; the returned error is for the transport's log only.
func (c *Controller) HandleEvent(ctx context.Context, meta EventMeta, ev Event) error {
	metrics.IncEventHandled(c.tenant.ID, ev.Kind())
	ctx = logging.WithChatID(logging.WithSubscriberID(ctx, meta.SubscriberID), meta.ChatID)

	err := c.dispatch(ctx, meta, ev)
	switch {
	case errors.Is(err, domain.ErrFlowInFlight):
		_, serr := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("product.flow_in_flight"), nil)
		return serr
	case errors.Is(err, domain.ErrStaleSession):
		_, serr := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("payment.corrupted"), nil)
		return serr
	}
	return err
}

func (c *Controller) dispatch(ctx context.Context, meta EventMeta, ev Event) error {
	switch e := ev.(type) {
	case StartEvent:
		return c.onStart(ctx, meta)
	case RestartEvent:
		return c.onRestart(ctx, meta)
	case BackEvent:
		return c.onBack(ctx, meta)
	case SupportEvent:
		return c.sendWithBack(ctx, meta, c.tr.T("support.text"))
	case AboutEvent:
		return c.sendWithBack(ctx, meta, c.tr.T("about.text"))
	case GroupSelectedEvent:
		return c.onGroupSelected(ctx, meta, e.Type)
	case ProductSelectedEvent:
		return c.onProductSelected(ctx, meta, e.Type, e.ID)
	case PixChosenEvent:
		return c.onPixChosen(ctx, meta)
	case FreeTextEvent:
		return c.onFreeText(ctx, meta, e.Text)
	case ConfirmEvent:
		return c.onConfirm(ctx, meta)
	case CancelEvent:
		return c.onCancel(ctx, meta)
	case VerifyEvent:
		return c.onVerify(ctx, meta)
	}
	return fmt.Errorf("unhandled event %q: %w", ev.Kind(), domain.ErrInvalidArgument)
}

// onStart renders the main menu and resets the chat to MainMenuShown. It is
// idempotent and needs no prior session.
func (c *Controller) onStart(ctx context.Context, meta EventMeta) error {
	c.sessions.Put(meta.ChatID, &model.Session{State: model.StateMainMenu})
	return c.sendMainMenu(ctx, meta)
}

func (c *Controller) onRestart(ctx context.Context, meta EventMeta) error {
	c.sessions.Clear(meta.ChatID)
	c.sessions.Put(meta.ChatID, &model.Session{State: model.StateMainMenu})
	return c.sendMainMenu(ctx, meta)
}

func (c *Controller) onBack(ctx context.Context, meta EventMeta) error {
	return c.sendMainMenu(ctx, meta)
}

func (c *Controller) onGroupSelected(ctx context.Context, meta EventMeta, typ model.OfferingType) error {
	group := c.catalog.Group(typ)
	if len(group) == 0 {
		return c.sendWithBack(ctx, meta, c.tr.T("product.not_found"))
	}
	rows := make([][]adapter.InlineButton, 0, len(group)+1)
	for _, p := range group {
		rows = append(rows, []adapter.InlineButton{{
			Text: c.tr.T("product.entry", p.Name, p.Price),
			Data: ProductToken(p.Type, p.ID),
		}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: c.tr.T("button.back"), Data: "back"}})
	_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("product.group_prompt"), rows)
	return err
}

// onProductSelected checks the ledger before offering a purchase: a pending
// payment re-renders its code, a live grant re-issues access without a new
// charge, anything else shows the product with a pay affordance.
func (c *Controller) onProductSelected(ctx context.Context, meta EventMeta, typ model.OfferingType, id int64) error {
	product := c.catalog.Lookup(typ, id)
	if product == nil {
		// Unknown id: stay in the current state, catalog untouched.
		_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("product.not_found"), nil)
		return err
	}

	if sess, ok := c.sessions.Get(meta.ChatID); ok && sess.InFlight && sess.ProductID != id {
		// One purchase flow at a time per chat; the first must resolve or be
		// cancelled before a new selection is accepted.
		return fmt.Errorf("product %d while %d unresolved: %w", id, sess.ProductID, domain.ErrFlowInFlight)
	}

	latest, err := c.payments.LatestPayment(ctx, meta.SubscriberID, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, c.log).Warn().Err(err).Int64("product_id", id).Msg("ledger lookup failed, continuing to purchase flow")
	}
	if err == nil {
		switch latest.Status {
		case model.PaymentStatusPending:
			c.sessions.Put(meta.ChatID, &model.Session{
				State:       model.StatePaymentIssued,
				ProductType: typ,
				ProductID:   id,
				InFlight:    true,
			})
			return c.sendRedeemCode(ctx, meta, latest.RedeemCode)
		case model.PaymentStatusApproved:
			expired, eerr := c.payments.IsExpired(ctx, meta.SubscriberID, id)
			if eerr == nil && !expired {
				return c.grantExisting(ctx, meta, id)
			}
		}
	}

	c.sessions.Put(meta.ChatID, &model.Session{
		State:       model.StateProductShown,
		ProductType: typ,
		ProductID:   id,
	})

	text := c.tr.T("product.detail_fallback")
	if product.Description != "" {
		text = c.tr.T("product.detail", product.Description)
	}
	rows := [][]adapter.InlineButton{
		{{Text: c.tr.T("button.pix"), Data: "pix"}},
		{{Text: c.tr.T("button.back"), Data: "back"}},
	}
	_, err = c.transport.SendMessage(ctx, meta.ChatID, text, rows)
	return err
}

// grantExisting re-issues access for an already paid, unexpired product.
func (c *Controller) grantExisting(ctx context.Context, meta EventMeta, productID int64) error {
	res, err := c.payments.CheckAndGrant(ctx, meta.SubscriberID, meta.ChatID, productID)
	if err != nil || res.Outcome != usecase.GrantApproved {
		if err != nil {
			logging.With(ctx, c.log).Error().Err(err).Int64("product_id", productID).Msg("re-grant failed")
		}
		_, serr := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("verify.error"), nil)
		return serr
	}
	c.sessions.Clear(meta.ChatID)
	return c.renderGrant(ctx, meta, res)
}

func (c *Controller) onPixChosen(ctx context.Context, meta EventMeta) error {
	sess, ok := c.sessions.Get(meta.ChatID)
	if !ok || !sess.HasProduct() {
		return fmt.Errorf("pix chosen with no selected product: %w", domain.ErrStaleSession)
	}
	sess.State = model.StateAwaitingEmail
	sess.ExpectedInput = model.InputEmail
	c.sessions.Put(meta.ChatID, sess)

	rows := [][]adapter.InlineButton{{{Text: c.tr.T("button.cancel"), Data: "cancel_pix"}}}
	if meta.MessageID != 0 {
		if err := c.transport.EditMessageText(ctx, meta.ChatID, meta.MessageID, c.tr.T("email.prompt"), rows); err == nil {
			return nil
		}
	}
	_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("email.prompt"), rows)
	return err
}

func (c *Controller) onFreeText(ctx context.Context, meta EventMeta, text string) error {
	sess, ok := c.sessions.Get(meta.ChatID)
	if !ok || sess.ExpectedInput != model.InputEmail {
		// Free text outside data collection is ignored.
		return nil
	}
	if !emailRe.MatchString(text) {
		_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("email.invalid"), nil)
		return err
	}
	sess.Email = text
	sess.ExpectedInput = ""
	sess.State = model.StateAwaitingOK
	c.sessions.Put(meta.ChatID, sess)
	logging.With(ctx, c.log).Debug().Str("email", logging.Redact(text)).Msg("buyer email collected")

	rows := [][]adapter.InlineButton{
		{{Text: c.tr.T("button.confirm"), Data: "confirm_pix"}},
		{{Text: c.tr.T("button.cancel"), Data: "cancel_pix"}},
	}
	_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("email.confirmed", text), rows)
	return err
}

// onConfirm creates the charge. A session without the collected email is
// stale, not fatal: the buyer is routed back to data collection. A duplicate
// press while a creation is unresolved must not open a second charge.
func (c *Controller) onConfirm(ctx context.Context, meta EventMeta) error {
	sess, ok := c.sessions.Get(meta.ChatID)
	if ok && sess.InFlight {
		_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("payment.processing"), nil)
		return err
	}
	if !ok || sess.Email == "" {
		return c.onPixChosen(ctx, meta)
	}
	if !sess.HasProduct() {
		return fmt.Errorf("confirm with no selected product: %w", domain.ErrStaleSession)
	}
	product := c.catalog.Lookup(sess.ProductType, sess.ProductID)
	if product == nil {
		return fmt.Errorf("product %d vanished from the catalog: %w", sess.ProductID, domain.ErrStaleSession)
	}

	sess.InFlight = true
	c.sessions.Put(meta.ChatID, sess)

	p, err := c.payments.CreatePayment(ctx, meta.SubscriberID, meta.ChatID, product, sess.Email)
	if err != nil {
		logging.With(ctx, c.log).Error().Err(err).Int64("product_id", product.ID).Msg("payment creation failed")
		sess.InFlight = false
		c.sessions.Put(meta.ChatID, sess)
		rows := [][]adapter.InlineButton{
			{{Text: c.tr.T("button.restart"), Data: "restart"}},
			{{Text: c.tr.T("menu.support"), Data: "support"}},
		}
		_, serr := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("payment.error"), rows)
		return serr
	}

	sess.State = model.StatePaymentIssued
	sess.Email = ""
	c.sessions.Put(meta.ChatID, sess)

	if meta.MessageID != 0 {
		_ = c.transport.DeleteMessage(ctx, meta.ChatID, meta.MessageID)
	}
	return c.sendRedeemCode(ctx, meta, p.RedeemCode)
}

func (c *Controller) onCancel(ctx context.Context, meta EventMeta) error {
	c.sessions.Clear(meta.ChatID)
	if meta.MessageID != 0 {
		_ = c.transport.EditMessageText(ctx, meta.ChatID, meta.MessageID, c.tr.T("payment.cancelled"), nil)
	} else {
		_, _ = c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("payment.cancelled"), nil)
	}
	c.sessions.Put(meta.ChatID, &model.Session{State: model.StateMainMenu})
	return c.sendMainMenu(ctx, meta)
}

func (c *Controller) onVerify(ctx context.Context, meta EventMeta) error {
	sess, ok := c.sessions.Get(meta.ChatID)
	if !ok || !sess.HasProduct() {
		return c.editOrSendCaption(ctx, meta, c.tr.T("verify.not_found"), c.backRow())
	}

	res, err := c.payments.CheckAndGrant(ctx, meta.SubscriberID, meta.ChatID, sess.ProductID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.editOrSendCaption(ctx, meta, c.tr.T("verify.not_found"), c.backRow())
	case err != nil:
		logging.With(ctx, c.log).Error().Err(err).Int64("product_id", sess.ProductID).Msg("verify failed")
		_, serr := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("verify.error"), nil)
		return serr
	}

	if res.Outcome == usecase.GrantApproved {
		c.sessions.Clear(meta.ChatID)
		return c.renderGrant(ctx, meta, res)
	}

	rows := [][]adapter.InlineButton{
		{{Text: c.tr.T("button.verify"), Data: "verify_payment"}},
		{{Text: c.tr.T("button.back"), Data: "back"}},
	}
	return c.editOrSendCaption(ctx, meta, c.tr.T("verify.pending"), rows)
}

// NotifyApproved delivers a reconciled grant to a chat whose buyer never
// pressed the re-check button. Implements the reconciler's notifier contract.
func (c *Controller) NotifyApproved(ctx context.Context, chatID int64, res *usecase.GrantResult) error {
	c.sessions.Clear(chatID)
	meta := EventMeta{ChatID: chatID}
	if _, err := c.transport.SendMessage(ctx, chatID, c.tr.T("grant.reconciled"), nil); err != nil {
		return err
	}
	return c.renderGrant(ctx, meta, res)
}

// ---- rendering helpers ----

func (c *Controller) sendMainMenu(ctx context.Context, meta EventMeta) error {
	welcome := c.tenant.WelcomeMessage
	if welcome == "" {
		welcome = c.tr.T("welcome.default")
	}
	rows := make([][]adapter.InlineButton, 0, 4)
	for _, typ := range c.catalog.Types() {
		rows = append(rows, []adapter.InlineButton{{
			Text: c.tr.T("menu.group." + string(typ)),
			Data: GroupToken(typ),
		}})
	}
	rows = append(rows, []adapter.InlineButton{
		{Text: c.tr.T("menu.support"), Data: "support"},
		{Text: c.tr.T("menu.about"), Data: "about"},
	})
	_, err := c.transport.SendMessage(ctx, meta.ChatID, welcome, rows)
	return err
}

// sendRedeemCode renders the PIX code as a QR photo with the copyable code in
// the caption. Falls back to a plain message when rendering fails.
func (c *Controller) sendRedeemCode(ctx context.Context, meta EventMeta, code string) error {
	caption := c.tr.T("payment.issued", code)
	rows := [][]adapter.InlineButton{
		{{Text: c.tr.T("button.verify"), Data: "verify_payment"}},
		{{Text: c.tr.T("button.restart"), Data: "restart"}},
	}
	png, err := c.qr.Render(code)
	if err != nil {
		logging.With(ctx, c.log).Warn().Err(err).Msg("qr render failed, sending plain code")
		_, serr := c.transport.SendMessage(ctx, meta.ChatID, caption, rows)
		return serr
	}
	_, err = c.transport.SendPhoto(ctx, meta.ChatID, png, caption, rows)
	return err
}

func (c *Controller) renderGrant(ctx context.Context, meta EventMeta, res *usecase.GrantResult) error {
	switch res.Grant.Type {
	case model.OfferingSingle:
		text := c.tr.T("grant.content", res.Grant.Content)
		_, err := c.transport.SendMessage(ctx, meta.ChatID, text, [][]adapter.InlineButton{c.backRow()[0]})
		return err
	default:
		rows := [][]adapter.InlineButton{
			{{Text: c.tr.T("button.join"), URL: res.Grant.InviteLink}},
			{{Text: c.tr.T("button.back"), Data: "back"}},
		}
		_, err := c.transport.SendMessage(ctx, meta.ChatID, c.tr.T("grant.invite"), rows)
		return err
	}
}

func (c *Controller) sendWithBack(ctx context.Context, meta EventMeta, text string) error {
	_, err := c.transport.SendMessage(ctx, meta.ChatID, text, c.backRow())
	return err
}

func (c *Controller) backRow() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{{{Text: c.tr.T("button.back"), Data: "back"}}}
}

// editOrSendCaption edits the QR photo caption when the event came from its
// keyboard, otherwise sends a fresh message.
func (c *Controller) editOrSendCaption(ctx context.Context, meta EventMeta, text string, rows [][]adapter.InlineButton) error {
	if meta.MessageID != 0 {
		if err := c.transport.EditMessageCaption(ctx, meta.ChatID, meta.MessageID, text, rows); err == nil {
			return nil
		}
	}
	_, err := c.transport.SendMessage(ctx, meta.ChatID, text, rows)
	return err
}
