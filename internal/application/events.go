// File: internal/application/events.go
package application

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"telegram-pix-commerce/internal/domain/model"
)

// Event is an inbound conversation event, decoded once at the transport
// boundary. The controller matches the variants exhaustively instead of
// dispatching on raw callback strings.
type Event interface {
	Kind() string
}

type (
	StartEvent     struct{}
	RestartEvent   struct{}
	BackEvent      struct{}
	SupportEvent   struct{}
	AboutEvent     struct{}
	PixChosenEvent struct{}
	ConfirmEvent   struct{}
	CancelEvent    struct{}
	VerifyEvent    struct{}

	FreeTextEvent struct{ Text string }

	GroupSelectedEvent struct{ Type model.OfferingType }

	ProductSelectedEvent struct {
		Type model.OfferingType
		ID   int64
	}
)

func (StartEvent) Kind() string           { return "start" }
func (RestartEvent) Kind() string         { return "restart" }
func (BackEvent) Kind() string            { return "back" }
func (SupportEvent) Kind() string         { return "support" }
func (AboutEvent) Kind() string           { return "about" }
func (PixChosenEvent) Kind() string       { return "pix" }
func (ConfirmEvent) Kind() string         { return "confirm_pix" }
func (CancelEvent) Kind() string          { return "cancel_pix" }
func (VerifyEvent) Kind() string          { return "verify_payment" }
func (FreeTextEvent) Kind() string        { return "text" }
func (GroupSelectedEvent) Kind() string   { return "group" }
func (ProductSelectedEvent) Kind() string { return "product" }

// EventMeta identifies where an event came from. MessageID is the message
// carrying the pressed keyboard (0 for commands and free text).
type EventMeta struct {
	ChatID       int64
	SubscriberID int64
	MessageID    int
}

// EventHandler is implemented by the conversation controller; the transport
// adapter routes each chat's decoded events into it in arrival order.
type EventHandler interface {
	HandleEvent(ctx context.Context, meta EventMeta, ev Event) error
}

var productTokenRe = regexp.MustCompile(`^product_(channel|single|supergroup)_(\d+)$`)

// DecodeCallback maps a raw callback token onto its event variant.
// Unknown tokens report false and are dropped by the transport.
func DecodeCallback(data string) (Event, bool) {
	switch data {
	case "pix":
		return PixChosenEvent{}, true
	case "confirm_pix":
		return ConfirmEvent{}, true
	case "cancel_pix":
		return CancelEvent{}, true
	case "back":
		return BackEvent{}, true
	case "restart":
		return RestartEvent{}, true
	case "verify_payment":
		return VerifyEvent{}, true
	case "support":
		return SupportEvent{}, true
	case "about":
		return AboutEvent{}, true
	case "product_channels":
		return GroupSelectedEvent{Type: model.OfferingChannel}, true
	case "product_singles":
		return GroupSelectedEvent{Type: model.OfferingSingle}, true
	case "product_supergroups":
		return GroupSelectedEvent{Type: model.OfferingSupergroup}, true
	}
	if m := productTokenRe.FindStringSubmatch(data); m != nil {
		typ, ok := model.ParseOfferingType(m[1])
		if !ok {
			return nil, false
		}
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, false
		}
		return ProductSelectedEvent{Type: typ, ID: id}, true
	}
	return nil, false
}

// DecodeMessage maps an inbound text message onto its event variant:
// the two supported commands, or free text for the data-collection states.
func DecodeMessage(text string) (Event, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	if strings.HasPrefix(trimmed, "/") {
		cmd := strings.Fields(trimmed)[0]
		switch cmd {
		case "/start":
			return StartEvent{}, true
		case "/restart":
			return RestartEvent{}, true
		}
		return nil, false
	}
	return FreeTextEvent{Text: trimmed}, true
}

// GroupToken renders the callback token listing one offering group.
func GroupToken(typ model.OfferingType) string {
	return "product_" + string(typ) + "s"
}

// ProductToken renders the per-product callback token.
func ProductToken(typ model.OfferingType, id int64) string {
	return "product_" + string(typ) + "_" + strconv.FormatInt(id, 10)
}
