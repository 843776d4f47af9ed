// File: internal/infra/adapters/telegram/real_bot.go
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-pix-commerce/internal/application"
	"telegram-pix-commerce/internal/domain/ports/adapter"
	"telegram-pix-commerce/internal/infra/i18n"
	red "telegram-pix-commerce/internal/infra/redis"
)

var _ application.TransportRunner = (*Bot)(nil)

// Bot wraps tgbotapi for one tenant: it renders outbound messages and polls
// inbound updates, decoding them into events and feeding them to the handler
// through per-chat queues so a chat's events keep arrival order while chats
// proceed concurrently.
type Bot struct {
	bot        *tgbotapi.BotAPI
	tenantID   int64
	limiter    *red.RateLimiter
	rateLimit  int
	rateWindow time.Duration
	tr         *i18n.Translator
	log        *zerolog.Logger
	idleAfter  time.Duration

	mu    sync.Mutex
	chats map[int64]chan queued
}

type queued struct {
	meta application.EventMeta
	ev   application.Event
}

const (
	chatQueueSize = 32
	chatIdleAfter = 10 * time.Minute
)

func NewBot(token string, tenantID int64, limiter *red.RateLimiter, rateLimit int, rateWindow time.Duration, tr *i18n.Translator, logger *zerolog.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("bot token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "TelegramBot").Int64("tenant_id", tenantID).Logger()
	return &Bot{
		bot:        api,
		tenantID:   tenantID,
		limiter:    limiter,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		tr:         tr,
		log:        &l,
		idleAfter:  chatIdleAfter,
		chats:      make(map[int64]chan queued),
	}, nil
}

// Run polls updates until ctx is done.
func (b *Bot) Run(ctx context.Context, h application.EventHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return ctx.Err()
		case up := <-updates:
			meta, ev, ok := b.decode(up)
			if !ok {
				continue
			}
			if !b.allow(ctx, meta, ev) {
				_, _ = b.SendMessage(ctx, meta.ChatID, b.tr.T("rate.limited"), nil)
				continue
			}
			b.enqueue(ctx, h, meta, ev)
		}
	}
}

func (b *Bot) decode(up tgbotapi.Update) (application.EventMeta, application.Event, bool) {
	if q := up.CallbackQuery; q != nil {
		// Stop the telegram spinner regardless of what the token decodes to.
		_, _ = b.bot.Request(tgbotapi.NewCallback(q.ID, ""))
		if q.Message == nil || q.From == nil {
			return application.EventMeta{}, nil, false
		}
		ev, ok := application.DecodeCallback(q.Data)
		if !ok {
			b.log.Debug().Str("data", q.Data).Msg("unknown callback token dropped")
			return application.EventMeta{}, nil, false
		}
		meta := application.EventMeta{
			ChatID:       q.Message.Chat.ID,
			SubscriberID: q.From.ID,
			MessageID:    q.Message.MessageID,
		}
		return meta, ev, true
	}

	if m := up.Message; m != nil && m.From != nil {
		ev, ok := application.DecodeMessage(m.Text)
		if !ok {
			return application.EventMeta{}, nil, false
		}
		meta := application.EventMeta{ChatID: m.Chat.ID, SubscriberID: m.From.ID}
		return meta, ev, true
	}

	return application.EventMeta{}, nil, false
}

func (b *Bot) allow(ctx context.Context, meta application.EventMeta, ev application.Event) bool {
	if b.limiter == nil {
		return true
	}
	key := red.ChatEventKey(b.tenantID, meta.ChatID, ev.Kind())
	allowed, err := b.limiter.Allow(ctx, key, b.rateLimit, b.rateWindow)
	if err != nil {
		b.log.Warn().Err(err).Msg("rate limiter error, allowing event")
		return true
	}
	return allowed
}

// enqueue hands the event to the chat's queue, spawning its drain goroutine
// on first use. A full queue drops the event rather than stalling the poll
// loop or other chats. The send happens under the mutex: the idle reaper
// deletes a chat only after seeing an empty queue under that same mutex, so
// an event is never sent on a queue nobody drains.
func (b *Bot) enqueue(ctx context.Context, h application.EventHandler, meta application.EventMeta, ev application.Event) {
	b.mu.Lock()
	q, ok := b.chats[meta.ChatID]
	if !ok {
		q = make(chan queued, chatQueueSize)
		b.chats[meta.ChatID] = q
		go b.drain(ctx, meta.ChatID, q, h)
	}
	select {
	case q <- queued{meta: meta, ev: ev}:
	default:
		b.log.Warn().Int64("chat_id", meta.ChatID).Str("kind", ev.Kind()).Msg("chat queue full, event dropped")
	}
	b.mu.Unlock()
}

func (b *Bot) drain(ctx context.Context, chatID int64, q chan queued, h application.EventHandler) {
	idleAfter := b.idleAfter
	idle := time.NewTimer(idleAfter)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case it := <-q:
			if err := h.HandleEvent(ctx, it.meta, it.ev); err != nil {
				b.log.Error().Err(err).Int64("chat_id", chatID).Str("kind", it.ev.Kind()).Msg("event handling failed")
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleAfter)
		case <-idle.C:
			b.mu.Lock()
			if len(q) == 0 {
				delete(b.chats, chatID)
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			idle.Reset(idleAfter)
		}
	}
}

// ---- adapter.Transport ----

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := b.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, rows [][]adapter.InlineButton) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if kb, ok := keyboard(rows); ok {
		edit.ReplyMarkup = &kb
	}
	_, err := b.bot.Send(edit)
	return err
}

func (b *Bot) EditMessageCaption(ctx context.Context, chatID int64, messageID int, caption string, rows [][]adapter.InlineButton) error {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	if kb, ok := keyboard(rows); ok {
		edit.ReplyMarkup = &kb
	}
	_, err := b.bot.Send(edit)
	return err
}

func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := b.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (b *Bot) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string, rows [][]adapter.InlineButton) (int, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qr.png", Bytes: photo})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb, ok := keyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := b.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) CreateInviteLink(ctx context.Context, targetChatID int64, opts adapter.InviteOptions) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: targetChatID},
		Name:       opts.Name,
	}
	if opts.SingleUse {
		cfg.MemberLimit = 1
	}
	if opts.ExpireAt != nil {
		cfg.ExpireDate = int(opts.ExpireAt.Unix())
	}
	resp, err := b.bot.Request(cfg)
	if err != nil {
		return "", err
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", err
	}
	if link.InviteLink == "" {
		return "", errors.New("empty invite link in response")
	}
	return link.InviteLink, nil
}

func keyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := btn.Text
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
