// Package bot glues the webhook to the conversation engine: it serializes
// messages per phone, skips redeliveries, runs the state machine and sends
// the resulting replies.
package bot

import (
	"context"
	"log"
	"time"

	"github.com/lojasmm/washbot/internal/flow"
	"github.com/lojasmm/washbot/internal/metrics"
	"github.com/lojasmm/washbot/internal/session"
	"github.com/lojasmm/washbot/internal/store"
	"github.com/lojasmm/washbot/internal/whatsapp"
)

const throttledText = "Estás enviando muchos mensajes seguidos. Esperá un momento y volvé a intentar."

// Sender is the subset of the WhatsApp client the bot needs.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendInteractiveButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
	SendList(ctx context.Context, to, body, buttonText string, sections []whatsapp.Section) error
	MarkRead(ctx context.Context, messageID string) error
}

type Handler struct {
	wa        Sender
	processor *flow.Processor
	processed store.ProcessedLog
	sessions  *session.Manager

	sendTimeout  time.Duration
	storeTimeout time.Duration
	now          func() time.Time
}

func NewHandler(wa Sender, processor *flow.Processor, processed store.ProcessedLog, sessions *session.Manager, sendTimeout, storeTimeout time.Duration) *Handler {
	return &Handler{
		wa:           wa,
		processor:    processor,
		processed:    processed,
		sessions:     sessions,
		sendTimeout:  sendTimeout,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// HandleMessage processes one normalized inbound reply. It is safe to call
// concurrently; replies from the same phone are handled one at a time in
// arrival order of the lock.
func (h *Handler) HandleMessage(ctx context.Context, reply whatsapp.Reply) {
	phone := reply.From

	if ok, notify := h.sessions.Allow(phone); !ok {
		log.Printf("bot: throttling %s, dropping message %s", phone, reply.MessageID)
		metrics.ThrottledMessages.Inc()
		if notify {
			h.sendText(ctx, phone, throttledText)
		}
		return
	}

	h.sessions.WithLock(phone, func() error {
		h.handleLocked(ctx, reply)
		return nil
	})
}

func (h *Handler) handleLocked(ctx context.Context, reply whatsapp.Reply) {
	phone := reply.From

	if reply.MessageID != "" {
		seen, err := h.withStore(ctx, func(ctx context.Context) (bool, error) {
			return h.processed.WasProcessed(ctx, reply.MessageID)
		})
		if err != nil {
			log.Printf("bot: dedup lookup for %s failed: %v", reply.MessageID, err)
		} else if seen {
			log.Printf("bot: message %s from %s already processed, skipping", reply.MessageID, phone)
			metrics.DuplicateMessages.Inc()
			return
		}
	}

	sctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	res, err := h.processor.Process(sctx, phone, reply.Token)
	cancel()
	if err != nil {
		// Not marked as processed: a redelivery gets another chance.
		log.Printf("bot: processing %s from %s failed: %v", reply.MessageID, phone, err)
		metrics.ProcessErrors.Inc()
		h.sendText(ctx, phone, "Tuvimos un problema procesando tu mensaje. Intentá de nuevo en unos minutos.")
		return
	}

	if reply.MessageID != "" {
		if _, err := h.withStore(ctx, func(ctx context.Context) (bool, error) {
			return false, h.processed.MarkProcessed(ctx, reply.MessageID, h.now())
		}); err != nil {
			log.Printf("bot: marking %s processed failed: %v", reply.MessageID, err)
		}
	}

	if res.Created {
		log.Printf("bot: new conversation with %s", phone)
	}
	log.Printf("bot: %s now at %s (%d replies)", phone, res.Session.CurrentState, len(res.Messages))
	for _, m := range res.Messages {
		h.deliver(ctx, phone, m)
	}

	if reply.MessageID != "" {
		mctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
		if err := h.wa.MarkRead(mctx, reply.MessageID); err != nil {
			log.Printf("bot: mark read %s failed: %v", reply.MessageID, err)
			metrics.OutboundFailures.WithLabelValues("read").Inc()
		}
	}
}

func (h *Handler) withStore(ctx context.Context, fn func(ctx context.Context) (bool, error)) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()
	return fn(ctx)
}

// deliver sends m. Failures are logged and counted; the session is already
// saved, so the user simply retries from the persisted state.
func (h *Handler) deliver(ctx context.Context, phone string, m flow.Message) {
	ctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()

	var err error
	kind := "text"
	switch {
	case m.Kind == flow.KindButtons && len(m.Options) > 0:
		kind = "buttons"
		err = h.wa.SendInteractiveButtons(ctx, phone, m.Body, toWAButtons(m.Options))
	case m.Kind == flow.KindList && len(m.Options) > 0:
		kind = "list"
		err = h.wa.SendList(ctx, phone, m.Body, m.ListButton, toWASections(m.SectionTitle, m.Options))
	default:
		err = h.wa.SendText(ctx, phone, m.Body)
	}
	if err != nil {
		log.Printf("bot: failed to send %s reply to %s: %v", kind, phone, err)
		metrics.OutboundFailures.WithLabelValues(kind).Inc()
	}
}

func (h *Handler) sendText(ctx context.Context, phone, body string) {
	h.deliver(ctx, phone, flow.Message{Kind: flow.KindText, Body: body})
}

func toWAButtons(opts []flow.Option) []whatsapp.Button {
	wa := make([]whatsapp.Button, len(opts))
	for i, o := range opts {
		wa[i] = whatsapp.Button{
			Type:  "reply",
			Reply: whatsapp.ButtonReply{ID: o.ID, Title: o.Title},
		}
	}
	return wa
}

func toWASections(title string, opts []flow.Option) []whatsapp.Section {
	rows := make([]whatsapp.SectionRow, len(opts))
	for i, o := range opts {
		rows[i] = whatsapp.SectionRow{ID: o.ID, Title: o.Title, Description: o.Description}
	}
	return []whatsapp.Section{{Title: title, Rows: rows}}
}
