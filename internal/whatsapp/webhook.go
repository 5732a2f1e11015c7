package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/lojasmm/washbot/internal/metrics"
)

const maxWebhookBody = 1 << 20

// MessageHandler is called once per supported inbound message.
type MessageHandler func(ctx context.Context, reply Reply)

type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onMessage   MessageHandler

	inflight sync.WaitGroup
}

// NewWebhookHandler builds the Meta webhook endpoint. When appSecret is set,
// POST bodies must carry a valid X-Hub-Signature-256 header.
func NewWebhookHandler(verifyToken, appSecret string, onMessage MessageHandler) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onMessage:   onMessage,
	}
}

// HandleVerify handles the GET webhook verification from Meta.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/get-started#webhook-verification
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	log.Printf("webhook: verification rejected (mode=%q)", mode)
	w.WriteHeader(http.StatusForbidden)
}

// HandleIncoming processes incoming webhook POST notifications.
// It always answers 200, and answers before any message is handled: Meta
// retries anything slower than a few seconds. Each sender's messages run in
// batch order on a background goroutine; Wait drains them on shutdown.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components
func (h *WebhookHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	batches := h.collect(w, r)
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	for _, replies := range batches {
		h.start(ctx, replies)
	}
}

// collect reads the notification and groups supported messages by sender,
// keeping the order Meta sent them in. Rejected deliveries yield nil.
func (h *WebhookHandler) collect(w http.ResponseWriter, r *http.Request) [][]Reply {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("webhook: failed to read body: %v", err)
		metrics.WebhookRejected.WithLabelValues("read").Inc()
		return nil
	}

	if h.appSecret != "" && !validSignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		log.Printf("webhook: invalid signature, dropping delivery")
		metrics.WebhookRejected.WithLabelValues("signature").Inc()
		return nil
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("webhook: failed to decode payload: %v", err)
		metrics.WebhookRejected.WithLabelValues("decode").Inc()
		return nil
	}

	var batches [][]Reply
	index := make(map[string]int)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, st := range change.Value.Statuses {
				logStatus(st)
			}
			for _, msg := range change.Value.Messages {
				reply, ok := Normalize(msg)
				if !ok {
					log.Printf("webhook: skipping unsupported %q message %s from %s", msg.Type, msg.ID, msg.From)
					metrics.WebhookMessages.WithLabelValues("unsupported").Inc()
					continue
				}
				metrics.WebhookMessages.WithLabelValues(string(reply.Kind)).Inc()
				i, ok := index[reply.From]
				if !ok {
					i = len(batches)
					index[reply.From] = i
					batches = append(batches, nil)
				}
				batches[i] = append(batches[i], reply)
			}
		}
	}
	return batches
}

// start handles one sender's replies in order on a background goroutine.
// The request context is detached so the work outlives the response.
func (h *WebhookHandler) start(ctx context.Context, replies []Reply) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		for _, reply := range replies {
			h.dispatch(ctx, reply)
		}
	}()
}

// Wait blocks until every handed-off message has been handled or ctx ends.
func (h *WebhookHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WebhookHandler) dispatch(ctx context.Context, reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("webhook: panic handling message %s from %s: %v\n%s", reply.MessageID, reply.From, rec, debug.Stack())
		}
	}()
	h.onMessage(ctx, reply)
}

func logStatus(st Status) {
	metrics.WebhookStatuses.WithLabelValues(st.Status).Inc()
	if len(st.Errors) > 0 {
		log.Printf("webhook: message %s to %s is %s: %d %s", st.ID, st.RecipientID, st.Status, st.Errors[0].Code, st.Errors[0].Title)
		return
	}
	log.Printf("webhook: message %s to %s is %s", st.ID, st.RecipientID, st.Status)
}

// validSignature checks Meta's "sha256=<hex hmac>" header against body.
func validSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
