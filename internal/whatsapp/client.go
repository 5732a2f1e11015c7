package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIURL     = "https://graph.facebook.com"
	DefaultAPIVersion = "v21.0"
)

// Platform limits for interactive messages.
const (
	MaxButtons         = 3
	MaxButtonTitle     = 20
	MaxListRows        = 10
	MaxListRowTitle    = 24
	MaxListRowDesc     = 72
	MaxListButtonText  = 20
	MaxSectionTitle    = 24
	MaxInteractiveBody = 1024
	MaxTextBody        = 4096
)

// APIError is returned when the Graph API answers with a 4xx/5xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp API status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

// NewClient builds a Cloud API client. Empty apiURL or apiVersion fall back
// to the defaults.
func NewClient(apiURL, apiVersion, phoneNumberID, accessToken string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		baseURL:       strings.TrimRight(apiURL, "/") + "/" + apiVersion,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SendText(ctx context.Context, to, body string) error {
	msg := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &SendText{Body: truncate(body, MaxTextBody)},
	}
	return c.send(ctx, msg)
}

func (c *Client) SendInteractiveButtons(ctx context.Context, to, body string, buttons []Button) error {
	if len(buttons) == 0 || len(buttons) > MaxButtons {
		return fmt.Errorf("whatsapp: %d buttons, want 1..%d", len(buttons), MaxButtons)
	}
	clipped := make([]Button, len(buttons))
	for i, b := range buttons {
		b.Reply.Title = truncate(b.Reply.Title, MaxButtonTitle)
		clipped[i] = b
	}
	msg := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   InteractiveBody{Text: truncate(body, MaxInteractiveBody)},
			Action: InteractiveAction{Buttons: clipped},
		},
	}
	return c.send(ctx, msg)
}

func (c *Client) SendList(ctx context.Context, to, body, buttonText string, sections []Section) error {
	rows := 0
	clipped := make([]Section, len(sections))
	for i, s := range sections {
		out := Section{Title: truncate(s.Title, MaxSectionTitle), Rows: make([]SectionRow, len(s.Rows))}
		for j, r := range s.Rows {
			out.Rows[j] = SectionRow{
				ID:          r.ID,
				Title:       truncate(r.Title, MaxListRowTitle),
				Description: truncate(r.Description, MaxListRowDesc),
			}
		}
		rows += len(s.Rows)
		clipped[i] = out
	}
	if rows == 0 || rows > MaxListRows {
		return fmt.Errorf("whatsapp: %d list rows, want 1..%d", rows, MaxListRows)
	}

	msg := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type: "list",
			Body: InteractiveBody{Text: truncate(body, MaxInteractiveBody)},
			Action: InteractiveAction{
				Button:   truncate(buttonText, MaxListButtonText),
				Sections: clipped,
			},
		},
	}
	return c.send(ctx, msg)
}

// MarkRead marks an inbound message as read (blue ticks).
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.post(ctx, MarkReadRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
}

func (c *Client) send(ctx context.Context, msg SendMessageRequest) error {
	return c.post(ctx, msg)
}

func (c *Client) post(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
