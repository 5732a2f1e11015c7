package whatsapp

// ReplyKind tells which inbound shape a Reply was taken from.
type ReplyKind string

const (
	ReplyText         ReplyKind = "text"
	ReplyButton       ReplyKind = "button_reply"
	ReplyList         ReplyKind = "list_reply"
	ReplyLegacyButton ReplyKind = "button"
)

// Reply is the single user intent extracted from an inbound message.
// Token is what the flow consumes: the text body, or the id of the tapped
// option. Title keeps the label the user saw, for logging.
type Reply struct {
	From      string
	MessageID string
	Kind      ReplyKind
	Token     string
	Title     string
}

// Normalize extracts a Reply from an inbound message. It returns false for
// unsupported types and for messages without usable content; those must be
// acknowledged but not processed.
func Normalize(msg Message) (Reply, bool) {
	r := Reply{From: msg.From, MessageID: msg.ID}

	switch msg.Type {
	case "text":
		if msg.Text == nil || msg.Text.Body == "" {
			return Reply{}, false
		}
		r.Kind, r.Token = ReplyText, msg.Text.Body

	case "interactive":
		if msg.Interactive == nil {
			return Reply{}, false
		}
		switch msg.Interactive.Type {
		case "button_reply":
			br := msg.Interactive.ButtonReply
			if br == nil || br.ID == "" {
				return Reply{}, false
			}
			r.Kind, r.Token, r.Title = ReplyButton, br.ID, br.Title
		case "list_reply":
			lr := msg.Interactive.ListReply
			if lr == nil || lr.ID == "" {
				return Reply{}, false
			}
			r.Kind, r.Token, r.Title = ReplyList, lr.ID, lr.Title
		default:
			return Reply{}, false
		}

	case "button":
		if msg.Button == nil {
			return Reply{}, false
		}
		r.Kind, r.Title = ReplyLegacyButton, msg.Button.Text
		r.Token = msg.Button.Payload
		if r.Token == "" {
			r.Token = msg.Button.Text
		}
		if r.Token == "" {
			return Reply{}, false
		}

	default:
		return Reply{}, false
	}

	if r.From == "" {
		return Reply{}, false
	}
	return r, true
}
