package flow

// MessageKind selects how a Message is rendered on WhatsApp.
type MessageKind int

const (
	KindText MessageKind = iota
	KindButtons
	KindList
)

// Option is a tappable choice. The ID comes back as the reply token when the
// user taps it; Aliases are extra words accepted when the user types instead.
type Option struct {
	ID          string
	Title       string
	Description string
	Aliases     []string
}

// Message is an outbound message produced by a transition.
type Message struct {
	Kind    MessageKind
	Body    string
	Options []Option

	// List only.
	ListButton   string
	SectionTitle string
}

func textMessage(body string) Message {
	return Message{Kind: KindText, Body: body}
}

func buttonsMessage(body string, opts ...Option) Message {
	return Message{Kind: KindButtons, Body: body, Options: opts}
}

func listMessage(body, button, section string, opts ...Option) Message {
	return Message{Kind: KindList, Body: body, ListButton: button, SectionTitle: section, Options: opts}
}

var (
	optYes = Option{ID: "SI", Title: "Confirmar", Aliases: []string{"si", "s", "ok", "dale", "confirmo", "acepto", "yes"}}
	optNo  = Option{ID: "NO", Title: "Cancelar", Aliases: []string{"no", "n"}}

	optBackToMenu = Option{ID: "MENU", Title: "Volver al menú", Aliases: []string{"volver", "menu principal", "inicio"}}
)

func confirmOptions(yesTitle string) []Option {
	yes := optYes
	if yesTitle != "" {
		yes.Title = yesTitle
		yes.Aliases = append([]string{"confirmar"}, optYes.Aliases...)
	}
	return []Option{yes, optNo}
}
