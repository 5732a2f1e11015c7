package flow

import (
	"fmt"
	"strings"

	"github.com/lojasmm/washbot/internal/shop"
)

var (
	optMisDatos     = Option{ID: "MIS_DATOS", Title: "Mis datos", Aliases: []string{"datos", "ver datos"}}
	optEditarDatos  = Option{ID: "EDITAR_DATOS", Title: "Editar datos", Aliases: []string{"editar", "modificar datos"}}
	optMisVehiculos = Option{ID: "MIS_VEHICULOS", Title: "Mis vehículos", Aliases: []string{"vehiculos", "autos"}}

	optEditNombre   = Option{ID: "EDIT_NOMBRE", Title: "Nombre"}
	optEditApellido = Option{ID: "EDIT_APELLIDO", Title: "Apellido"}
	optEditEmail    = Option{ID: "EDIT_EMAIL", Title: "Email", Aliases: []string{"correo", "mail"}}
)

// editableField describes a customer field editable from WhatsApp.
type editableField struct {
	key   string
	label string
	state State
	parse func(string) (string, bool)
	get   func(*shop.Customer) string
	apply func(*shop.Customer, string)
	hint  string
}

var editableFields = []editableField{
	{
		key: KeyNombre, label: "nombre", state: StateEditarNombre, parse: parseName,
		get:   func(c *shop.Customer) string { return c.FirstName },
		apply: func(c *shop.Customer, v string) { c.FirstName = v },
		hint:  "El nombre solo puede tener letras y espacios (entre 2 y 50 caracteres).",
	},
	{
		key: KeyApellido, label: "apellido", state: StateEditarApellido, parse: parseName,
		get:   func(c *shop.Customer) string { return c.LastName },
		apply: func(c *shop.Customer, v string) { c.LastName = v },
		hint:  "El apellido solo puede tener letras y espacios (entre 2 y 50 caracteres).",
	},
	{
		key: KeyEmail, label: "email", state: StateEditarEmail, parse: parseEmail,
		get:   func(c *shop.Customer) string { return c.Email },
		apply: func(c *shop.Customer, v string) { c.Email = v },
		hint:  "Ese email no parece válido.",
	},
}

func fieldByState(s State) (editableField, bool) {
	for _, f := range editableFields {
		if f.state == s {
			return f, true
		}
	}
	return editableField{}, false
}

func fieldByKey(key string) (editableField, bool) {
	for _, f := range editableFields {
		if f.key == key {
			return f, true
		}
	}
	return editableField{}, false
}

// --- Main menu ---

func (p *Processor) promptMenuCliente(t *turn) error {
	body := fmt.Sprintf("¿Qué querés hacer, %s?", t.customer.FirstName)
	t.send(buttonsMessage(body, optMisDatos, optEditarDatos, optMisVehiculos))
	return nil
}

func (p *Processor) handleMenuCliente(t *turn) error {
	opt, ok := matchOption(t.reply, []Option{optMisDatos, optEditarDatos, optMisVehiculos})
	if !ok {
		return t.retry(fmt.Sprintf("¡Hola, %s! Elegí una opción del menú.", t.customer.FirstName))
	}
	switch opt.ID {
	case optMisDatos.ID:
		return t.enter(StateMostrarDatos)
	case optEditarDatos.ID:
		return t.enter(StateEditarDatosMenu)
	default:
		return t.enter(StateMenuVehiculos)
	}
}

// --- Show data ---

func (p *Processor) describeCustomer(c *shop.Customer) string {
	docName := c.DocumentType
	if dt, ok := p.catalog.DocumentType(c.DocumentType); ok {
		docName = dt.Name
	}
	return fmt.Sprintf("📋 *Tus datos*\n\n"+
		"• Documento: %s %s\n"+
		"• Nombre: %s\n"+
		"• Apellido: %s\n"+
		"• Email: %s\n"+
		"• Teléfono: +%s",
		docName, c.DocumentNumber, c.FirstName, c.LastName, orDash(c.Email), strings.TrimPrefix(c.Phone, "+"))
}

func (p *Processor) promptMostrarDatos(t *turn) error {
	t.send(buttonsMessage(p.describeCustomer(t.customer), optEditarDatos, optBackToMenu))
	return nil
}

func (p *Processor) handleMostrarDatos(t *turn) error {
	opt, ok := matchOption(t.reply, []Option{optEditarDatos, optBackToMenu})
	if !ok {
		return t.enter(StateMenuClienteAutenticado)
	}
	if opt.ID == optEditarDatos.ID {
		return t.enter(StateEditarDatosMenu)
	}
	return t.enter(StateMenuClienteAutenticado)
}

// --- Profile editing ---

func (p *Processor) promptEditarDatosMenu(t *turn) error {
	t.send(listMessage("¿Qué dato querés modificar?", "Ver opciones", "Tus datos",
		optEditNombre, optEditApellido, optEditEmail, optBackToMenu))
	return nil
}

func (p *Processor) handleEditarDatosMenu(t *turn) error {
	opt, ok := matchOption(t.reply, []Option{optEditNombre, optEditApellido, optEditEmail, optBackToMenu})
	if !ok {
		return t.retry("Elegí el dato que querés modificar.")
	}
	switch opt.ID {
	case optEditNombre.ID:
		return t.enter(StateEditarNombre)
	case optEditApellido.ID:
		return t.enter(StateEditarApellido)
	case optEditEmail.ID:
		return t.enter(StateEditarEmail)
	default:
		return t.enter(StateMenuClienteAutenticado)
	}
}

func (p *Processor) promptEditarCampo(t *turn) error {
	f, ok := fieldByState(t.state())
	if !ok {
		return t.enter(StateEditarDatosMenu)
	}
	current := f.get(t.customer)
	if current == "" {
		t.say(fmt.Sprintf("Todavía no cargaste tu %s. Escribí el nuevo valor.", f.label))
		return nil
	}
	t.say(fmt.Sprintf("Tu %s actual es *%s*. Escribí el nuevo valor.", f.label, current))
	return nil
}

func (p *Processor) handleEditarCampo(t *turn) error {
	f, ok := fieldByState(t.state())
	if !ok {
		return t.enter(StateEditarDatosMenu)
	}
	value, ok := f.parse(t.reply)
	if !ok {
		return t.retry(f.hint)
	}
	t.set(KeyCampoEdicion, f.key)
	t.set(KeyValorEdicion, value)
	return t.enter(StateConfirmarEdicion)
}

func (p *Processor) promptConfirmarEdicion(t *turn) error {
	f, ok := fieldByKey(t.get(KeyCampoEdicion))
	if !ok {
		t.discardFlow()
		return t.enter(StateEditarDatosMenu)
	}
	body := fmt.Sprintf("¿Confirmás cambiar tu %s de *%s* a *%s*?", f.label, orDash(f.get(t.customer)), t.get(KeyValorEdicion))
	t.send(buttonsMessage(body, confirmOptions("")...))
	return nil
}

func (p *Processor) handleConfirmarEdicion(t *turn) error {
	f, ok := fieldByKey(t.get(KeyCampoEdicion))
	if !ok {
		t.discardFlow()
		return t.enter(StateEditarDatosMenu)
	}
	opt, ok := matchOption(t.reply, confirmOptions(""))
	if !ok {
		return t.retry("Respondé *Confirmar* o *Cancelar*.")
	}
	if opt.ID == optNo.ID {
		t.discardFlow()
		t.say("Cambio descartado.")
		return t.enter(StateEditarDatosMenu)
	}

	updated := *t.customer
	f.apply(&updated, t.get(KeyValorEdicion))
	if err := p.customers.UpdateCustomer(t.ctx, &updated); err != nil {
		return t.failed("updating customer "+updated.ID, "No pudimos guardar el cambio.", err)
	}

	t.discardFlow()
	t.customer = &updated
	t.say(fmt.Sprintf("✅ Actualizamos tu %s.", f.label))
	return t.enter(StateMenuClienteAutenticado)
}
