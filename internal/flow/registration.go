package flow

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lojasmm/washbot/internal/shop"
)

var (
	optRegistrarme  = Option{ID: "REGISTRARME", Title: "Registrarme", Aliases: []string{"registrar", "registro", "alta"}}
	optYaSoyCliente = Option{ID: "YA_SOY_CLIENTE", Title: "Ya soy cliente", Aliases: []string{"soy cliente", "cliente"}}
	optOmitir       = Option{ID: "OMITIR", Title: "Omitir", Aliases: []string{"saltar", "no tengo", "ninguno"}}
)

// --- INICIO ---

func (p *Processor) promptInicio(t *turn) error {
	body := fmt.Sprintf("¡Hola! 👋 Te damos la bienvenida a *%s*.\n\n"+
		"Por acá podés registrarte como cliente, cargar tus vehículos y consultar tus datos.\n\n"+
		"¿Qué querés hacer?", p.shopName)
	t.send(buttonsMessage(body, optRegistrarme, optYaSoyCliente))
	return nil
}

func (p *Processor) handleInicio(t *turn) error {
	if t.created {
		return t.retry("")
	}

	if t.sess.IsAuthenticated() {
		c, err := p.customers.GetCustomer(t.ctx, t.sess.CustomerID)
		switch {
		case err == nil:
			t.customer = c
			return t.enter(StateMenuClienteAutenticado)
		case errors.Is(err, shop.ErrNotFound):
			t.sess.CustomerID = ""
		default:
			return fmt.Errorf("loading customer: %w", err)
		}
	}

	opt, ok := matchOption(t.reply, []Option{optRegistrarme, optYaSoyCliente})
	if !ok {
		return t.retry("")
	}

	switch opt.ID {
	case optRegistrarme.ID:
		return t.enter(StateRegistroTipoDocumento)
	default:
		c, err := p.customers.FindCustomerByPhone(t.ctx, t.sess.ID)
		if errors.Is(err, shop.ErrNotFound) {
			return t.retry("No encontramos un cliente asociado a este número. Podés registrarte en unos pocos pasos.")
		}
		if err != nil {
			return fmt.Errorf("finding customer by phone: %w", err)
		}
		t.link(c)
		log.Printf("flow: %s linked to existing customer %s", t.sess.ID, c.ID)
		return t.enter(StateMenuClienteAutenticado)
	}
}

// --- Registration ---

func (p *Processor) documentOptions() []Option {
	var opts []Option
	for _, d := range p.catalog.DocumentTypes() {
		opts = append(opts, Option{ID: "DOC_" + d.ID, Title: d.Name, Description: "Ej: " + d.Format.Example(), Aliases: []string{d.ID}})
	}
	return opts
}

func (p *Processor) promptRegistroTipoDocumento(t *turn) error {
	t.send(listMessage("Vamos con tu registro. ¿Qué tipo de documento tenés?", "Ver opciones", "Documento", p.documentOptions()...))
	return nil
}

func (p *Processor) handleRegistroTipoDocumento(t *turn) error {
	opt, ok := matchOption(t.reply, p.documentOptions())
	if !ok {
		return t.retry("Elegí un tipo de documento de la lista.")
	}
	t.set(KeyTipoDocumento, strings.TrimPrefix(opt.ID, "DOC_"))
	return t.enter(StateRegistroNumDocumento)
}

// documentType returns the document type chosen earlier in the flow. If the
// catalog no longer has it, the registration restarts.
func (p *Processor) documentType(t *turn) (shop.DocumentType, bool) {
	return p.catalog.DocumentType(t.get(KeyTipoDocumento))
}

func (p *Processor) restartRegistration(t *turn) error {
	t.discardFlow()
	return t.enter(StateRegistroTipoDocumento)
}

func (p *Processor) promptRegistroNumDocumento(t *turn) error {
	dt, ok := p.documentType(t)
	if !ok {
		return p.restartRegistration(t)
	}
	t.say(fmt.Sprintf("Ingresá tu número de %s, sin puntos ni espacios (por ejemplo %s).", dt.Name, dt.Format.Example()))
	return nil
}

func (p *Processor) handleRegistroNumDocumento(t *turn) error {
	dt, ok := p.documentType(t)
	if !ok {
		return p.restartRegistration(t)
	}
	if !dt.Format.Match(t.reply) {
		return t.retry(fmt.Sprintf("Ese número no tiene un formato válido de %s.", dt.Name))
	}
	number := shop.NormalizeCode(t.reply)

	existing, err := p.customers.FindCustomerByDocument(t.ctx, dt.ID, number)
	switch {
	case errors.Is(err, shop.ErrNotFound):
	case err != nil:
		return fmt.Errorf("finding customer by document: %w", err)
	case existing.Phone == t.sess.ID:
		t.link(existing)
		t.say(fmt.Sprintf("Ya estabas registrado, %s. ¡Bienvenido de nuevo!", existing.FullName()))
		return t.enter(StateMenuClienteAutenticado)
	default:
		t.say(fmt.Sprintf("Ya hay un cliente registrado con %s %s. Si es tuyo, acercate al local para vincular este número de WhatsApp.", dt.Name, number))
		return t.enter(StateInicio)
	}

	t.set(KeyNumeroDocumento, number)
	return t.enter(StateRegistroNombre)
}

func (p *Processor) promptRegistroNombre(t *turn) error {
	t.say("¿Cuál es tu nombre?")
	return nil
}

func (p *Processor) handleRegistroNombre(t *turn) error {
	name, ok := parseName(t.reply)
	if !ok {
		return t.retry("El nombre solo puede tener letras y espacios (entre 2 y 50 caracteres).")
	}
	t.set(KeyNombre, name)
	return t.enter(StateRegistroApellido)
}

func (p *Processor) promptRegistroApellido(t *turn) error {
	t.say(fmt.Sprintf("Gracias, %s. ¿Cuál es tu apellido?", t.get(KeyNombre)))
	return nil
}

func (p *Processor) handleRegistroApellido(t *turn) error {
	last, ok := parseName(t.reply)
	if !ok {
		return t.retry("El apellido solo puede tener letras y espacios (entre 2 y 50 caracteres).")
	}
	t.set(KeyApellido, last)
	return t.enter(StateRegistroEmail)
}

func (p *Processor) promptRegistroEmail(t *turn) error {
	t.send(buttonsMessage("¿Cuál es tu email? Lo usamos para avisarte cuando tu vehículo está listo.\n\nSi preferís no dejarlo, tocá *Omitir*.", optOmitir))
	return nil
}

func (p *Processor) handleRegistroEmail(t *turn) error {
	if _, skip := matchOption(t.reply, []Option{optOmitir}); skip {
		t.set(KeyEmail, "")
		return t.enter(StateRegistroConfirmacion)
	}
	email, ok := parseEmail(t.reply)
	if !ok {
		return t.retry("Ese email no parece válido.")
	}
	t.set(KeyEmail, email)
	return t.enter(StateRegistroConfirmacion)
}

func (p *Processor) promptRegistroConfirmacion(t *turn) error {
	dt, ok := p.documentType(t)
	if !ok {
		return p.restartRegistration(t)
	}
	body := fmt.Sprintf("Revisá tus datos:\n\n"+
		"• Documento: %s %s\n"+
		"• Nombre: %s\n"+
		"• Apellido: %s\n"+
		"• Email: %s\n\n"+
		"¿Confirmás el registro?",
		dt.Name, t.get(KeyNumeroDocumento), t.get(KeyNombre), t.get(KeyApellido), orDash(t.get(KeyEmail)))
	t.send(buttonsMessage(body, confirmOptions("")...))
	return nil
}

func (p *Processor) handleRegistroConfirmacion(t *turn) error {
	opt, ok := matchOption(t.reply, confirmOptions(""))
	if !ok {
		return t.retry("Respondé *Confirmar* o *Cancelar*.")
	}
	if opt.ID == optNo.ID {
		t.discardFlow()
		t.say("Registro cancelado. Cuando quieras, podés empezar de nuevo.")
		return t.enter(StateInicio)
	}

	c := &shop.Customer{
		DocumentType:   t.get(KeyTipoDocumento),
		DocumentNumber: t.get(KeyNumeroDocumento),
		FirstName:      t.get(KeyNombre),
		LastName:       t.get(KeyApellido),
		Email:          t.get(KeyEmail),
		Phone:          t.sess.ID,
	}
	if err := p.customers.CreateCustomer(t.ctx, c); err != nil {
		if !errors.Is(err, shop.ErrDuplicate) {
			return t.failed("creating customer", "No pudimos completar el registro.", err)
		}
		// A redelivered confirmation finds the customer this phone created.
		existing, ferr := p.customers.FindCustomerByDocument(t.ctx, c.DocumentType, c.DocumentNumber)
		if ferr != nil || existing.Phone != t.sess.ID {
			t.discardFlow()
			t.say("Ya existe un cliente con ese documento. Si es tuyo, acercate al local para vincular este número.")
			return t.enter(StateInicio)
		}
		c = existing
	}

	t.discardFlow()
	t.link(c)
	log.Printf("flow: %s registered customer %s", t.sess.ID, c.ID)
	t.say(fmt.Sprintf("¡Listo, %s! Ya quedaste registrado. 🎉", c.FullName()))
	return t.enter(StateRegistroVehiculoOpcion)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
