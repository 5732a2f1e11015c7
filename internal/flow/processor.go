// Package flow implements the WhatsApp conversation state machine: one
// persisted state token plus scratch data per phone number, advanced by one
// handler per state.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"time"

	"github.com/lojasmm/washbot/internal/metrics"
	"github.com/lojasmm/washbot/internal/shop"
	"github.com/lojasmm/washbot/internal/store"
)

const genericErrorText = "Tuvimos un problema procesando tu mensaje. Intentá de nuevo en unos minutos."

// Result is the outcome of one processed message. The session has already
// been persisted when Process returns.
type Result struct {
	Session  *store.Session
	Messages []Message
	Created  bool
}

type stateHandler func(t *turn) error

type Processor struct {
	sessions  store.SessionStore
	customers shop.Customers
	vehicles  shop.Vehicles
	catalog   shop.Catalog
	shopName  string
	now       func() time.Time

	handlers map[State]stateHandler
	prompts  map[State]stateHandler
}

func NewProcessor(sessions store.SessionStore, customers shop.Customers, vehicles shop.Vehicles, catalog shop.Catalog, shopName string) *Processor {
	p := &Processor{
		sessions:  sessions,
		customers: customers,
		vehicles:  vehicles,
		catalog:   catalog,
		shopName:  shopName,
		now:       time.Now,
	}
	p.handlers = map[State]stateHandler{
		StateInicio: p.handleInicio,

		StateRegistroTipoDocumento:  p.handleRegistroTipoDocumento,
		StateRegistroNumDocumento:   p.handleRegistroNumDocumento,
		StateRegistroNombre:         p.handleRegistroNombre,
		StateRegistroApellido:       p.handleRegistroApellido,
		StateRegistroEmail:          p.handleRegistroEmail,
		StateRegistroConfirmacion:   p.handleRegistroConfirmacion,
		StateRegistroVehiculoOpcion: p.handleVehiculoMenu,

		StateVehiculoMenu:         p.handleVehiculoMenu,
		StateVehiculoTipo:         p.handleVehiculoTipo,
		StateVehiculoPatente:      p.handleVehiculoPatente,
		StateVehiculoMarca:        p.handleVehiculoMarca,
		StateVehiculoModelo:       p.handleVehiculoModelo,
		StateVehiculoColor:        p.handleVehiculoColor,
		StateVehiculoConfirmacion: p.handleVehiculoConfirmacion,

		StateMenuClienteAutenticado: p.handleMenuCliente,
		StateMostrarDatos:           p.handleMostrarDatos,

		StateEditarDatosMenu:  p.handleEditarDatosMenu,
		StateEditarNombre:     p.handleEditarCampo,
		StateEditarApellido:   p.handleEditarCampo,
		StateEditarEmail:      p.handleEditarCampo,
		StateConfirmarEdicion: p.handleConfirmarEdicion,

		StateMenuVehiculos:                p.handleMenuVehiculos,
		StateMostrarVehiculos:             p.handleMenuVehiculos,
		StateSeleccionarVehiculoModificar: p.handleSeleccionarVehiculo,
		StateModificarVehiculoMenu:        p.handleModificarVehiculoMenu,
		StateModificarVehiculoModelo:      p.handleModificarVehiculoModelo,
		StateModificarVehiculoColor:       p.handleModificarVehiculoColor,
		StateConfirmarEliminarVehiculo:    p.handleConfirmarEliminarVehiculo,

		StateAsociarVehiculoPatente:      p.handleAsociarPatente,
		StateAsociarVehiculoClave:        p.handleAsociarClave,
		StateAsociarVehiculoConfirmacion: p.handleAsociarConfirmacion,
		StateMostrarClaveVehiculo:        p.handleMostrarClave,
	}
	p.prompts = map[State]stateHandler{
		StateInicio: p.promptInicio,

		StateRegistroTipoDocumento:  p.promptRegistroTipoDocumento,
		StateRegistroNumDocumento:   p.promptRegistroNumDocumento,
		StateRegistroNombre:         p.promptRegistroNombre,
		StateRegistroApellido:       p.promptRegistroApellido,
		StateRegistroEmail:          p.promptRegistroEmail,
		StateRegistroConfirmacion:   p.promptRegistroConfirmacion,
		StateRegistroVehiculoOpcion: p.promptRegistroVehiculoOpcion,

		StateVehiculoMenu:         p.promptVehiculoMenu,
		StateVehiculoTipo:         p.promptVehiculoTipo,
		StateVehiculoPatente:      p.promptVehiculoPatente,
		StateVehiculoMarca:        p.promptVehiculoMarca,
		StateVehiculoModelo:       p.promptVehiculoModelo,
		StateVehiculoColor:        p.promptVehiculoColor,
		StateVehiculoConfirmacion: p.promptVehiculoConfirmacion,

		StateMenuClienteAutenticado: p.promptMenuCliente,
		StateMostrarDatos:           p.promptMostrarDatos,

		StateEditarDatosMenu:  p.promptEditarDatosMenu,
		StateEditarNombre:     p.promptEditarCampo,
		StateEditarApellido:   p.promptEditarCampo,
		StateEditarEmail:      p.promptEditarCampo,
		StateConfirmarEdicion: p.promptConfirmarEdicion,

		StateMenuVehiculos:                p.promptMenuVehiculos,
		StateMostrarVehiculos:             p.promptMostrarVehiculos,
		StateSeleccionarVehiculoModificar: p.promptSeleccionarVehiculo,
		StateModificarVehiculoMenu:        p.promptModificarVehiculoMenu,
		StateModificarVehiculoModelo:      p.promptModificarVehiculoModelo,
		StateModificarVehiculoColor:       p.promptModificarVehiculoColor,
		StateConfirmarEliminarVehiculo:    p.promptConfirmarEliminarVehiculo,

		StateAsociarVehiculoPatente:      p.promptAsociarPatente,
		StateAsociarVehiculoClave:        p.promptAsociarClave,
		StateAsociarVehiculoConfirmacion: p.promptAsociarConfirmacion,
		StateMostrarClaveVehiculo:        p.promptMostrarClave,
	}
	return p
}

// Process runs one inbound reply through the state machine and persists the
// resulting session. Callers must serialize calls for the same phone.
//
// Handler failures are answered with a generic message and leave the session
// as it was (except lastInteraction). Only store failures are returned.
func (p *Processor) Process(ctx context.Context, phone, reply string) (*Result, error) {
	now := p.now()

	sess, err := p.sessions.GetSession(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", phone, err)
	}
	created := sess == nil
	if created {
		sess = &store.Session{
			ID:            phone,
			CurrentState:  string(StateInicio),
			TemporaryData: make(map[string]string),
			CreatedAt:     now,
		}
	}
	sess.LastInteraction = now

	from := State(sess.CurrentState)
	before := snapshotOf(sess)

	t := &turn{p: p, ctx: ctx, sess: sess, reply: reply, created: created}
	if err := p.step(t); err != nil {
		log.Printf("flow: %s at %s: %v", phone, from, err)
		before.restore(sess)
		t.out = []Message{textMessage(genericErrorText)}
	}
	pruneTemporaryData(sess)

	if err := p.sessions.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session %s: %w", phone, err)
	}

	if to := State(sess.CurrentState); to != from {
		metrics.Transitions.WithLabelValues(string(from), string(to)).Inc()
	}
	return &Result{Session: sess, Messages: t.out, Created: created}, nil
}

func (p *Processor) step(t *turn) error {
	st := t.state()
	if !st.Valid() {
		log.Printf("flow: %s has unknown state %q, resetting", t.sess.ID, st)
		t.goTo(StateInicio)
		st = StateInicio
	}
	spec := states[st]

	if t.sess.IsAuthenticated() {
		c, err := p.customers.GetCustomer(t.ctx, t.sess.CustomerID)
		if errors.Is(err, shop.ErrNotFound) {
			log.Printf("flow: %s linked to missing customer %s, unlinking", t.sess.ID, t.sess.CustomerID)
			t.sess.CustomerID = ""
			t.say("No encontramos tu registro de cliente. Empecemos de nuevo.")
			return t.enter(StateInicio)
		}
		if err != nil {
			return fmt.Errorf("loading customer: %w", err)
		}
		t.customer = c
	} else if spec.auth {
		t.goTo(StateInicio)
		return p.handleInicio(t)
	}

	if spec.guest && t.sess.IsAuthenticated() {
		return t.enter(StateMenuClienteAutenticado)
	}

	for _, k := range spec.requires {
		if _, ok := t.sess.TemporaryData[k]; !ok {
			log.Printf("flow: %s at %s is missing %q, restarting at %s", t.sess.ID, st, k, spec.restart)
			t.discardFlow()
			return t.enter(spec.restart)
		}
	}

	if spec.menu != "" && isEscapeWord(t.reply) {
		if spec.flow != flowNone {
			t.say("Listo, cancelamos esa operación.")
		}
		t.discardFlow()
		return t.enter(spec.menu)
	}

	return p.handlers[st](t)
}

// pruneTemporaryData drops every key not owned by the flow of the current
// state, so data captured in one flow never leaks into another.
func pruneTemporaryData(sess *store.Session) {
	if sess.TemporaryData == nil {
		sess.TemporaryData = make(map[string]string)
		return
	}
	keep := map[string]bool{}
	for _, k := range FlowKeys[FlowOf(State(sess.CurrentState))] {
		keep[k] = true
	}
	maps.DeleteFunc(sess.TemporaryData, func(k, _ string) bool {
		return !keep[k]
	})
}

type snapshot struct {
	state      string
	customerID string
	data       map[string]string
}

func snapshotOf(s *store.Session) snapshot {
	return snapshot{state: s.CurrentState, customerID: s.CustomerID, data: maps.Clone(s.TemporaryData)}
}

func (s snapshot) restore(sess *store.Session) {
	sess.CurrentState = s.state
	sess.CustomerID = s.customerID
	sess.TemporaryData = s.data
}

// turn carries the state of one Process call through the handlers.
type turn struct {
	p        *Processor
	ctx      context.Context
	sess     *store.Session
	reply    string
	created  bool
	customer *shop.Customer
	out      []Message
}

func (t *turn) state() State { return State(t.sess.CurrentState) }

func (t *turn) goTo(s State) { t.sess.CurrentState = string(s) }

func (t *turn) get(key string) string { return t.sess.TemporaryData[key] }

func (t *turn) set(key, value string) { t.sess.TemporaryData[key] = value }

func (t *turn) say(body string) { t.out = append(t.out, textMessage(body)) }

func (t *turn) send(m Message) { t.out = append(t.out, m) }

// enter moves to s and sends its prompt.
func (t *turn) enter(s State) error {
	t.goTo(s)
	return t.p.prompts[s](t)
}

// retry keeps the current state and data, and re-sends the prompt after a
// correction notice.
func (t *turn) retry(notice string) error {
	if notice != "" {
		t.say(notice)
	}
	return t.p.prompts[t.state()](t)
}

// discardFlow removes the temporary data of the current state's flow.
func (t *turn) discardFlow() {
	for _, k := range FlowKeys[FlowOf(t.state())] {
		delete(t.sess.TemporaryData, k)
	}
}

// failed answers a collaborator error for action. Retryable failures keep the
// state and its data so the same step can be confirmed again; anything else
// abandons the flow and returns to its owning menu.
func (t *turn) failed(action, notice string, err error) error {
	e := shop.Classify(err)
	log.Printf("flow: %s %s failed (%s): %v", t.sess.ID, action, e.Type, err)
	if e.Retryable {
		return t.retry(notice + " " + e.Message)
	}
	menu := states[t.state()].menu
	if menu == "" {
		menu = StateMenuClienteAutenticado
	}
	t.discardFlow()
	t.say(notice + " " + e.Message)
	return t.enter(menu)
}

// link attaches the session to c.
func (t *turn) link(c *shop.Customer) {
	t.sess.CustomerID = c.ID
	t.customer = c
}
