package flow

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lojasmm/washbot/internal/shop"
)

var (
	optVehiculoNuevo   = Option{ID: "VEH_NUEVO", Title: "Vehículo nuevo", Aliases: []string{"registrar vehiculo", "nuevo", "agregar"}}
	optVehiculoAsociar = Option{ID: "VEH_ASOCIAR", Title: "Asociar vehículo", Aliases: []string{"asociar", "asociar existente", "compartido"}}
	optMasTarde        = Option{ID: "MAS_TARDE", Title: "Más tarde", Aliases: []string{"despues", "ahora no"}}
	optVolver          = Option{ID: "VOLVER", Title: "Volver", Aliases: []string{"atras"}}
)

func (p *Processor) promptRegistroVehiculoOpcion(t *turn) error {
	t.send(buttonsMessage("¿Querés cargar tu vehículo ahora?\n\n"+
		"• *Vehículo nuevo*: lo registrás vos.\n"+
		"• *Asociar vehículo*: ya lo registró otra persona y te pasó la clave.",
		optVehiculoNuevo, optVehiculoAsociar, optMasTarde))
	return nil
}

func (p *Processor) promptVehiculoMenu(t *turn) error {
	t.send(buttonsMessage("¿Qué vehículo querés agregar?\n\n"+
		"• *Vehículo nuevo*: lo registrás vos.\n"+
		"• *Asociar vehículo*: ya está registrado y tenés su clave de asociación.",
		optVehiculoNuevo, optVehiculoAsociar, optVolver))
	return nil
}

// handleVehiculoMenu serves VEHICULO_MENU and REGISTRO_VEHICULO_OPCION: both
// branch into a new vehicle or an association; they differ in the way out.
func (p *Processor) handleVehiculoMenu(t *turn) error {
	exit := optVolver
	if t.state() == StateRegistroVehiculoOpcion {
		exit = optMasTarde
	}
	opt, ok := matchOption(t.reply, []Option{optVehiculoNuevo, optVehiculoAsociar, exit})
	if !ok {
		return t.retry("No entendí tu respuesta. Elegí una de las opciones.")
	}

	switch opt.ID {
	case optVehiculoNuevo.ID:
		return t.enter(StateVehiculoTipo)
	case optVehiculoAsociar.ID:
		return t.enter(StateAsociarVehiculoPatente)
	case optMasTarde.ID:
		t.say("¡Perfecto! Cuando quieras, escribinos y te mostramos el menú.")
		t.goTo(StateInicio)
		return nil
	default:
		return t.enter(StateMenuVehiculos)
	}
}

// --- Vehicle creation ---

func (p *Processor) vehicleTypeOptions() []Option {
	var opts []Option
	for _, vt := range p.catalog.VehicleTypes() {
		opts = append(opts, Option{ID: "VT_" + vt.ID, Title: vt.Name, Description: "Patente ej: " + vt.PlateFormat.Example(), Aliases: []string{vt.ID}})
	}
	return opts
}

func (p *Processor) vehicleType(t *turn) (shop.VehicleType, bool) {
	return p.catalog.VehicleType(t.get(KeyTipoVehiculo))
}

func (p *Processor) restartVehicle(t *turn) error {
	t.discardFlow()
	return t.enter(StateVehiculoTipo)
}

func (p *Processor) promptVehiculoTipo(t *turn) error {
	t.send(listMessage("¿Qué tipo de vehículo es?", "Ver tipos", "Tipo de vehículo", p.vehicleTypeOptions()...))
	return nil
}

func (p *Processor) handleVehiculoTipo(t *turn) error {
	opt, ok := matchOption(t.reply, p.vehicleTypeOptions())
	if !ok {
		return t.retry("Elegí un tipo de vehículo de la lista.")
	}
	t.set(KeyTipoVehiculo, strings.TrimPrefix(opt.ID, "VT_"))
	return t.enter(StateVehiculoPatente)
}

func (p *Processor) promptVehiculoPatente(t *turn) error {
	vt, ok := p.vehicleType(t)
	if !ok {
		return p.restartVehicle(t)
	}
	t.say(fmt.Sprintf("Ingresá la patente del vehículo (por ejemplo %s).", vt.PlateFormat.Example()))
	return nil
}

func (p *Processor) handleVehiculoPatente(t *turn) error {
	vt, ok := p.vehicleType(t)
	if !ok {
		return p.restartVehicle(t)
	}
	if !vt.PlateFormat.Match(t.reply) {
		return t.retry(fmt.Sprintf("Esa patente no tiene un formato válido para %s.", strings.ToLower(vt.Name)))
	}
	plate := shop.NormalizeCode(t.reply)

	existing, err := p.vehicles.FindVehicleByPlate(t.ctx, plate)
	switch {
	case errors.Is(err, shop.ErrNotFound):
	case err != nil:
		return fmt.Errorf("finding vehicle %s: %w", plate, err)
	case existing.HasOwner(t.customer.ID):
		t.discardFlow()
		t.say(fmt.Sprintf("El vehículo %s ya figura en tu cuenta.", plate))
		return t.enter(StateMenuVehiculos)
	default:
		return t.retry(fmt.Sprintf("La patente %s ya está registrada por otro cliente. "+
			"Si el vehículo es compartido, pedile la clave al titular y usá *Asociar vehículo*. "+
			"Escribí *cancelar* para volver.", plate))
	}

	t.set(KeyPatente, plate)
	return t.enter(StateVehiculoMarca)
}

func (p *Processor) promptVehiculoMarca(t *turn) error {
	t.say("¿De qué marca es? (por ejemplo Ford, Toyota, Fiat)")
	return nil
}

func (p *Processor) handleVehiculoMarca(t *turn) error {
	brand, ok := parseBrand(t.reply)
	if !ok {
		return t.retry("La marca puede tener letras, números y espacios (hasta 30 caracteres).")
	}
	t.set(KeyMarca, brand)
	return t.enter(StateVehiculoModelo)
}

func (p *Processor) promptVehiculoModelo(t *turn) error {
	t.say(fmt.Sprintf("¿Qué modelo de %s?", t.get(KeyMarca)))
	return nil
}

func (p *Processor) handleVehiculoModelo(t *turn) error {
	model, ok := parseModel(t.reply)
	if !ok {
		return t.retry("El modelo puede tener letras, números y espacios (hasta 40 caracteres).")
	}
	t.set(KeyModelo, model)
	return t.enter(StateVehiculoColor)
}

func (p *Processor) promptVehiculoColor(t *turn) error {
	t.say("¿De qué color es?")
	return nil
}

func (p *Processor) handleVehiculoColor(t *turn) error {
	color, ok := parseColor(t.reply)
	if !ok {
		return t.retry("El color solo puede tener letras (entre 3 y 20 caracteres).")
	}
	t.set(KeyColor, color)
	return t.enter(StateVehiculoConfirmacion)
}

func (p *Processor) promptVehiculoConfirmacion(t *turn) error {
	vt, ok := p.vehicleType(t)
	if !ok {
		return p.restartVehicle(t)
	}
	body := fmt.Sprintf("Revisá los datos del vehículo:\n\n"+
		"• Tipo: %s\n"+
		"• Patente: %s\n"+
		"• Marca: %s\n"+
		"• Modelo: %s\n"+
		"• Color: %s\n\n"+
		"¿Confirmás el registro?",
		vt.Name, t.get(KeyPatente), t.get(KeyMarca), t.get(KeyModelo), t.get(KeyColor))
	t.send(buttonsMessage(body, confirmOptions("")...))
	return nil
}

func (p *Processor) handleVehiculoConfirmacion(t *turn) error {
	opt, ok := matchOption(t.reply, confirmOptions(""))
	if !ok {
		return t.retry("Respondé *Confirmar* o *Cancelar*.")
	}
	if opt.ID == optNo.ID {
		t.discardFlow()
		t.say("Registro del vehículo cancelado.")
		return t.enter(StateMenuVehiculos)
	}

	v := &shop.Vehicle{
		Plate:    t.get(KeyPatente),
		TypeID:   t.get(KeyTipoVehiculo),
		Brand:    t.get(KeyMarca),
		Model:    t.get(KeyModelo),
		Color:    t.get(KeyColor),
		OwnerIDs: []string{t.customer.ID},
	}
	key, err := shop.NewAssociationKey()
	if err != nil {
		return err
	}
	if err := v.SetAssociationKey(key); err != nil {
		return err
	}

	if err := p.vehicles.CreateVehicle(t.ctx, v); err != nil {
		if !errors.Is(err, shop.ErrDuplicate) {
			return t.failed("creating vehicle "+v.Plate, "No pudimos registrar el vehículo.", err)
		}
		existing, ferr := p.vehicles.FindVehicleByPlate(t.ctx, v.Plate)
		t.discardFlow()
		if ferr == nil && existing.HasOwner(t.customer.ID) {
			// Redelivered confirmation: the first one already created it.
			t.say(fmt.Sprintf("El vehículo %s ya quedó registrado en tu cuenta.", v.Plate))
			return t.enter(StateMenuClienteAutenticado)
		}
		t.say(fmt.Sprintf("La patente %s fue registrada por otro cliente mientras cargabas los datos.", v.Plate))
		return t.enter(StateMenuVehiculos)
	}

	t.discardFlow()
	log.Printf("flow: %s registered vehicle %s", t.sess.ID, v.Plate)
	t.say(fmt.Sprintf("✅ Vehículo *%s* registrado.\n\n"+
		"🔑 Clave de asociación: *%s*\n\n"+
		"Compartila solo con quien quieras que también pueda usar este vehículo. "+
		"No la vamos a volver a mostrar; si la perdés, podés generar una nueva desde *Mis vehículos*.",
		v.Plate, key))
	return t.enter(StateMenuClienteAutenticado)
}
