package flow

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lojasmm/washbot/internal/shop"
)

var (
	optVerVehiculos      = Option{ID: "VER_VEHICULOS", Title: "Ver mis vehículos", Aliases: []string{"ver", "listar"}}
	optAgregarVehiculo   = Option{ID: "AGREGAR_VEHICULO", Title: "Agregar vehículo", Aliases: []string{"agregar", "nuevo"}}
	optModificarVehiculo = Option{ID: "MODIFICAR_VEHICULO", Title: "Modificar o eliminar", Aliases: []string{"modificar", "eliminar", "editar"}}
	optVerClave          = Option{ID: "VER_CLAVE", Title: "Clave de asociación", Description: "Generar una clave nueva", Aliases: []string{"clave"}}

	optModModelo = Option{ID: "MOD_MODELO", Title: "Cambiar modelo", Aliases: []string{"modelo"}}
	optModColor  = Option{ID: "MOD_COLOR", Title: "Cambiar color", Aliases: []string{"color"}}
	optEliminar  = Option{ID: "ELIMINAR", Title: "Eliminar", Aliases: []string{"borrar", "quitar"}}
)

const vehicleOptionPrefix = "PAT_"

func (p *Processor) vehiclesMenuOptions() []Option {
	return []Option{optVerVehiculos, optAgregarVehiculo, optModificarVehiculo, optVerClave, optBackToMenu}
}

func (p *Processor) promptMenuVehiculos(t *turn) error {
	t.send(listMessage("🚗 *Mis vehículos*\n\n¿Qué querés hacer?", "Ver opciones", "Vehículos", p.vehiclesMenuOptions()...))
	return nil
}

// promptMostrarVehiculos lists the customer's vehicles and offers the
// vehicles menu again; replies are handled like MENU_VEHICULOS.
func (p *Processor) promptMostrarVehiculos(t *turn) error {
	list, err := p.vehicles.ListVehiclesByOwner(t.ctx, t.customer.ID)
	if err != nil {
		return fmt.Errorf("listing vehicles: %w", err)
	}
	if len(list) == 0 {
		t.say("Todavía no tenés vehículos cargados.")
		return p.promptMenuVehiculos(t)
	}

	var b strings.Builder
	b.WriteString("🚗 *Tus vehículos*\n")
	for _, v := range list {
		b.WriteString("\n• ")
		b.WriteString(p.describeVehicle(&v))
		if len(v.OwnerIDs) > 1 {
			b.WriteString(" (compartido)")
		}
	}
	t.say(b.String())
	return p.promptMenuVehiculos(t)
}

func (p *Processor) handleMenuVehiculos(t *turn) error {
	opt, ok := matchOption(t.reply, p.vehiclesMenuOptions())
	if !ok {
		return t.retry("Elegí una opción de la lista.")
	}
	switch opt.ID {
	case optVerVehiculos.ID:
		return t.enter(StateMostrarVehiculos)
	case optAgregarVehiculo.ID:
		return t.enter(StateVehiculoMenu)
	case optModificarVehiculo.ID:
		return t.enter(StateSeleccionarVehiculoModificar)
	case optVerClave.ID:
		return t.enter(StateMostrarClaveVehiculo)
	default:
		return t.enter(StateMenuClienteAutenticado)
	}
}

func (p *Processor) describeVehicle(v *shop.Vehicle) string {
	typeName := v.TypeID
	if vt, ok := p.catalog.VehicleType(v.TypeID); ok {
		typeName = vt.Name
	}
	return fmt.Sprintf("*%s* · %s %s %s, %s", v.Plate, typeName, v.Brand, v.Model, strings.ToLower(v.Color))
}

// vehicleOptions renders the customer's vehicles as list rows, at most the
// platform limit; further vehicles can still be picked by typing the plate.
func vehicleOptions(list []shop.Vehicle) []Option {
	var opts []Option
	for i, v := range list {
		if i == 10 {
			break
		}
		opts = append(opts, Option{
			ID:          vehicleOptionPrefix + v.Plate,
			Title:       v.Plate,
			Description: fmt.Sprintf("%s %s, %s", v.Brand, v.Model, strings.ToLower(v.Color)),
		})
	}
	return opts
}

// pickVehicle resolves the reply to one of list, by option id, typed plate
// or position.
func pickVehicle(reply string, list []shop.Vehicle) (*shop.Vehicle, bool) {
	plate := shop.NormalizeCode(strings.TrimPrefix(strings.TrimSpace(reply), vehicleOptionPrefix))
	for i := range list {
		if list[i].Plate == plate {
			return &list[i], true
		}
	}
	if opt, ok := matchOption(reply, vehicleOptions(list)); ok {
		for i := range list {
			if list[i].Plate == opt.Title {
				return &list[i], true
			}
		}
	}
	return nil, false
}

// promptVehiclePicker sends the vehicle list, or falls back to the vehicles
// menu when the customer has none.
func (p *Processor) promptVehiclePicker(t *turn, body string) error {
	list, err := p.vehicles.ListVehiclesByOwner(t.ctx, t.customer.ID)
	if err != nil {
		return fmt.Errorf("listing vehicles: %w", err)
	}
	if len(list) == 0 {
		t.say("Todavía no tenés vehículos cargados.")
		return t.enter(StateMenuVehiculos)
	}
	t.send(listMessage(body, "Ver vehículos", "Tus vehículos", vehicleOptions(list)...))
	return nil
}

func (p *Processor) handleVehiclePicker(t *turn, picked func(v *shop.Vehicle) error) error {
	list, err := p.vehicles.ListVehiclesByOwner(t.ctx, t.customer.ID)
	if err != nil {
		return fmt.Errorf("listing vehicles: %w", err)
	}
	if len(list) == 0 {
		t.say("Todavía no tenés vehículos cargados.")
		return t.enter(StateMenuVehiculos)
	}
	v, ok := pickVehicle(t.reply, list)
	if !ok {
		return t.retry("Elegí un vehículo de la lista o escribí su patente.")
	}
	return picked(v)
}

// --- Modify / delete ---

func (p *Processor) promptSeleccionarVehiculo(t *turn) error {
	return p.promptVehiclePicker(t, "¿Qué vehículo querés modificar o eliminar?")
}

func (p *Processor) handleSeleccionarVehiculo(t *turn) error {
	return p.handleVehiclePicker(t, func(v *shop.Vehicle) error {
		t.set(KeyPatenteSeleccionada, v.Plate)
		return t.enter(StateModificarVehiculoMenu)
	})
}

// selectedVehicle loads the vehicle picked earlier. When it is gone or no
// longer belongs to the customer, the flow is abandoned and ok is false.
func (p *Processor) selectedVehicle(t *turn) (*shop.Vehicle, bool, error) {
	plate := t.get(KeyPatenteSeleccionada)
	v, err := p.vehicles.FindVehicleByPlate(t.ctx, plate)
	if err != nil && !errors.Is(err, shop.ErrNotFound) {
		return nil, false, fmt.Errorf("finding vehicle %s: %w", plate, err)
	}
	if err != nil || !v.HasOwner(t.customer.ID) {
		return nil, false, p.vehicleGone(t, plate)
	}
	return v, true, nil
}

func (p *Processor) vehicleGone(t *turn, plate string) error {
	t.discardFlow()
	t.say(fmt.Sprintf("El vehículo %s ya no está en tu cuenta.", plate))
	return t.enter(StateMenuVehiculos)
}

// ownedBy guards a vehicle mutation so it only applies while customerID is
// still one of the owners of the stored record.
func ownedBy(customerID string, apply func(*shop.Vehicle) error) func(*shop.Vehicle) error {
	return func(v *shop.Vehicle) error {
		if !v.HasOwner(customerID) {
			return fmt.Errorf("vehicle %s owned by %s: %w", v.Plate, customerID, shop.ErrNotFound)
		}
		return apply(v)
	}
}

func (p *Processor) promptModificarVehiculoMenu(t *turn) error {
	v, ok, err := p.selectedVehicle(t)
	if !ok {
		return err
	}
	t.send(buttonsMessage(fmt.Sprintf("Vehículo %s.\n\n¿Qué querés hacer?", p.describeVehicle(v)), optModModelo, optModColor, optEliminar))
	return nil
}

func (p *Processor) handleModificarVehiculoMenu(t *turn) error {
	opt, ok := matchOption(t.reply, []Option{optModModelo, optModColor, optEliminar})
	if !ok {
		return t.retry("Elegí una de las opciones, o escribí *cancelar* para volver.")
	}
	switch opt.ID {
	case optModModelo.ID:
		return t.enter(StateModificarVehiculoModelo)
	case optModColor.ID:
		return t.enter(StateModificarVehiculoColor)
	default:
		return t.enter(StateConfirmarEliminarVehiculo)
	}
}

func (p *Processor) promptModificarVehiculoModelo(t *turn) error {
	v, ok, err := p.selectedVehicle(t)
	if !ok {
		return err
	}
	t.say(fmt.Sprintf("El modelo actual de %s es *%s*. Escribí el nuevo modelo.", v.Plate, v.Model))
	return nil
}

func (p *Processor) handleModificarVehiculoModelo(t *turn) error {
	model, ok := parseModel(t.reply)
	if !ok {
		return t.retry("El modelo puede tener letras, números y espacios (hasta 40 caracteres).")
	}
	return p.updateSelectedVehicle(t, "modelo", func(v *shop.Vehicle) error {
		v.Model = model
		return nil
	})
}

func (p *Processor) promptModificarVehiculoColor(t *turn) error {
	v, ok, err := p.selectedVehicle(t)
	if !ok {
		return err
	}
	t.say(fmt.Sprintf("El color actual de %s es *%s*. Escribí el nuevo color.", v.Plate, strings.ToLower(v.Color)))
	return nil
}

func (p *Processor) handleModificarVehiculoColor(t *turn) error {
	color, ok := parseColor(t.reply)
	if !ok {
		return t.retry("El color solo puede tener letras (entre 3 y 20 caracteres).")
	}
	return p.updateSelectedVehicle(t, "color", func(v *shop.Vehicle) error {
		v.Color = color
		return nil
	})
}

func (p *Processor) updateSelectedVehicle(t *turn, label string, apply func(*shop.Vehicle) error) error {
	plate := t.get(KeyPatenteSeleccionada)
	_, err := p.vehicles.UpdateVehicle(t.ctx, plate, ownedBy(t.customer.ID, apply))
	if errors.Is(err, shop.ErrNotFound) {
		return p.vehicleGone(t, plate)
	}
	if err != nil {
		return t.failed("updating vehicle "+plate, "No pudimos guardar el cambio.", err)
	}
	t.discardFlow()
	t.say(fmt.Sprintf("✅ Actualizamos el %s de %s.", label, plate))
	return t.enter(StateMenuVehiculos)
}

func (p *Processor) promptConfirmarEliminarVehiculo(t *turn) error {
	v, ok, err := p.selectedVehicle(t)
	if !ok {
		return err
	}
	body := fmt.Sprintf("¿Seguro que querés quitar el vehículo *%s* de tu cuenta?", v.Plate)
	if len(v.OwnerIDs) > 1 {
		body += "\n\nLo comparten otros clientes: ellos lo van a seguir teniendo."
	}
	t.send(buttonsMessage(body, confirmOptions("Sí, eliminar")...))
	return nil
}

func (p *Processor) handleConfirmarEliminarVehiculo(t *turn) error {
	opt, ok := matchOption(t.reply, confirmOptions("Sí, eliminar"))
	if !ok {
		return t.retry("Respondé *Sí, eliminar* o *Cancelar*.")
	}
	plate := t.get(KeyPatenteSeleccionada)
	if opt.ID == optNo.ID {
		t.discardFlow()
		t.say(fmt.Sprintf("No eliminamos el vehículo %s.", plate))
		return t.enter(StateMenuVehiculos)
	}

	deleted, err := p.vehicles.RemoveVehicleOwner(t.ctx, plate, t.customer.ID)
	// Not found: already gone or no longer ours, nothing left to undo.
	if err != nil && !errors.Is(err, shop.ErrNotFound) {
		return t.failed("removing vehicle "+plate, "No pudimos eliminar el vehículo.", err)
	}

	t.discardFlow()
	log.Printf("flow: %s removed vehicle %s (deleted=%t)", t.sess.ID, plate, deleted)
	t.say(fmt.Sprintf("🗑️ Quitamos el vehículo %s de tu cuenta.", plate))
	return t.enter(StateMenuClienteAutenticado)
}

// --- Association key rotation ---

func (p *Processor) promptMostrarClave(t *turn) error {
	return p.promptVehiclePicker(t, "Elegí el vehículo para generar una nueva clave de asociación. La clave anterior deja de funcionar.")
}

func (p *Processor) handleMostrarClave(t *turn) error {
	return p.handleVehiclePicker(t, func(v *shop.Vehicle) error {
		key, err := shop.NewAssociationKey()
		if err != nil {
			return err
		}
		_, err = p.vehicles.UpdateVehicle(t.ctx, v.Plate, ownedBy(t.customer.ID, func(v *shop.Vehicle) error {
			return v.SetAssociationKey(key)
		}))
		if errors.Is(err, shop.ErrNotFound) {
			return p.vehicleGone(t, v.Plate)
		}
		if err != nil {
			return t.failed("rotating key of "+v.Plate, "No pudimos generar la clave.", err)
		}
		log.Printf("flow: %s rotated association key of %s", t.sess.ID, v.Plate)
		t.say(fmt.Sprintf("🔑 Nueva clave de asociación para *%s*: *%s*\n\n"+
			"Compartila solo con quien quieras que también pueda usar este vehículo.", v.Plate, key))
		return t.enter(StateMenuVehiculos)
	})
}
