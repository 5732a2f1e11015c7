package flow

import (
	"errors"
	"fmt"
	"log"

	"github.com/lojasmm/washbot/internal/shop"
)

func (p *Processor) promptAsociarPatente(t *turn) error {
	t.say("Ingresá la patente del vehículo al que te querés asociar.")
	return nil
}

func (p *Processor) handleAsociarPatente(t *turn) error {
	if !shop.AnyPlateFormat(p.catalog, t.reply) {
		return t.retry("Esa patente no tiene un formato válido.")
	}
	plate := shop.NormalizeCode(t.reply)

	v, err := p.vehicles.FindVehicleByPlate(t.ctx, plate)
	if errors.Is(err, shop.ErrNotFound) {
		return t.retry(fmt.Sprintf("No encontramos un vehículo con la patente %s.", plate))
	}
	if err != nil {
		return fmt.Errorf("finding vehicle %s: %w", plate, err)
	}
	if v.HasOwner(t.customer.ID) {
		t.discardFlow()
		t.say(fmt.Sprintf("Ya figurás como titular de %s.", plate))
		return t.enter(StateMenuVehiculos)
	}

	t.set(KeyAsociarPatente, plate)
	return t.enter(StateAsociarVehiculoClave)
}

// associationTarget loads the vehicle chosen for association, abandoning the
// flow when it disappeared.
func (p *Processor) associationTarget(t *turn) (*shop.Vehicle, bool, error) {
	plate := t.get(KeyAsociarPatente)
	v, err := p.vehicles.FindVehicleByPlate(t.ctx, plate)
	if errors.Is(err, shop.ErrNotFound) {
		t.discardFlow()
		t.say(fmt.Sprintf("El vehículo %s ya no está registrado.", plate))
		return nil, false, t.enter(StateMenuVehiculos)
	}
	if err != nil {
		return nil, false, fmt.Errorf("finding vehicle %s: %w", plate, err)
	}
	return v, true, nil
}

func (p *Processor) promptAsociarClave(t *turn) error {
	t.say("Ingresá la clave de asociación que te pasó el titular del vehículo (formato XXXX-XXXX).")
	return nil
}

func (p *Processor) handleAsociarClave(t *turn) error {
	v, ok, err := p.associationTarget(t)
	if !ok {
		return err
	}
	if !v.VerifyAssociationKey(t.reply) {
		return t.retry("La clave no es correcta.")
	}
	t.set(KeyAsociarVerificado, "1")
	return t.enter(StateAsociarVehiculoConfirmacion)
}

func (p *Processor) promptAsociarConfirmacion(t *turn) error {
	v, ok, err := p.associationTarget(t)
	if !ok {
		return err
	}
	body := fmt.Sprintf("Vehículo %s.\n\n¿Confirmás que querés asociarte como cotitular?", p.describeVehicle(v))
	t.send(buttonsMessage(body, confirmOptions("")...))
	return nil
}

func (p *Processor) handleAsociarConfirmacion(t *turn) error {
	opt, ok := matchOption(t.reply, confirmOptions(""))
	if !ok {
		return t.retry("Respondé *Confirmar* o *Cancelar*.")
	}
	if opt.ID == optNo.ID {
		t.discardFlow()
		t.say("Asociación cancelada.")
		return t.enter(StateMenuVehiculos)
	}

	plate := t.get(KeyAsociarPatente)
	_, err := p.vehicles.UpdateVehicle(t.ctx, plate, func(v *shop.Vehicle) error {
		v.AddOwner(t.customer.ID)
		return nil
	})
	if errors.Is(err, shop.ErrNotFound) {
		t.discardFlow()
		t.say(fmt.Sprintf("El vehículo %s ya no está registrado.", plate))
		return t.enter(StateMenuVehiculos)
	}
	if err != nil {
		return t.failed("associating "+plate, "No pudimos completar la asociación.", err)
	}

	t.discardFlow()
	log.Printf("flow: %s associated to vehicle %s", t.sess.ID, plate)
	t.say(fmt.Sprintf("✅ Listo, ya estás asociado al vehículo %s.", plate))
	return t.enter(StateMenuClienteAutenticado)
}
