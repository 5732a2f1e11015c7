package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojasmm/washbot/internal/shop"
)

func TestVehicleRegistration(t *testing.T) {
	h := newHarness(t)
	c := h.login()

	h.send("Mis vehículos")
	assert.Equal(t, StateMenuVehiculos, h.state())

	h.send("AGREGAR_VEHICULO")
	assert.Equal(t, StateVehiculoMenu, h.state())

	res := h.send("VEH_NUEVO")
	assert.Equal(t, StateVehiculoTipo, h.state())
	assert.Equal(t, KindList, last(res).Kind)
	assert.Contains(t, optionIDs(last(res)), "VT_MOTO")

	h.send("auto")
	assert.Equal(t, StateVehiculoPatente, h.state())

	h.send("ab 123 cd")
	assert.Equal(t, StateVehiculoMarca, h.state())
	assert.Equal(t, "AB123CD", h.session().TemporaryData[KeyPatente])

	h.send("Fiat")
	h.send("Cronos 1.3")
	h.send("Gris")
	assert.Equal(t, StateVehiculoConfirmacion, h.state())
	assert.Len(t, h.session().TemporaryData, 5)

	res = h.send("Confirmar")
	sess := h.session()
	assert.Equal(t, StateMenuClienteAutenticado, State(sess.CurrentState))
	assert.Empty(t, sess.TemporaryData)

	v, err := h.db.FindVehicleByPlate(context.Background(), "AB123CD")
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, v.OwnerIDs)
	assert.Equal(t, "AUTO", v.TypeID)
	assert.Equal(t, "Cronos 1.3", v.Model)

	m := keyInMessage.FindStringSubmatch(bodies(res))
	require.Len(t, m, 2, "association key is shown once")
	assert.True(t, v.VerifyAssociationKey(m[1]))
}

func TestVehicleRegistrationDeclined(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.putSession(StateVehiculoConfirmacion, c.ID, map[string]string{
		KeyTipoVehiculo: "AUTO", KeyPatente: "AB123CD", KeyMarca: "Fiat", KeyModelo: "Cronos", KeyColor: "Gris",
	})

	h.send("NO")
	assert.Equal(t, StateMenuVehiculos, h.state())
	assert.Empty(t, h.session().TemporaryData)

	_, err := h.db.FindVehicleByPlate(context.Background(), "AB123CD")
	assert.ErrorIs(t, err, shop.ErrNotFound)
}

func TestVehicleRedeliveredConfirmation(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.vehicle("AB123CD", "ABCD-2345", c.ID)
	h.putSession(StateVehiculoConfirmacion, c.ID, map[string]string{
		KeyTipoVehiculo: "AUTO", KeyPatente: "AB123CD", KeyMarca: "Fiat", KeyModelo: "Cronos", KeyColor: "Gris",
	})

	h.send("SI")
	assert.Equal(t, StateMenuClienteAutenticado, h.state())

	v, err := h.db.FindVehicleByPlate(context.Background(), "AB123CD")
	require.NoError(t, err)
	assert.True(t, v.VerifyAssociationKey("ABCD-2345"), "existing key untouched")
}

func TestVehiclePlateTakenByAnotherCustomer(t *testing.T) {
	h := newHarness(t)
	other := h.customer("5490000000000", "20999888", "Luis")
	h.vehicle("AB123CD", "ABCD-2345", other.ID)
	c := h.login()
	h.putSession(StateVehiculoPatente, c.ID, map[string]string{KeyTipoVehiculo: "AUTO"})

	res := h.send("AB123CD")
	assert.Equal(t, StateVehiculoPatente, h.state())
	assert.Contains(t, bodies(res), "Asociar vehículo")
}

func TestVehiclePlateAlreadyOwned(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.vehicle("AB123CD", "ABCD-2345", c.ID)
	h.putSession(StateVehiculoPatente, c.ID, map[string]string{KeyTipoVehiculo: "AUTO"})

	h.send("AB123CD")
	assert.Equal(t, StateMenuVehiculos, h.state())
	assert.Empty(t, h.session().TemporaryData)
}

func TestVehicleMenuBack(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.putSession(StateVehiculoMenu, c.ID, nil)

	h.send("Volver")
	assert.Equal(t, StateMenuVehiculos, h.state())
}

func TestRegistrationVehicleOptionBranches(t *testing.T) {
	h := newHarness(t)
	c := h.login()

	h.putSession(StateRegistroVehiculoOpcion, c.ID, nil)
	h.send("1")
	assert.Equal(t, StateVehiculoTipo, h.state())

	h.putSession(StateRegistroVehiculoOpcion, c.ID, nil)
	h.send("asociar")
	assert.Equal(t, StateAsociarVehiculoPatente, h.state())

	h.putSession(StateRegistroVehiculoOpcion, c.ID, nil)
	h.send("Volver")
	assert.Equal(t, StateRegistroVehiculoOpcion, h.state(), "only VEHICULO_MENU offers Volver")
}
