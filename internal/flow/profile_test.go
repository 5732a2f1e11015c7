package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowData(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.send("mis datos")
	assert.Equal(t, StateMostrarDatos, h.state())
	assert.Contains(t, res.Messages[0].Body, "30123456")
	assert.Contains(t, res.Messages[0].Body, "+"+testPhone)
	assert.Equal(t, []string{"EDITAR_DATOS", "MENU"}, optionIDs(res.Messages[0]))

	h.send("EDITAR_DATOS")
	assert.Equal(t, StateEditarDatosMenu, h.state())
}

func TestEditEmail(t *testing.T) {
	h := newHarness(t)
	c := h.login()

	h.send("EDITAR_DATOS")
	assert.Equal(t, StateEditarDatosMenu, h.state())

	res := h.send("correo")
	assert.Equal(t, StateEditarEmail, h.state())
	assert.Contains(t, bodies(res), "Todavía no cargaste tu email")

	h.send("no-es-un-mail")
	assert.Equal(t, StateEditarEmail, h.state())
	assert.Empty(t, h.session().TemporaryData)

	h.send("ana@example.com")
	assert.Equal(t, StateConfirmarEdicion, h.state())

	h.send("NO")
	assert.Equal(t, StateEditarDatosMenu, h.state())
	assert.Empty(t, h.session().TemporaryData)
	got, err := h.db.GetCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Email)

	h.send("EDIT_EMAIL")
	h.send("ana@example.com")
	h.send("SI")
	assert.Equal(t, StateMenuClienteAutenticado, h.state())
	assert.Empty(t, h.session().TemporaryData)

	got, err = h.db.GetCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, c.FirstName, got.FirstName)
}

func TestEditName(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.putSession(StateEditarDatosMenu, c.ID, nil)

	h.send("1")
	assert.Equal(t, StateEditarNombre, h.state())

	h.send("Ana Lía")
	res := h.send("Confirmar")
	assert.Contains(t, bodies(res), "Ana Lía", "menu greets with the new name")

	got, err := h.db.GetCustomer(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lía", got.FirstName)
}

func TestEditCancelWord(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.putSession(StateConfirmarEdicion, c.ID, map[string]string{KeyCampoEdicion: KeyApellido, KeyValorEdicion: "Paz"})

	h.send("cancelar")
	assert.Equal(t, StateEditarDatosMenu, h.state())
	assert.Empty(t, h.session().TemporaryData)
}

func TestEditConfirmationWithUnknownField(t *testing.T) {
	h := newHarness(t)
	c := h.login()
	h.putSession(StateConfirmarEdicion, c.ID, map[string]string{KeyCampoEdicion: "telefono", KeyValorEdicion: "x"})

	h.send("SI")
	assert.Equal(t, StateEditarDatosMenu, h.state())
	assert.Empty(t, h.session().TemporaryData)
}
