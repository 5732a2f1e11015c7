package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldText(t *testing.T) {
	assert.Equal(t, "si", foldText("¡Sí!"))
	assert.Equal(t, "ver vehiculos", foldText("VER_VEHICULOS"))
	assert.Equal(t, "mas tarde", foldText("  Más   tarde "))
	assert.Equal(t, "", foldText("?!"))
}

func TestMatchOption(t *testing.T) {
	opts := []Option{optMisDatos, optEditarDatos, optMisVehiculos}

	tests := []struct {
		reply  string
		wantID string
	}{
		{"MIS_DATOS", "MIS_DATOS"},
		{"mis datos", "MIS_DATOS"},
		{"Mis Vehículos", "MIS_VEHICULOS"},
		{"vehiculos", "MIS_VEHICULOS"},
		{"editar", "EDITAR_DATOS"},
		{"2", "EDITAR_DATOS"},
		{" 3 ", "MIS_VEHICULOS"},
		{"4", ""},
		{"0", ""},
		{"", ""},
		{"quiero lavar el auto", ""},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, ok := matchOption(tt.reply, opts)
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestConfirmOptions(t *testing.T) {
	for _, reply := range []string{"SI", "sí", "Confirmar", "dale", "OK"} {
		got, ok := matchOption(reply, confirmOptions(""))
		assert.True(t, ok, reply)
		assert.Equal(t, optYes.ID, got.ID, reply)
	}
	got, ok := matchOption("confirmar", confirmOptions("Sí, eliminar"))
	assert.True(t, ok)
	assert.Equal(t, optYes.ID, got.ID)

	got, ok = matchOption("no", confirmOptions(""))
	assert.True(t, ok)
	assert.Equal(t, optNo.ID, got.ID)
}

func TestEscapeWords(t *testing.T) {
	for _, w := range []string{"cancelar", "CANCELAR", "Menú", "salir!"} {
		assert.True(t, isEscapeWord(w), w)
	}
	for _, w := range []string{"cancelar registro", "hola", ""} {
		assert.False(t, isEscapeWord(w), w)
	}
}
