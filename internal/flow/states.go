package flow

// State is a step of the conversation graph. Values are persisted as-is.
type State string

const (
	StateInicio State = "INICIO"

	StateRegistroTipoDocumento  State = "REGISTRO_TIPO_DOCUMENTO"
	StateRegistroNumDocumento   State = "REGISTRO_NUM_DOCUMENTO"
	StateRegistroNombre         State = "REGISTRO_NOMBRE"
	StateRegistroApellido       State = "REGISTRO_APELLIDO"
	StateRegistroEmail          State = "REGISTRO_EMAIL"
	StateRegistroConfirmacion   State = "REGISTRO_CONFIRMACION"
	StateRegistroVehiculoOpcion State = "REGISTRO_VEHICULO_OPCION"

	StateVehiculoMenu         State = "VEHICULO_MENU"
	StateVehiculoTipo         State = "VEHICULO_TIPO"
	StateVehiculoPatente      State = "VEHICULO_PATENTE"
	StateVehiculoMarca        State = "VEHICULO_MARCA"
	StateVehiculoModelo       State = "VEHICULO_MODELO"
	StateVehiculoColor        State = "VEHICULO_COLOR"
	StateVehiculoConfirmacion State = "VEHICULO_CONFIRMACION"

	StateMenuClienteAutenticado State = "MENU_CLIENTE_AUTENTICADO"
	StateMostrarDatos           State = "MOSTRAR_DATOS"

	StateEditarDatosMenu  State = "EDITAR_DATOS_MENU"
	StateEditarNombre     State = "EDITAR_NOMBRE"
	StateEditarApellido   State = "EDITAR_APELLIDO"
	StateEditarEmail      State = "EDITAR_EMAIL"
	StateConfirmarEdicion State = "CONFIRMAR_EDICION"

	StateMenuVehiculos                State = "MENU_VEHICULOS"
	StateMostrarVehiculos             State = "MOSTRAR_VEHICULOS"
	StateSeleccionarVehiculoModificar State = "SELECCIONAR_VEHICULO_MODIFICAR"
	StateModificarVehiculoMenu        State = "MODIFICAR_VEHICULO_MENU"
	StateModificarVehiculoModelo      State = "MODIFICAR_VEHICULO_MODELO"
	StateModificarVehiculoColor       State = "MODIFICAR_VEHICULO_COLOR"
	StateConfirmarEliminarVehiculo    State = "CONFIRMAR_ELIMINAR_VEHICULO"

	StateAsociarVehiculoPatente      State = "ASOCIAR_VEHICULO_PATENTE"
	StateAsociarVehiculoClave        State = "ASOCIAR_VEHICULO_CLAVE"
	StateAsociarVehiculoConfirmacion State = "ASOCIAR_VEHICULO_CONFIRMACION"
	StateMostrarClaveVehiculo        State = "MOSTRAR_CLAVE_VEHICULO"
)

// Flow groups the states that share temporary data.
type Flow string

const (
	flowNone         Flow = ""
	FlowRegistration Flow = "registration"
	FlowVehicle      Flow = "vehicle"
	FlowEdit         Flow = "edit"
	FlowManage       Flow = "manage"
	FlowAssociate    Flow = "associate"
)

// Temporary data keys.
const (
	KeyTipoDocumento   = "tipoDocumento"
	KeyNumeroDocumento = "numeroDocumento"
	KeyNombre          = "nombre"
	KeyApellido        = "apellido"
	KeyEmail           = "email"

	KeyTipoVehiculo = "tipoVehiculo"
	KeyPatente      = "patente"
	KeyMarca        = "marca"
	KeyModelo       = "modelo"
	KeyColor        = "color"

	KeyCampoEdicion = "campoEdicion"
	KeyValorEdicion = "valorEdicion"

	KeyPatenteSeleccionada = "patenteSeleccionada"

	KeyAsociarPatente    = "asociarPatente"
	KeyAsociarVerificado = "asociarVerificado"
)

// FlowKeys lists the temporary data keys owned by each flow.
var FlowKeys = map[Flow][]string{
	FlowRegistration: {KeyTipoDocumento, KeyNumeroDocumento, KeyNombre, KeyApellido, KeyEmail},
	FlowVehicle:      {KeyTipoVehiculo, KeyPatente, KeyMarca, KeyModelo, KeyColor},
	FlowEdit:         {KeyCampoEdicion, KeyValorEdicion},
	FlowManage:       {KeyPatenteSeleccionada},
	FlowAssociate:    {KeyAsociarPatente, KeyAsociarVerificado},
}

// stateSpec describes the preconditions of a state.
//
// auth states need a linked customer; guest states are only for phones that
// are not linked yet. requires lists keys that earlier steps must have
// written; when one is missing the conversation restarts at restart. menu is
// where cancel words lead.
type stateSpec struct {
	flow     Flow
	auth     bool
	guest    bool
	requires []string
	restart  State
	menu     State
}

var regKeys = FlowKeys[FlowRegistration]
var vehKeys = FlowKeys[FlowVehicle]

var states = map[State]stateSpec{
	StateInicio: {},

	StateRegistroTipoDocumento:  {flow: FlowRegistration, guest: true, restart: StateRegistroTipoDocumento, menu: StateInicio},
	StateRegistroNumDocumento:   {flow: FlowRegistration, guest: true, requires: regKeys[:1], restart: StateRegistroTipoDocumento, menu: StateInicio},
	StateRegistroNombre:         {flow: FlowRegistration, guest: true, requires: regKeys[:2], restart: StateRegistroTipoDocumento, menu: StateInicio},
	StateRegistroApellido:       {flow: FlowRegistration, guest: true, requires: regKeys[:3], restart: StateRegistroTipoDocumento, menu: StateInicio},
	StateRegistroEmail:          {flow: FlowRegistration, guest: true, requires: regKeys[:4], restart: StateRegistroTipoDocumento, menu: StateInicio},
	StateRegistroConfirmacion:   {flow: FlowRegistration, guest: true, requires: regKeys[:5], restart: StateRegistroTipoDocumento, menu: StateInicio},
	StateRegistroVehiculoOpcion: {auth: true, menu: StateMenuClienteAutenticado},

	StateVehiculoMenu:         {auth: true, menu: StateMenuVehiculos},
	StateVehiculoTipo:         {flow: FlowVehicle, auth: true, restart: StateVehiculoTipo, menu: StateMenuVehiculos},
	StateVehiculoPatente:      {flow: FlowVehicle, auth: true, requires: vehKeys[:1], restart: StateVehiculoTipo, menu: StateMenuVehiculos},
	StateVehiculoMarca:        {flow: FlowVehicle, auth: true, requires: vehKeys[:2], restart: StateVehiculoTipo, menu: StateMenuVehiculos},
	StateVehiculoModelo:       {flow: FlowVehicle, auth: true, requires: vehKeys[:3], restart: StateVehiculoTipo, menu: StateMenuVehiculos},
	StateVehiculoColor:        {flow: FlowVehicle, auth: true, requires: vehKeys[:4], restart: StateVehiculoTipo, menu: StateMenuVehiculos},
	StateVehiculoConfirmacion: {flow: FlowVehicle, auth: true, requires: vehKeys[:5], restart: StateVehiculoTipo, menu: StateMenuVehiculos},

	StateMenuClienteAutenticado: {auth: true},
	StateMostrarDatos:           {auth: true, menu: StateMenuClienteAutenticado},

	StateEditarDatosMenu:  {auth: true, menu: StateMenuClienteAutenticado},
	StateEditarNombre:     {flow: FlowEdit, auth: true, restart: StateEditarDatosMenu, menu: StateEditarDatosMenu},
	StateEditarApellido:   {flow: FlowEdit, auth: true, restart: StateEditarDatosMenu, menu: StateEditarDatosMenu},
	StateEditarEmail:      {flow: FlowEdit, auth: true, restart: StateEditarDatosMenu, menu: StateEditarDatosMenu},
	StateConfirmarEdicion: {flow: FlowEdit, auth: true, requires: FlowKeys[FlowEdit], restart: StateEditarDatosMenu, menu: StateEditarDatosMenu},

	StateMenuVehiculos:                {auth: true, menu: StateMenuClienteAutenticado},
	StateMostrarVehiculos:             {auth: true, menu: StateMenuClienteAutenticado},
	StateSeleccionarVehiculoModificar: {auth: true, menu: StateMenuVehiculos},
	StateModificarVehiculoMenu:        {flow: FlowManage, auth: true, requires: FlowKeys[FlowManage], restart: StateSeleccionarVehiculoModificar, menu: StateMenuVehiculos},
	StateModificarVehiculoModelo:      {flow: FlowManage, auth: true, requires: FlowKeys[FlowManage], restart: StateSeleccionarVehiculoModificar, menu: StateMenuVehiculos},
	StateModificarVehiculoColor:       {flow: FlowManage, auth: true, requires: FlowKeys[FlowManage], restart: StateSeleccionarVehiculoModificar, menu: StateMenuVehiculos},
	StateConfirmarEliminarVehiculo:    {flow: FlowManage, auth: true, requires: FlowKeys[FlowManage], restart: StateSeleccionarVehiculoModificar, menu: StateMenuVehiculos},

	StateAsociarVehiculoPatente:      {flow: FlowAssociate, auth: true, restart: StateAsociarVehiculoPatente, menu: StateMenuVehiculos},
	StateAsociarVehiculoClave:        {flow: FlowAssociate, auth: true, requires: FlowKeys[FlowAssociate][:1], restart: StateAsociarVehiculoPatente, menu: StateMenuVehiculos},
	StateAsociarVehiculoConfirmacion: {flow: FlowAssociate, auth: true, requires: FlowKeys[FlowAssociate], restart: StateAsociarVehiculoPatente, menu: StateMenuVehiculos},
	StateMostrarClaveVehiculo:        {auth: true, menu: StateMenuVehiculos},
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := states[s]
	return ok
}

// FlowOf returns the flow s belongs to, or "" for menus and INICIO.
func FlowOf(s State) Flow {
	return states[s].flow
}
