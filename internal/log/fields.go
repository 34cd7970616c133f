package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldOrigen      = "origen"
	FieldDestino     = "destino"
	FieldKm          = "km"
	FieldConductor   = "conductor"
	FieldFecha       = "fecha"
	FieldCategoria   = "categoria"
	FieldImporteCent = "importe_cents"
	FieldEstado      = "estado"
	FieldModulo      = "modulo"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentRutas   = "rutas"
	ComponentGastos  = "gastos"
	ComponentCierre  = "cierre"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentOplog   = "oplog"
	ComponentInforme = "informes"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpsert   = "upsert"
	OpList     = "list"
	OpClaim    = "claim"
	OpFinalize = "finalize"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
