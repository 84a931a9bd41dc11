package sri

import (
	"context"
	"time"
)

// Estados devueltos por los web services del SRI.
const (
	// Recepción (validarComprobante)
	EstadoRecibida = "RECIBIDA"
	EstadoDevuelta = "DEVUELTA"
	// Autorización (autorizacionComprobante)
	EstadoAutorizado   = "AUTORIZADO"
	EstadoNoAutorizado = "NO AUTORIZADO"
	EstadoEnProceso    = "EN PROCESO"
)

// MensajeSRI mensaje estructurado de la autoridad (recepción o autorización).
type MensajeSRI struct {
	Identificador        string // código numérico del catálogo de errores del SRI (ej. "45")
	Mensaje              string
	InformacionAdicional string
	Tipo                 string // ERROR, ADVERTENCIA
}

// ResultadoRecepcion respuesta síncrona de validarComprobante.
// DEVUELTA trae los errores estructurales de la autoridad y no se reintenta:
// indica un defecto del documento, no una falla de transporte.
type ResultadoRecepcion struct {
	Estado   string // RECIBIDA | DEVUELTA
	Mensajes []MensajeSRI
}

// ResultadoAutorizacion respuesta de autorizacionComprobante para una clave de acceso.
type ResultadoAutorizacion struct {
	Estado             string // AUTORIZADO | NO AUTORIZADO | EN PROCESO
	NumeroAutorizacion string
	FechaAutorizacion  *time.Time
	ComprobanteXML     string // comprobante autorizado embebido en la respuesta (CDATA)
	Mensajes           []MensajeSRI
}

// Gateway puerto de salida hacia los dos web services SOAP del SRI.
// La implementación concreta reintenta fallas transitorias de transporte con
// backoff acotado; para tests se inyecta un doble.
type Gateway interface {
	// ValidarComprobante entrega el XML firmado al servicio de recepción.
	ValidarComprobante(ctx context.Context, xmlFirmado []byte) (*ResultadoRecepcion, error)
	// AutorizacionComprobante consulta el estado de autorización por clave de acceso.
	AutorizacionComprobante(ctx context.Context, claveAcceso string) (*ResultadoAutorizacion, error)
}
