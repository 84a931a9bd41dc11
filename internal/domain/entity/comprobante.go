package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un comprobante electrónico SRI.
// BORRADOR → SECUENCIADO → CONSTRUIDO → FIRMADO → ENVIADO → {RECIBIDO | DEVUELTO}
// → {AUTORIZADO | NO_AUTORIZADO | EN_PROCESO}. DEVUELTO, NO_AUTORIZADO y
// AUTORIZADO son terminales; EN_PROCESO es reanudable.
const (
	EstadoBorrador     = "BORRADOR"      // Registrado, sin secuencial asignado
	EstadoSecuenciado  = "SECUENCIADO"   // Secuencial y clave de acceso asignados
	EstadoConstruido   = "CONSTRUIDO"    // XML sin firma generado
	EstadoFirmado      = "FIRMADO"       // XML firmado (XAdES-BES)
	EstadoEnviado      = "ENVIADO"       // Entregado a recepción, respuesta pendiente
	EstadoRecibido     = "RECIBIDO"      // Recepción OK, pendiente de autorización
	EstadoDevuelto     = "DEVUELTO"      // Rechazado en recepción (terminal)
	EstadoEnProceso    = "EN_PROCESO"    // Autorización pendiente tras agotar sondeos (reanudable)
	EstadoAutorizado   = "AUTORIZADO"    // Autorizado por el SRI (terminal, inmutable)
	EstadoNoAutorizado = "NO_AUTORIZADO" // Negado por el SRI (terminal)
	EstadoAnulado      = "ANULADO"       // Anulado después de autorizado (terminal)
)

// EsTerminal indica si un estado cierra el ciclo de vida del comprobante.
func EsTerminal(estado string) bool {
	switch estado {
	case EstadoAutorizado, EstadoNoAutorizado, EstadoDevuelto, EstadoAnulado:
		return true
	}
	return false
}

// Reanudable indica si el comprobante ya fue entregado al SRI y una nueva
// invocación debe retomar directamente en el sondeo de autorización.
func Reanudable(estado string) bool {
	return estado == EstadoEnviado || estado == EstadoRecibido || estado == EstadoEnProceso
}

// Comprobante es el documento tributario electrónico en cualquier punto del pipeline.
// El secuencial es único y monótono por (emisor, estab, ptoEmi, codDoc); la clave
// de acceso es función determinista de los campos de emisión y valida siempre
// contra su propio dígito verificador.
type Comprobante struct {
	ID                   string
	EmisorID             string // tenant
	RUC                  string // 13 dígitos del emisor
	RazonSocial          string
	NombreComercial      string
	DirMatriz            string
	DirEstablecimiento   string
	ObligadoContabilidad bool

	CodDoc       string // Tabla 3: 01, 04, 05, 06, 07
	Estab        string // 3 dígitos
	PtoEmi       string // 3 dígitos
	Secuencial   string // 9 dígitos con ceros; vacío hasta SECUENCIADO
	ClaveAcceso  string // 49 dígitos; vacía hasta SECUENCIADO
	Ambiente     string // 1=pruebas, 2=producción
	TipoEmision  string
	FechaEmision time.Time

	Comprador   Comprador
	Detalles    []Detalle
	Motivos     []Motivo     // solo nota de débito
	Retenciones []Retencion  // solo comprobante de retención
	Traslado    *Traslado    // solo guía de remisión
	DocSustento *DocSustento // obligatorio en notas de crédito/débito y retención

	TotalSinImpuestos decimal.Decimal
	TotalDescuento    decimal.Decimal
	TotalImpuestos    []TotalImpuesto
	Propina           decimal.Decimal
	ImporteTotal      decimal.Decimal
	Moneda            string
	Pagos             []Pago
	CamposAdicionales []CampoAdicional

	Estado             string
	XMLGenerado        string // XML canónico sin firma
	XMLFirmado         string // XML con ds:Signature
	XMLAutorizado      string // comprobante devuelto por la autorización
	NumeroAutorizacion string
	FechaAutorizacion  *time.Time
	UltimoError        string
	MensajesSRI        string // mensajes textuales de la autoridad (recepción o autorización)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comprador bloque de identidad del receptor del comprobante.
type Comprador struct {
	TipoIdentificacion string // Tabla 6
	Identificacion     string
	RazonSocial        string
	Direccion          string
}

// Detalle línea de factura, nota de crédito o guía de remisión.
type Detalle struct {
	CodigoPrincipal        string
	CodigoAuxiliar         string
	Descripcion            string
	Cantidad               decimal.Decimal
	PrecioUnitario         decimal.Decimal
	Descuento              decimal.Decimal
	PrecioTotalSinImpuesto decimal.Decimal
	Impuestos              []ImpuestoDetalle
}

// ImpuestoDetalle impuesto aplicado a una línea.
type ImpuestoDetalle struct {
	Codigo           string // Tabla 16
	CodigoPorcentaje string // Tabla 17
	Tarifa           decimal.Decimal
	BaseImponible    decimal.Decimal
	Valor            decimal.Decimal
}

// TotalImpuesto agregado de impuestos a nivel de comprobante.
type TotalImpuesto struct {
	Codigo           string
	CodigoPorcentaje string
	BaseImponible    decimal.Decimal
	Valor            decimal.Decimal
}

// Motivo razón de una nota de débito (reemplaza a los detalles).
type Motivo struct {
	Razon string
	Valor decimal.Decimal
}

// Retencion línea de un comprobante de retención.
type Retencion struct {
	Codigo            string // Tabla 19
	CodigoRetencion   string // catálogo de porcentajes por impuesto
	BaseImponible     decimal.Decimal
	PorcentajeRetener decimal.Decimal
	ValorRetenido     decimal.Decimal
}

// Traslado datos de transporte de la guía de remisión.
type Traslado struct {
	DirPartida               string
	RazonSocialTransportista string
	TipoIdentTransportista   string
	RUCTransportista         string
	FechaIniTransporte       time.Time
	FechaFinTransporte       time.Time
	Placa                    string
	MotivoTraslado           string
	DirDestino               string
}

// DocSustento referencia al documento original que la nota o retención modifica.
type DocSustento struct {
	CodDocModificado string // Tabla 3 del documento original
	NumDocModificado string // estab-ptoEmi-secuencial (001-001-000000123)
	FechaEmision     time.Time
	CodSustento      string // Tabla 5; requerido en retención
	PeriodoFiscal    string // mm/aaaa; solo retención
}

// Pago forma de pago y monto.
type Pago struct {
	FormaPago    string // Tabla 24
	Total        decimal.Decimal
	Plazo        int
	UnidadTiempo string
}

// CampoAdicional par nombre/valor de infoAdicional.
type CampoAdicional struct {
	Nombre string
	Valor  string
}
