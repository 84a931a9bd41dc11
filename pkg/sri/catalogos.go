// Package sri contiene catálogos, la clave de acceso y validaciones alineados a la
// Ficha Técnica de Comprobantes Electrónicos del SRI (Ecuador), esquema off-line.
package sri

// =============================================================================
// Tabla 3 - Tipos de comprobante (codDoc)
// =============================================================================

const (
	DocFactura       = "01" // Factura
	DocNotaCredito   = "04" // Nota de crédito
	DocNotaDebito    = "05" // Nota de débito
	DocGuiaRemision  = "06" // Guía de remisión
	DocCompRetencion = "07" // Comprobante de retención
)

// ValidDocTypeCodes códigos de tipo de comprobante soportados por el emisor.
var ValidDocTypeCodes = map[string]bool{
	DocFactura: true, DocNotaCredito: true, DocNotaDebito: true,
	DocGuiaRemision: true, DocCompRetencion: true,
}

// =============================================================================
// Tabla 4 - Ambiente (1 dígito de la clave de acceso y de infoTributaria)
// =============================================================================

const (
	AmbientePruebas    = "1" // Pruebas (celcer.sri.gob.ec)
	AmbienteProduccion = "2" // Producción (cel.sri.gob.ec)
)

// ValidAmbientes ambientes reconocidos por el SRI.
var ValidAmbientes = map[string]bool{AmbientePruebas: true, AmbienteProduccion: true}

// =============================================================================
// Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EmisionNormal = "1" // Emisión normal (única vigente desde 2018; la contingencia fue retirada)
)

// =============================================================================
// Tabla 6 - Tipos de identificación del comprador
// =============================================================================

const (
	IdentRUC             = "04" // RUC (13 dígitos)
	IdentCedula          = "05" // Cédula de identidad
	IdentPasaporte       = "06" // Pasaporte
	IdentConsumidorFinal = "07" // Venta a consumidor final (9999999999999)
	IdentExterior        = "08" // Identificación del exterior
)

// ValidIdentificationTypeCodes tipos de identificación válidos (Tabla 6).
var ValidIdentificationTypeCodes = map[string]bool{
	IdentRUC: true, IdentCedula: true, IdentPasaporte: true,
	IdentConsumidorFinal: true, IdentExterior: true,
}

// =============================================================================
// Tabla 24 - Formas de pago
// =============================================================================

const (
	PagoSinSistemaFinanciero = "01" // Sin utilización del sistema financiero
	PagoCompensacionDeudas   = "15" // Compensación de deudas
	PagoTarjetaDebito        = "16" // Tarjeta de débito
	PagoDineroElectronico    = "17" // Dinero electrónico
	PagoTarjetaPrepago       = "18" // Tarjeta prepago
	PagoTarjetaCredito       = "19" // Tarjeta de crédito
	PagoOtrosSistFinanciero  = "20" // Otros con utilización del sistema financiero
	PagoEndosoTitulos        = "21" // Endoso de títulos
)

// ValidPaymentMethodCodes formas de pago válidas (Tabla 24).
var ValidPaymentMethodCodes = map[string]bool{
	PagoSinSistemaFinanciero: true, PagoCompensacionDeudas: true,
	PagoTarjetaDebito: true, PagoDineroElectronico: true, PagoTarjetaPrepago: true,
	PagoTarjetaCredito: true, PagoOtrosSistFinanciero: true, PagoEndosoTitulos: true,
}

// =============================================================================
// Tabla 16 - Códigos de impuesto
// =============================================================================

const (
	ImpuestoIVA    = "2" // IVA
	ImpuestoICE    = "3" // ICE
	ImpuestoIRBPNR = "5" // IRBPNR (botellas plásticas no retornables)
)

// ValidTaxCodes códigos de impuesto válidos (Tabla 16).
var ValidTaxCodes = map[string]bool{ImpuestoIVA: true, ImpuestoICE: true, ImpuestoIRBPNR: true}

// =============================================================================
// Tabla 17 - Tarifas de IVA (codigoPorcentaje)
// =============================================================================

const (
	IVATarifa0  = "0" // 0%
	IVATarifa12 = "2" // 12%
	IVATarifa14 = "3" // 14%
	IVATarifa15 = "4" // 15%
	IVANoObjeto = "6" // No objeto de impuesto
	IVAExento   = "7" // Exento de IVA
	IVATarifa5  = "5" // 5%
	IVATarifa8  = "8" // 8% (zonas afectadas / diferenciado)
)

// ValidIVAPercentageCodes códigos de tarifa de IVA válidos (Tabla 17).
var ValidIVAPercentageCodes = map[string]bool{
	IVATarifa0: true, IVATarifa12: true, IVATarifa14: true, IVATarifa15: true,
	IVANoObjeto: true, IVAExento: true, IVATarifa5: true, IVATarifa8: true,
}

// =============================================================================
// Tabla 19 - Impuestos a retener (comprobante de retención)
// =============================================================================

const (
	RetencionRenta = "1" // Retención en la fuente de impuesto a la renta
	RetencionIVA   = "2" // Retención de IVA
	RetencionISD   = "6" // Impuesto a la salida de divisas
)

// ValidRetentionTaxCodes impuestos retenibles válidos (Tabla 19).
var ValidRetentionTaxCodes = map[string]bool{
	RetencionRenta: true, RetencionIVA: true, RetencionISD: true,
}

// =============================================================================
// Tabla 5 - Código de sustento tributario (docSustento / codSustento)
// =============================================================================

const (
	SustentoCreditoTributario = "01" // Crédito tributario para declaración de IVA
	SustentoCostoGasto        = "02" // Costo o gasto para declaración de IR
	SustentoActivoFijo        = "03" // Activo fijo - crédito tributario
	SustentoActivoFijoCosto   = "04" // Activo fijo - costo o gasto
	SustentoLiquidacionGastos = "05" // Liquidación de gastos de viaje/hospedaje
	SustentoInventario        = "06" // Inventario
	SustentoCasosEspeciales   = "07" // Desembolso de casos especiales
	SustentoReembolsoGastos   = "08" // Reembolso de gastos
)

// ValidSustentoCodes códigos de sustento válidos (Tabla 5).
var ValidSustentoCodes = map[string]bool{
	SustentoCreditoTributario: true, SustentoCostoGasto: true,
	SustentoActivoFijo: true, SustentoActivoFijoCosto: true,
	SustentoLiquidacionGastos: true, SustentoInventario: true,
	SustentoCasosEspeciales: true, SustentoReembolsoGastos: true,
}

// =============================================================================
// Mensajes de recepción del SRI con tratamiento especial
// =============================================================================

const (
	// MensajeClaveRegistrada código 43: la clave de acceso ya fue registrada.
	MensajeClaveRegistrada = "43"
	// MensajeSecuencialRegistrado código 45: secuencial ya autorizado con otra clave.
	MensajeSecuencialRegistrado = "45"
)
