// Package comprobante contiene las validaciones de dominio previas a la firma:
// catálogos del SRI y cuadre de totales. Un comprobante que no valida aquí
// nunca llega a la red.
package comprobante

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

// toleranciaCentavos margen de redondeo permitido en el cuadre (2 decimales).
var toleranciaCentavos = decimal.New(1, -2) // 0.01

// ValidarCatalogos verifica cada código de catálogo contra su tabla del SRI.
// Reporta el nombre del campo ofensor; nunca corrige ni redondea.
func ValidarCatalogos(c *entity.Comprobante) error {
	var errs []error
	campo := func(nombre, valor string, tabla map[string]bool) {
		if !tabla[valor] {
			errs = append(errs, fmt.Errorf("%w: %s=%q", domain.ErrInvalidCatalogCode, nombre, valor))
		}
	}

	campo("codDoc", c.CodDoc, sri.ValidDocTypeCodes)
	campo("ambiente", c.Ambiente, sri.ValidAmbientes)
	if c.Comprador.TipoIdentificacion != "" || necesitaComprador(c.CodDoc) {
		campo("tipoIdentificacionComprador", c.Comprador.TipoIdentificacion, sri.ValidIdentificationTypeCodes)
	}
	for i, p := range c.Pagos {
		campo(fmt.Sprintf("pagos[%d].formaPago", i), p.FormaPago, sri.ValidPaymentMethodCodes)
	}
	for i, d := range c.Detalles {
		for j, imp := range d.Impuestos {
			campo(fmt.Sprintf("detalles[%d].impuestos[%d].codigo", i, j), imp.Codigo, sri.ValidTaxCodes)
			if imp.Codigo == sri.ImpuestoIVA {
				campo(fmt.Sprintf("detalles[%d].impuestos[%d].codigoPorcentaje", i, j),
					imp.CodigoPorcentaje, sri.ValidIVAPercentageCodes)
			}
		}
	}
	for i, r := range c.Retenciones {
		campo(fmt.Sprintf("retenciones[%d].codigo", i), r.Codigo, sri.ValidRetentionTaxCodes)
	}
	if c.DocSustento != nil && c.DocSustento.CodSustento != "" {
		campo("docSustento.codSustento", c.DocSustento.CodSustento, sri.ValidSustentoCodes)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidarTotales comprueba, con tolerancia de un centavo, que:
//
//	suma(bases de línea)  == totalSinImpuestos
//	suma(impuestos)       == suma(totalConImpuestos.valor)
//	subtotal + impuestos + propina == importeTotal
//
// La nota de débito cuadra contra motivos en lugar de detalles; la guía de
// remisión no lleva montos y se omite.
func ValidarTotales(c *entity.Comprobante) error {
	if c.CodDoc == sri.DocGuiaRemision {
		return nil
	}

	var sumaBases, sumaImpuestosLinea decimal.Decimal
	switch c.CodDoc {
	case sri.DocNotaDebito:
		for _, m := range c.Motivos {
			sumaBases = sumaBases.Add(m.Valor)
		}
	case sri.DocCompRetencion:
		// La retención declara valores por línea; solo se exige coherencia interna.
		for _, r := range c.Retenciones {
			esperado := r.BaseImponible.Mul(r.PorcentajeRetener).Div(decimal.NewFromInt(100)).Round(2)
			if r.ValorRetenido.Sub(esperado).Abs().GreaterThan(toleranciaCentavos) {
				return fmt.Errorf("%w: valorRetenido %s no corresponde a base %s al %s%%",
					domain.ErrTotalsMismatch, r.ValorRetenido, r.BaseImponible, r.PorcentajeRetener)
			}
		}
		return nil
	default:
		for _, d := range c.Detalles {
			sumaBases = sumaBases.Add(d.PrecioTotalSinImpuesto)
			for _, imp := range d.Impuestos {
				sumaImpuestosLinea = sumaImpuestosLinea.Add(imp.Valor)
			}
		}
	}

	if sumaBases.Sub(c.TotalSinImpuestos).Abs().GreaterThan(toleranciaCentavos) {
		return fmt.Errorf("%w: totalSinImpuestos declarado %s, suma de líneas %s",
			domain.ErrTotalsMismatch, c.TotalSinImpuestos.StringFixed(2), sumaBases.StringFixed(2))
	}

	var sumaTotalImpuestos decimal.Decimal
	for _, ti := range c.TotalImpuestos {
		sumaTotalImpuestos = sumaTotalImpuestos.Add(ti.Valor)
	}
	if c.CodDoc != sri.DocNotaDebito {
		if sumaImpuestosLinea.Sub(sumaTotalImpuestos).Abs().GreaterThan(toleranciaCentavos) {
			return fmt.Errorf("%w: totalConImpuestos declara %s, las líneas suman %s",
				domain.ErrTotalsMismatch, sumaTotalImpuestos.StringFixed(2), sumaImpuestosLinea.StringFixed(2))
		}
	}

	esperado := c.TotalSinImpuestos.Add(sumaTotalImpuestos).Add(c.Propina)
	if esperado.Sub(c.ImporteTotal).Abs().GreaterThan(toleranciaCentavos) {
		return fmt.Errorf("%w: importeTotal declarado %s, esperado %s",
			domain.ErrTotalsMismatch, c.ImporteTotal.StringFixed(2), esperado.StringFixed(2))
	}
	return nil
}

// Validar aplica catálogos, totales y las reglas estructurales por tipo de documento.
func Validar(c *entity.Comprobante) error {
	if c == nil {
		return fmt.Errorf("%w: comprobante nulo", domain.ErrValidation)
	}
	var errs []error

	if err := ValidarCatalogos(c); err != nil {
		errs = append(errs, err)
	}

	switch c.CodDoc {
	case sri.DocFactura:
		if len(c.Detalles) == 0 {
			errs = append(errs, fmt.Errorf("%w: la factura debe tener al menos un detalle", domain.ErrValidation))
		}
	case sri.DocNotaCredito:
		if len(c.Detalles) == 0 {
			errs = append(errs, fmt.Errorf("%w: la nota de crédito debe tener al menos un detalle", domain.ErrValidation))
		}
		if c.DocSustento == nil {
			errs = append(errs, fmt.Errorf("%w: la nota de crédito requiere docSustento", domain.ErrValidation))
		}
	case sri.DocNotaDebito:
		if len(c.Motivos) == 0 {
			errs = append(errs, fmt.Errorf("%w: la nota de débito debe tener al menos un motivo", domain.ErrValidation))
		}
		if c.DocSustento == nil {
			errs = append(errs, fmt.Errorf("%w: la nota de débito requiere docSustento", domain.ErrValidation))
		}
	case sri.DocCompRetencion:
		if len(c.Retenciones) == 0 {
			errs = append(errs, fmt.Errorf("%w: el comprobante de retención debe tener al menos una línea", domain.ErrValidation))
		}
		if c.DocSustento == nil {
			errs = append(errs, fmt.Errorf("%w: el comprobante de retención requiere docSustento", domain.ErrValidation))
		}
	case sri.DocGuiaRemision:
		if c.Traslado == nil {
			errs = append(errs, fmt.Errorf("%w: la guía de remisión requiere datos de traslado", domain.ErrValidation))
		}
		if len(c.Detalles) == 0 {
			errs = append(errs, fmt.Errorf("%w: la guía de remisión debe detallar los bienes trasladados", domain.ErrValidation))
		}
	}

	if err := ValidarTotales(c); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func necesitaComprador(codDoc string) bool {
	switch codDoc {
	case sri.DocFactura, sri.DocNotaCredito, sri.DocNotaDebito, sri.DocCompRetencion:
		return true
	}
	return false
}
