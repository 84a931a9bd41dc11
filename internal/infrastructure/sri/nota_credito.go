package sri

import (
	"encoding/xml"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildNotaCredito esquema notaCredito v1.1.0:
// infoTributaria → infoNotaCredito → detalles → infoAdicional.
// El documento modificado (docSustento) es obligatorio.
func (s *XMLBuilderService) buildNotaCredito(enc *xml.Encoder, c *entity.Comprobante) error {
	root := startRoot(enc, "notaCredito", versionNotaCredito)

	writeInfoTributaria(enc, c)

	inf := openEl(enc, "infoNotaCredito")
	writeEl(enc, "fechaEmision", formatFecha(c.FechaEmision))
	if c.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", sanitizarTexto(c.DirEstablecimiento))
	}
	writeEl(enc, "tipoIdentificacionComprador", c.Comprador.TipoIdentificacion)
	writeEl(enc, "razonSocialComprador", sanitizarTexto(c.Comprador.RazonSocial))
	writeEl(enc, "identificacionComprador", c.Comprador.Identificacion)
	writeEl(enc, "obligadoContabilidad", boolSiNo(c.ObligadoContabilidad))
	writeEl(enc, "codDocModificado", c.DocSustento.CodDocModificado)
	writeEl(enc, "numDocModificado", c.DocSustento.NumDocModificado)
	writeEl(enc, "fechaEmisionDocSustento", formatFecha(c.DocSustento.FechaEmision))
	writeEl(enc, "totalSinImpuestos", formatMonto(c.TotalSinImpuestos))
	writeEl(enc, "valorModificacion", formatMonto(valorModificacion(c)))
	writeEl(enc, "moneda", moneda(c))
	writeTotalConImpuestos(enc, c.TotalImpuestos)
	writeEl(enc, "motivo", sanitizarTexto(motivoNotaCredito(c)))
	closeEl(enc, inf)

	writeDetalles(enc, c.Detalles)
	writeInfoAdicional(enc, c.CamposAdicionales)

	return enc.EncodeToken(root.End())
}

// valorModificacion total de la nota: base más impuestos.
func valorModificacion(c *entity.Comprobante) decimal.Decimal {
	if !c.ImporteTotal.IsZero() {
		return c.ImporteTotal
	}
	total := c.TotalSinImpuestos
	for _, ti := range c.TotalImpuestos {
		total = total.Add(ti.Valor)
	}
	return total
}

func motivoNotaCredito(c *entity.Comprobante) string {
	for _, ca := range c.CamposAdicionales {
		if ca.Nombre == "motivo" {
			return ca.Valor
		}
	}
	return "Devolución"
}
