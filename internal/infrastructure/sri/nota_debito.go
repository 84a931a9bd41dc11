package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildNotaDebito esquema notaDebito v1.0.0:
// infoTributaria → infoNotaDebito → motivos → infoAdicional.
// Los motivos reemplazan a los detalles y el docSustento es obligatorio.
func (s *XMLBuilderService) buildNotaDebito(enc *xml.Encoder, c *entity.Comprobante) error {
	root := startRoot(enc, "notaDebito", versionNotaDebito)

	writeInfoTributaria(enc, c)

	inf := openEl(enc, "infoNotaDebito")
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

	imps := openEl(enc, "impuestos")
	for _, ti := range c.TotalImpuestos {
		i := openEl(enc, "impuesto")
		writeEl(enc, "codigo", ti.Codigo)
		writeEl(enc, "codigoPorcentaje", ti.CodigoPorcentaje)
		writeEl(enc, "baseImponible", formatMonto(ti.BaseImponible))
		writeEl(enc, "valor", formatMonto(ti.Valor))
		closeEl(enc, i)
	}
	closeEl(enc, imps)

	writeEl(enc, "valorTotal", formatMonto(c.ImporteTotal))
	writePagos(enc, c.Pagos)
	closeEl(enc, inf)

	ms := openEl(enc, "motivos")
	for _, m := range c.Motivos {
		me := openEl(enc, "motivo")
		writeEl(enc, "razon", sanitizarTexto(m.Razon))
		writeEl(enc, "valor", formatMonto(m.Valor))
		closeEl(enc, me)
	}
	closeEl(enc, ms)

	writeInfoAdicional(enc, c.CamposAdicionales)

	return enc.EncodeToken(root.End())
}
