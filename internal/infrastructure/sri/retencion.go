package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildRetencion esquema comprobanteRetencion v1.0.0:
// infoTributaria → infoCompRetencion → impuestos → infoAdicional.
// Cada línea referencia el documento sustento retenido.
func (s *XMLBuilderService) buildRetencion(enc *xml.Encoder, c *entity.Comprobante) error {
	root := startRoot(enc, "comprobanteRetencion", versionRetencion)

	writeInfoTributaria(enc, c)

	inf := openEl(enc, "infoCompRetencion")
	writeEl(enc, "fechaEmision", formatFecha(c.FechaEmision))
	if c.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", sanitizarTexto(c.DirEstablecimiento))
	}
	writeEl(enc, "obligadoContabilidad", boolSiNo(c.ObligadoContabilidad))
	writeEl(enc, "tipoIdentificacionSujetoRetenido", c.Comprador.TipoIdentificacion)
	writeEl(enc, "razonSocialSujetoRetenido", sanitizarTexto(c.Comprador.RazonSocial))
	writeEl(enc, "identificacionSujetoRetenido", c.Comprador.Identificacion)
	writeEl(enc, "periodoFiscal", c.DocSustento.PeriodoFiscal)
	closeEl(enc, inf)

	imps := openEl(enc, "impuestos")
	for _, r := range c.Retenciones {
		i := openEl(enc, "impuesto")
		writeEl(enc, "codigo", r.Codigo)
		writeEl(enc, "codigoRetencion", r.CodigoRetencion)
		writeEl(enc, "baseImponible", formatMonto(r.BaseImponible))
		writeEl(enc, "porcentajeRetener", r.PorcentajeRetener.String())
		writeEl(enc, "valorRetenido", formatMonto(r.ValorRetenido))
		writeEl(enc, "codDocSustento", c.DocSustento.CodDocModificado)
		writeEl(enc, "numDocSustento", soloDigitos(c.DocSustento.NumDocModificado))
		writeEl(enc, "fechaEmisionDocSustento", formatFecha(c.DocSustento.FechaEmision))
		closeEl(enc, i)
	}
	closeEl(enc, imps)

	writeInfoAdicional(enc, c.CamposAdicionales)

	return enc.EncodeToken(root.End())
}

func soloDigitos(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
