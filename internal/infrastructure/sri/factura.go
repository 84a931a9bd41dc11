package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildFactura esquema factura v1.1.0:
// infoTributaria → infoFactura → detalles → infoAdicional.
func (s *XMLBuilderService) buildFactura(enc *xml.Encoder, c *entity.Comprobante) error {
	root := startRoot(enc, "factura", versionFactura)

	writeInfoTributaria(enc, c)

	inf := openEl(enc, "infoFactura")
	writeEl(enc, "fechaEmision", formatFecha(c.FechaEmision))
	if c.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", sanitizarTexto(c.DirEstablecimiento))
	}
	writeEl(enc, "obligadoContabilidad", boolSiNo(c.ObligadoContabilidad))
	writeEl(enc, "tipoIdentificacionComprador", c.Comprador.TipoIdentificacion)
	writeEl(enc, "razonSocialComprador", sanitizarTexto(c.Comprador.RazonSocial))
	writeEl(enc, "identificacionComprador", c.Comprador.Identificacion)
	if c.Comprador.Direccion != "" {
		writeEl(enc, "direccionComprador", sanitizarTexto(c.Comprador.Direccion))
	}
	writeEl(enc, "totalSinImpuestos", formatMonto(c.TotalSinImpuestos))
	writeEl(enc, "totalDescuento", formatMonto(c.TotalDescuento))
	writeTotalConImpuestos(enc, c.TotalImpuestos)
	writeEl(enc, "propina", formatMonto(c.Propina))
	writeEl(enc, "importeTotal", formatMonto(c.ImporteTotal))
	writeEl(enc, "moneda", moneda(c))
	writePagos(enc, c.Pagos)
	closeEl(enc, inf)

	writeDetalles(enc, c.Detalles)
	writeInfoAdicional(enc, c.CamposAdicionales)

	return enc.EncodeToken(root.End())
}

func moneda(c *entity.Comprobante) string {
	if c.Moneda != "" {
		return c.Moneda
	}
	return "DOLAR"
}
