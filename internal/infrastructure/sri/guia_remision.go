package sri

import (
	"encoding/xml"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// buildGuiaRemision esquema guiaRemision v1.0.0:
// infoTributaria → infoGuiaRemision → destinatarios → infoAdicional.
// No lleva montos: detalla los bienes trasladados por destinatario.
func (s *XMLBuilderService) buildGuiaRemision(enc *xml.Encoder, c *entity.Comprobante) error {
	root := startRoot(enc, "guiaRemision", versionGuia)

	writeInfoTributaria(enc, c)

	inf := openEl(enc, "infoGuiaRemision")
	if c.DirEstablecimiento != "" {
		writeEl(enc, "dirEstablecimiento", sanitizarTexto(c.DirEstablecimiento))
	}
	writeEl(enc, "dirPartida", sanitizarTexto(c.Traslado.DirPartida))
	writeEl(enc, "razonSocialTransportista", sanitizarTexto(c.Traslado.RazonSocialTransportista))
	writeEl(enc, "tipoIdentificacionTransportista", c.Traslado.TipoIdentTransportista)
	writeEl(enc, "rucTransportista", c.Traslado.RUCTransportista)
	writeEl(enc, "obligadoContabilidad", boolSiNo(c.ObligadoContabilidad))
	writeEl(enc, "fechaIniTransporte", formatFecha(c.Traslado.FechaIniTransporte))
	writeEl(enc, "fechaFinTransporte", formatFecha(c.Traslado.FechaFinTransporte))
	writeEl(enc, "placa", sanitizarTexto(c.Traslado.Placa))
	closeEl(enc, inf)

	dests := openEl(enc, "destinatarios")
	dest := openEl(enc, "destinatario")
	writeEl(enc, "identificacionDestinatario", c.Comprador.Identificacion)
	writeEl(enc, "razonSocialDestinatario", sanitizarTexto(c.Comprador.RazonSocial))
	writeEl(enc, "dirDestinatario", sanitizarTexto(c.Traslado.DirDestino))
	writeEl(enc, "motivoTraslado", sanitizarTexto(c.Traslado.MotivoTraslado))
	if c.DocSustento != nil {
		writeEl(enc, "codDocSustento", c.DocSustento.CodDocModificado)
		writeEl(enc, "numDocSustento", c.DocSustento.NumDocModificado)
		writeEl(enc, "fechaEmisionDocSustento", formatFecha(c.DocSustento.FechaEmision))
	}

	ds := openEl(enc, "detalles")
	for _, d := range c.Detalles {
		det := openEl(enc, "detalle")
		writeEl(enc, "codigoInterno", sanitizarTexto(d.CodigoPrincipal))
		writeEl(enc, "descripcion", sanitizarTexto(d.Descripcion))
		writeEl(enc, "cantidad", formatCantidad(d.Cantidad))
		closeEl(enc, det)
	}
	closeEl(enc, ds)

	closeEl(enc, dest)
	closeEl(enc, dests)

	writeInfoAdicional(enc, c.CamposAdicionales)

	return enc.EncodeToken(root.End())
}
