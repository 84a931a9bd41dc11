// Package sri implementa la generación del XML de comprobantes electrónicos
// según los esquemas XSD de la Ficha Técnica del SRI (Ecuador), el cliente SOAP
// de recepción/autorización y los tipos de intercambio.
package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/comprobante"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ComprobanteID valor del atributo id del elemento raíz; la Reference de la
// firma XAdES-BES apunta a "#comprobante".
const ComprobanteID = "comprobante"

// Versiones de esquema publicadas por el SRI para cada tipo de documento.
const (
	versionFactura     = "1.1.0"
	versionNotaCredito = "1.1.0"
	versionNotaDebito  = "1.0.0"
	versionRetencion   = "1.0.0"
	versionGuia        = "1.0.0"
)

// XMLBuilderService mapea un Comprobante al XML canónico de su tipo de
// documento. Mapeo puro: sin I/O, sin firma.
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build valida el comprobante (catálogos, totales, estructura por tipo) y
// genera el XML sin firma. Un conjunto cerrado de constructores, despachado
// por codDoc; un código desconocido es error, nunca inspección de tipos.
func (s *XMLBuilderService) Build(c *entity.Comprobante) ([]byte, error) {
	if err := comprobante.Validar(c); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	var err error
	switch c.CodDoc {
	case pkgsri.DocFactura:
		err = s.buildFactura(enc, c)
	case pkgsri.DocNotaCredito:
		err = s.buildNotaCredito(enc, c)
	case pkgsri.DocNotaDebito:
		err = s.buildNotaDebito(enc, c)
	case pkgsri.DocGuiaRemision:
		err = s.buildGuiaRemision(enc, c)
	case pkgsri.DocCompRetencion:
		err = s.buildRetencion(enc, c)
	default:
		return nil, fmt.Errorf("%w: codDoc=%q sin constructor", domain.ErrInvalidCatalogCode, c.CodDoc)
	}
	if err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ── primitivas compartidas ────────────────────────────────────────────────────

func startRoot(enc *xml.Encoder, local, version string) xml.StartElement {
	root := xml.StartElement{
		Name: xml.Name{Local: local},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: ComprobanteID},
			{Name: xml.Name{Local: "version"}, Value: version},
		},
	}
	_ = enc.EncodeToken(root)
	return root
}

func writeEl(enc *xml.Encoder, local, value string) {
	start := xml.StartElement{Name: xml.Name{Local: local}}
	_ = enc.EncodeToken(start)
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(start.End())
}

func openEl(enc *xml.Encoder, local string) xml.StartElement {
	start := xml.StartElement{Name: xml.Name{Local: local}}
	_ = enc.EncodeToken(start)
	return start
}

func closeEl(enc *xml.Encoder, start xml.StartElement) {
	_ = enc.EncodeToken(start.End())
}

// formatMonto montos siempre con 2 decimales fijos; el cuadre ya se validó,
// aquí nunca se redondea un valor que no cuadre.
func formatMonto(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func formatCantidad(d decimal.Decimal) string {
	return d.String()
}

// formatFecha fechas del cuerpo del comprobante en dd/mm/aaaa.
func formatFecha(t time.Time) string {
	return t.Format("02/01/2006")
}

// sanitizarTexto normaliza texto libre antes de emitirlo al XML: NFC y sin
// caracteres de control, que el validador del SRI rechaza.
func sanitizarTexto(s string) string {
	limpio, _, err := transform.String(transform.Chain(
		norm.NFC,
		runes.Remove(runes.In(unicode.Cc)),
	), s)
	if err != nil {
		return s
	}
	return limpio
}

func boolSiNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

// writeInfoTributaria bloque común a todos los tipos de documento; el orden de
// los hijos es el del XSD y no puede variar.
func writeInfoTributaria(enc *xml.Encoder, c *entity.Comprobante) {
	it := openEl(enc, "infoTributaria")
	writeEl(enc, "ambiente", c.Ambiente)
	writeEl(enc, "tipoEmision", c.TipoEmision)
	writeEl(enc, "razonSocial", sanitizarTexto(c.RazonSocial))
	if c.NombreComercial != "" {
		writeEl(enc, "nombreComercial", sanitizarTexto(c.NombreComercial))
	}
	writeEl(enc, "ruc", c.RUC)
	writeEl(enc, "claveAcceso", c.ClaveAcceso)
	writeEl(enc, "codDoc", c.CodDoc)
	writeEl(enc, "estab", c.Estab)
	writeEl(enc, "ptoEmi", c.PtoEmi)
	writeEl(enc, "secuencial", c.Secuencial)
	writeEl(enc, "dirMatriz", sanitizarTexto(c.DirMatriz))
	closeEl(enc, it)
}

// writeTotalConImpuestos agregados de impuestos (factura y nota de crédito).
func writeTotalConImpuestos(enc *xml.Encoder, totales []entity.TotalImpuesto) {
	tci := openEl(enc, "totalConImpuestos")
	for _, ti := range totales {
		t := openEl(enc, "totalImpuesto")
		writeEl(enc, "codigo", ti.Codigo)
		writeEl(enc, "codigoPorcentaje", ti.CodigoPorcentaje)
		writeEl(enc, "baseImponible", formatMonto(ti.BaseImponible))
		writeEl(enc, "valor", formatMonto(ti.Valor))
		closeEl(enc, t)
	}
	closeEl(enc, tci)
}

// writeDetalles líneas con sus impuestos (factura, nota de crédito).
func writeDetalles(enc *xml.Encoder, detalles []entity.Detalle) {
	ds := openEl(enc, "detalles")
	for _, d := range detalles {
		det := openEl(enc, "detalle")
		writeEl(enc, "codigoPrincipal", sanitizarTexto(d.CodigoPrincipal))
		if d.CodigoAuxiliar != "" {
			writeEl(enc, "codigoAuxiliar", sanitizarTexto(d.CodigoAuxiliar))
		}
		writeEl(enc, "descripcion", sanitizarTexto(d.Descripcion))
		writeEl(enc, "cantidad", formatCantidad(d.Cantidad))
		writeEl(enc, "precioUnitario", d.PrecioUnitario.StringFixed(2))
		writeEl(enc, "descuento", formatMonto(d.Descuento))
		writeEl(enc, "precioTotalSinImpuesto", formatMonto(d.PrecioTotalSinImpuesto))
		imps := openEl(enc, "impuestos")
		for _, imp := range d.Impuestos {
			i := openEl(enc, "impuesto")
			writeEl(enc, "codigo", imp.Codigo)
			writeEl(enc, "codigoPorcentaje", imp.CodigoPorcentaje)
			writeEl(enc, "tarifa", imp.Tarifa.String())
			writeEl(enc, "baseImponible", formatMonto(imp.BaseImponible))
			writeEl(enc, "valor", formatMonto(imp.Valor))
			closeEl(enc, i)
		}
		closeEl(enc, imps)
		closeEl(enc, det)
	}
	closeEl(enc, ds)
}

// writePagos bloque pagos (factura y nota de débito).
func writePagos(enc *xml.Encoder, pagos []entity.Pago) {
	if len(pagos) == 0 {
		return
	}
	ps := openEl(enc, "pagos")
	for _, p := range pagos {
		pe := openEl(enc, "pago")
		writeEl(enc, "formaPago", p.FormaPago)
		writeEl(enc, "total", formatMonto(p.Total))
		if p.Plazo > 0 {
			writeEl(enc, "plazo", fmt.Sprintf("%d", p.Plazo))
			writeEl(enc, "unidadTiempo", p.UnidadTiempo)
		}
		closeEl(enc, pe)
	}
	closeEl(enc, ps)
}

// writeInfoAdicional campos libres al final de todo comprobante.
func writeInfoAdicional(enc *xml.Encoder, campos []entity.CampoAdicional) {
	if len(campos) == 0 {
		return
	}
	ia := openEl(enc, "infoAdicional")
	for _, c := range campos {
		start := xml.StartElement{
			Name: xml.Name{Local: "campoAdicional"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "nombre"}, Value: sanitizarTexto(c.Nombre)}},
		}
		_ = enc.EncodeToken(start)
		_ = enc.EncodeToken(xml.CharData(sanitizarTexto(c.Valor)))
		_ = enc.EncodeToken(start.End())
	}
	closeEl(enc, ia)
}
