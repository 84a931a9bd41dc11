package sri_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/pkg/sri"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func facturaLista() *entity.Comprobante {
	return &entity.Comprobante{
		RUC:          "1790012345001",
		RazonSocial:  "PRUEBAS S.A.",
		DirMatriz:    "Av. Amazonas N26-146",
		CodDoc:       sri.DocFactura,
		Estab:        "001",
		PtoEmi:       "001",
		Secuencial:   "000000001",
		ClaveAcceso:  "1506202401179001234500110010010000000011234567812",
		Ambiente:     sri.AmbientePruebas,
		TipoEmision:  sri.EmisionNormal,
		FechaEmision: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Comprador: entity.Comprador{
			TipoIdentificacion: sri.IdentConsumidorFinal,
			Identificacion:     "9999999999999",
			RazonSocial:        "CONSUMIDOR FINAL",
		},
		Detalles: []entity.Detalle{{
			CodigoPrincipal:        "P-001",
			Descripcion:            "Servicio de consultoría",
			Cantidad:               d("2"),
			PrecioUnitario:         d("50.00"),
			PrecioTotalSinImpuesto: d("100.00"),
			Impuestos: []entity.ImpuestoDetalle{{
				Codigo:           sri.ImpuestoIVA,
				CodigoPorcentaje: sri.IVATarifa15,
				Tarifa:           d("15"),
				BaseImponible:    d("100.00"),
				Valor:            d("15.00"),
			}},
		}},
		TotalSinImpuestos: d("100.00"),
		TotalDescuento:    d("0.00"),
		TotalImpuestos: []entity.TotalImpuesto{{
			Codigo:           sri.ImpuestoIVA,
			CodigoPorcentaje: sri.IVATarifa15,
			BaseImponible:    d("100.00"),
			Valor:            d("15.00"),
		}},
		ImporteTotal: d("115.00"),
		Pagos: []entity.Pago{{
			FormaPago: sri.PagoSinSistemaFinanciero,
			Total:     d("115.00"),
		}},
	}
}

func construir(t *testing.T, c *entity.Comprobante) *etree.Document {
	t.Helper()
	xmlBytes, err := infrasri.NewXMLBuilderService().Build(c)
	require.NoError(t, err)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(xmlBytes))
	return doc
}

func tagsHijos(el *etree.Element) []string {
	var tags []string
	for _, h := range el.ChildElements() {
		tags = append(tags, h.Tag)
	}
	return tags
}

func TestBuild_Factura(t *testing.T) {
	doc := construir(t, facturaLista())

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "factura", root.Tag)
	assert.Equal(t, "comprobante", root.SelectAttrValue("id", ""))
	assert.Equal(t, "1.1.0", root.SelectAttrValue("version", ""))

	// El orden de infoTributaria es el del XSD y no puede variar.
	it := root.FindElement("./infoTributaria")
	require.NotNil(t, it)
	assert.Equal(t, []string{
		"ambiente", "tipoEmision", "razonSocial", "ruc", "claveAcceso",
		"codDoc", "estab", "ptoEmi", "secuencial", "dirMatriz",
	}, tagsHijos(it))
	assert.Equal(t, "1506202401179001234500110010010000000011234567812",
		it.FindElement("./claveAcceso").Text())

	inf := root.FindElement("./infoFactura")
	require.NotNil(t, inf)
	assert.Equal(t, "15/06/2024", inf.FindElement("./fechaEmision").Text())
	assert.Equal(t, "NO", inf.FindElement("./obligadoContabilidad").Text())
	assert.Equal(t, "115.00", inf.FindElement("./importeTotal").Text())
	assert.Equal(t, "DOLAR", inf.FindElement("./moneda").Text())
	assert.Equal(t, "15.00", inf.FindElement("./totalConImpuestos/totalImpuesto/valor").Text())
	assert.Equal(t, "01", inf.FindElement("./pagos/pago/formaPago").Text())

	det := root.FindElement("./detalles/detalle")
	require.NotNil(t, det)
	assert.Equal(t, "100.00", det.FindElement("./precioTotalSinImpuesto").Text())
	assert.Equal(t, "4", det.FindElement("./impuestos/impuesto/codigoPorcentaje").Text())
}

func TestBuild_ValidaAntesDeConstruir(t *testing.T) {
	c := facturaLista()
	c.ImporteTotal = d("999.00")

	xmlBytes, err := infrasri.NewXMLBuilderService().Build(c)
	assert.Nil(t, xmlBytes)
	assert.ErrorIs(t, err, domain.ErrTotalsMismatch)
}

func TestBuild_CodDocSinConstructor(t *testing.T) {
	c := facturaLista()
	c.CodDoc = "03"

	_, err := infrasri.NewXMLBuilderService().Build(c)
	assert.ErrorIs(t, err, domain.ErrInvalidCatalogCode)
}

func TestBuild_NotaDebito(t *testing.T) {
	c := facturaLista()
	c.CodDoc = sri.DocNotaDebito
	c.Detalles = nil
	c.Motivos = []entity.Motivo{{Razon: "Intereses por mora", Valor: d("100.00")}}
	c.DocSustento = &entity.DocSustento{
		CodDocModificado: sri.DocFactura,
		NumDocModificado: "001-001-000000123",
		FechaEmision:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	doc := construir(t, c)
	root := doc.Root()
	assert.Equal(t, "notaDebito", root.Tag)
	assert.Equal(t, "1.0.0", root.SelectAttrValue("version", ""))

	inf := root.FindElement("./infoNotaDebito")
	require.NotNil(t, inf)
	assert.Equal(t, "001-001-000000123", inf.FindElement("./numDocModificado").Text())
	assert.Equal(t, "01/05/2024", inf.FindElement("./fechaEmisionDocSustento").Text())
	assert.Equal(t, "115.00", inf.FindElement("./valorTotal").Text())

	// Los motivos reemplazan a los detalles.
	require.NotNil(t, root.FindElement("./motivos/motivo"))
	assert.Equal(t, "Intereses por mora", root.FindElement("./motivos/motivo/razon").Text())
	assert.Nil(t, root.FindElement("./detalles"))
}

func TestBuild_Retencion(t *testing.T) {
	c := facturaLista()
	c.CodDoc = sri.DocCompRetencion
	c.Detalles = nil
	c.Pagos = nil
	c.TotalImpuestos = nil
	c.TotalSinImpuestos = decimal.Zero
	c.ImporteTotal = decimal.Zero
	c.Retenciones = []entity.Retencion{{
		Codigo:            sri.RetencionRenta,
		CodigoRetencion:   "312",
		BaseImponible:     d("1000.00"),
		PorcentajeRetener: d("2"),
		ValorRetenido:     d("20.00"),
	}}
	c.DocSustento = &entity.DocSustento{
		CodDocModificado: sri.DocFactura,
		NumDocModificado: "001-001-000000123",
		FechaEmision:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		CodSustento:      sri.SustentoCostoGasto,
		PeriodoFiscal:    "05/2024",
	}

	doc := construir(t, c)
	root := doc.Root()
	assert.Equal(t, "comprobanteRetencion", root.Tag)
	assert.Equal(t, "05/2024", root.FindElement("./infoCompRetencion/periodoFiscal").Text())

	imp := root.FindElement("./impuestos/impuesto")
	require.NotNil(t, imp)
	assert.Equal(t, "312", imp.FindElement("./codigoRetencion").Text())
	assert.Equal(t, "20.00", imp.FindElement("./valorRetenido").Text())
	// El número de sustento va sin separadores.
	assert.Equal(t, "001001000000123", imp.FindElement("./numDocSustento").Text())
}

func TestBuild_GuiaRemision(t *testing.T) {
	c := facturaLista()
	c.CodDoc = sri.DocGuiaRemision
	c.Pagos = nil
	c.TotalImpuestos = nil
	c.TotalSinImpuestos = decimal.Zero
	c.ImporteTotal = decimal.Zero
	c.Detalles[0].Impuestos = nil
	c.Traslado = &entity.Traslado{
		DirPartida:               "Av. Amazonas N26-146",
		RazonSocialTransportista: "TRANSPORTES EC",
		TipoIdentTransportista:   sri.IdentRUC,
		RUCTransportista:         "0992233445001",
		FechaIniTransporte:       time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		FechaFinTransporte:       time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC),
		Placa:                    "PBX1234",
		MotivoTraslado:           "Venta",
		DirDestino:               "Av. 9 de Octubre 100",
	}

	doc := construir(t, c)
	root := doc.Root()
	assert.Equal(t, "guiaRemision", root.Tag)
	assert.Equal(t, "PBX1234", root.FindElement("./infoGuiaRemision/placa").Text())

	dest := root.FindElement("./destinatarios/destinatario")
	require.NotNil(t, dest)
	assert.Equal(t, "Venta", dest.FindElement("./motivoTraslado").Text())
	assert.Equal(t, "P-001", dest.FindElement("./detalles/detalle/codigoInterno").Text())
	// La guía no lleva montos.
	assert.Nil(t, root.FindElement("./infoGuiaRemision/importeTotal"))
}

func TestBuild_SanitizaTextoLibre(t *testing.T) {
	c := facturaLista()
	c.RazonSocial = "PRUEBAS\x07 S.A."
	c.CamposAdicionales = []entity.CampoAdicional{{Nombre: "email", Valor: "pagos@pruebas.ec"}}

	doc := construir(t, c)
	root := doc.Root()
	assert.Equal(t, "PRUEBAS S.A.", root.FindElement("./infoTributaria/razonSocial").Text(),
		"los caracteres de control no llegan al XML")

	campo := root.FindElement("./infoAdicional/campoAdicional")
	require.NotNil(t, campo)
	assert.Equal(t, "email", campo.SelectAttrValue("nombre", ""))
	assert.Equal(t, "pagos@pruebas.ec", campo.Text())
}
