package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ── Endpoints oficiales por ambiente ──────────────────────────────────────────

const (
	recepcionURLPruebas    = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	autorizacionURLPruebas = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	recepcionURLProd       = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	autorizacionURLProd    = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion    = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion = "http://ec.gob.sri.ws.autorizacion"
)

// SOAPClientConfig parámetros del cliente (timeout por llamada, reintentos y
// overrides de endpoint para tests).
type SOAPClientConfig struct {
	Ambiente        string        // "1" pruebas, "2" producción
	RecepcionURL    string        // vacío = URL oficial del ambiente
	AutorizacionURL string        // vacío = URL oficial del ambiente
	Timeout         time.Duration // por intento; 0 = 30 s
	MaxReintentos   int           // intentos adicionales ante fallas transitorias; 0 = 3
	BackoffBase     time.Duration // espera inicial entre reintentos; 0 = 500 ms
}

// SOAPClient implementa Gateway contra los web services SOAP 1.1 del SRI.
// Usa net/http de la stdlib; el contrato WSDL es lo bastante pequeño para no
// necesitar un generador de stubs.
type SOAPClient struct {
	httpClient      *http.Client
	recepcionURL    string
	autorizacionURL string
	maxReintentos   int
	backoffBase     time.Duration
}

var _ Gateway = (*SOAPClient)(nil)

// NewSOAPClient construye el cliente para el ambiente indicado.
func NewSOAPClient(cfg SOAPClientConfig) *SOAPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	reintentos := cfg.MaxReintentos
	if reintentos == 0 {
		reintentos = 3
	}
	backoff := cfg.BackoffBase
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}

	recepcion, autorizacion := recepcionURLPruebas, autorizacionURLPruebas
	if cfg.Ambiente == pkgsri.AmbienteProduccion {
		recepcion, autorizacion = recepcionURLProd, autorizacionURLProd
	}
	if cfg.RecepcionURL != "" {
		recepcion = cfg.RecepcionURL
	}
	if cfg.AutorizacionURL != "" {
		autorizacion = cfg.AutorizacionURL
	}

	return &SOAPClient{
		httpClient:      &http.Client{Timeout: timeout},
		recepcionURL:    recepcion,
		autorizacionURL: autorizacion,
		maxReintentos:   reintentos,
		backoffBase:     backoff,
	}
}

// ── Estructuras SOAP de petición ──────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	XmlnsEC string     `xml:"xmlns:ec,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"` // comprobante firmado en Base64
}

type autorizacionComprobanteBody struct {
	XMLName xml.Name `xml:"ec:autorizacionComprobante"`
	Clave   string   `xml:"claveAccesoComprobante"`
}

// ── Estructuras SOAP de respuesta ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	ValidarResponse      *validarComprobanteResponse      `xml:"validarComprobanteResponse"`
	AutorizacionResponse *autorizacionComprobanteResponse `xml:"autorizacionComprobanteResponse"`
	Fault                *soapFault                       `xml:"Fault"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type validarComprobanteResponse struct {
	Respuesta respuestaRecepcion `xml:"RespuestaRecepcionComprobante"`
}

type respuestaRecepcion struct {
	Estado       string          `xml:"estado"`
	Comprobantes []comprobanteWS `xml:"comprobantes>comprobante"`
}

type comprobanteWS struct {
	ClaveAcceso string      `xml:"claveAcceso"`
	Mensajes    []mensajeWS `xml:"mensajes>mensaje"`
}

type mensajeWS struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type autorizacionComprobanteResponse struct {
	Respuesta respuestaAutorizacion `xml:"RespuestaAutorizacionComprobante"`
}

type respuestaAutorizacion struct {
	ClaveAccesoConsultada string           `xml:"claveAccesoConsultada"`
	NumeroComprobantes    string           `xml:"numeroComprobantes"`
	Autorizaciones        []autorizacionWS `xml:"autorizaciones>autorizacion"`
}

type autorizacionWS struct {
	Estado             string      `xml:"estado"`
	NumeroAutorizacion string      `xml:"numeroAutorizacion"`
	FechaAutorizacion  string      `xml:"fechaAutorizacion"`
	Ambiente           string      `xml:"ambiente"`
	Comprobante        string      `xml:"comprobante"`
	Mensajes           []mensajeWS `xml:"mensajes>mensaje"`
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// ValidarComprobante entrega el XML firmado en Base64 al servicio de recepción.
// Síncrono: RECIBIDA o DEVUELTA. Una DEVUELTA bien formada nunca se reintenta.
func (c *SOAPClient) ValidarComprobante(ctx context.Context, xmlFirmado []byte) (*ResultadoRecepcion, error) {
	envelope := soapEnvelope{
		XmlnsS:  soapNS,
		XmlnsEC: nsRecepcion,
		Body: soapBody{Content: &validarComprobanteBody{
			XML: base64.StdEncoding.EncodeToString(xmlFirmado),
		}},
	}

	raw, err := c.llamarConReintentos(ctx, c.recepcionURL, envelope)
	if err != nil {
		return nil, err
	}

	var resp soapResponseEnvelope
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: respuesta de recepción ilegible: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.Body.Fault != nil {
		return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s",
			domain.ErrGatewayUnavailable, resp.Body.Fault.FaultCode, resp.Body.Fault.FaultString)
	}
	if resp.Body.ValidarResponse == nil {
		return nil, fmt.Errorf("%w: respuesta de recepción vacía", domain.ErrGatewayUnavailable)
	}

	r := resp.Body.ValidarResponse.Respuesta
	resultado := &ResultadoRecepcion{Estado: r.Estado}
	for _, comp := range r.Comprobantes {
		for _, m := range comp.Mensajes {
			resultado.Mensajes = append(resultado.Mensajes, MensajeSRI(m))
		}
	}
	return resultado, nil
}

// AutorizacionComprobante consulta la autorización por clave de acceso.
// Una respuesta sin autorizaciones equivale a EN PROCESO (el SRI aún no resuelve).
func (c *SOAPClient) AutorizacionComprobante(ctx context.Context, claveAcceso string) (*ResultadoAutorizacion, error) {
	envelope := soapEnvelope{
		XmlnsS:  soapNS,
		XmlnsEC: nsAutorizacion,
		Body:    soapBody{Content: &autorizacionComprobanteBody{Clave: claveAcceso}},
	}

	raw, err := c.llamarConReintentos(ctx, c.autorizacionURL, envelope)
	if err != nil {
		return nil, err
	}

	var resp soapResponseEnvelope
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: respuesta de autorización ilegible: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.Body.Fault != nil {
		return nil, fmt.Errorf("%w: SOAP Fault [%s]: %s",
			domain.ErrGatewayUnavailable, resp.Body.Fault.FaultCode, resp.Body.Fault.FaultString)
	}
	if resp.Body.AutorizacionResponse == nil {
		return nil, fmt.Errorf("%w: respuesta de autorización vacía", domain.ErrGatewayUnavailable)
	}

	auts := resp.Body.AutorizacionResponse.Respuesta.Autorizaciones
	if len(auts) == 0 {
		return &ResultadoAutorizacion{Estado: EstadoEnProceso}, nil
	}

	a := auts[0]
	resultado := &ResultadoAutorizacion{
		Estado:             a.Estado,
		NumeroAutorizacion: a.NumeroAutorizacion,
		ComprobanteXML:     a.Comprobante,
	}
	if a.FechaAutorizacion != "" {
		if ts, err := time.Parse(time.RFC3339, a.FechaAutorizacion); err == nil {
			resultado.FechaAutorizacion = &ts
		}
	}
	for _, m := range a.Mensajes {
		resultado.Mensajes = append(resultado.Mensajes, MensajeSRI(m))
	}
	return resultado, nil
}

// ── Transporte con reintentos ─────────────────────────────────────────────────

// llamarConReintentos serializa el envelope y lo entrega con backoff exponencial
// ante fallas transitorias (error de red, 5xx). Un 4xx o una respuesta SOAP
// bien formada no se reintenta.
func (c *SOAPClient) llamarConReintentos(ctx context.Context, url string, envelope soapEnvelope) ([]byte, error) {
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	var ultimoErr error
	espera := c.backoffBase
	for intento := 0; intento <= c.maxReintentos; intento++ {
		if intento > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, ctx.Err())
			case <-time.After(espera):
			}
			espera *= 2
		}

		raw, transitorio, err := c.llamar(ctx, url, payload)
		if err == nil {
			return raw, nil
		}
		ultimoErr = err
		if !transitorio {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: agotados %d intentos: %v",
		domain.ErrGatewayUnavailable, c.maxReintentos+1, ultimoErr)
}

func (c *SOAPClient) llamar(ctx context.Context, url string, payload []byte) (raw []byte, transitorio bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, ctx.Err())
		}
		return nil, true, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // máx 4 MB
	if err != nil {
		return nil, true, fmt.Errorf("%w: leer respuesta: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%w: HTTP %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: HTTP %d inesperado", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	return body, false, nil
}
