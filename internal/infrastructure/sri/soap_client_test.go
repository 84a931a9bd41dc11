package sri_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
)

const respuestaRecibida = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>RECIBIDA</estado>
        <comprobantes/>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const respuestaDevuelta = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>DEVUELTA</estado>
        <comprobantes>
          <comprobante>
            <claveAcceso>1506202401179001234500110010010000000011234567812</claveAcceso>
            <mensajes>
              <mensaje>
                <identificador>45</identificador>
                <mensaje>SECUENCIAL REGISTRADO</mensaje>
                <informacionAdicional>El secuencial ya fue autorizado</informacionAdicional>
                <tipo>ERROR</tipo>
              </mensaje>
            </mensajes>
          </comprobante>
        </comprobantes>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const respuestaAutorizado = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>1506202401179001234500110010010000000011234567812</claveAccesoConsultada>
        <numeroComprobantes>1</numeroComprobantes>
        <autorizaciones>
          <autorizacion>
            <estado>AUTORIZADO</estado>
            <numeroAutorizacion>1506202410301790012345001</numeroAutorizacion>
            <fechaAutorizacion>2024-06-15T10:30:00-05:00</fechaAutorizacion>
            <ambiente>PRUEBAS</ambiente>
            <comprobante><![CDATA[<factura id="comprobante">autorizada</factura>]]></comprobante>
            <mensajes/>
          </autorizacion>
        </autorizaciones>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const respuestaSinAutorizaciones = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>1506202401179001234500110010010000000011234567812</claveAccesoConsultada>
        <numeroComprobantes>0</numeroComprobantes>
        <autorizaciones/>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const respuestaFault = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Error interno del servidor</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

func clienteContra(recepcionURL, autorizacionURL string) *infrasri.SOAPClient {
	return infrasri.NewSOAPClient(infrasri.SOAPClientConfig{
		Ambiente:        "1",
		RecepcionURL:    recepcionURL,
		AutorizacionURL: autorizacionURL,
		Timeout:         2 * time.Second,
		MaxReintentos:   2,
		BackoffBase:     time.Millisecond,
	})
}

func TestValidarComprobante_Recibida(t *testing.T) {
	xmlFirmado := []byte(`<factura id="comprobante">firmada</factura>`)
	var cuerpoPeticion string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "text/xml")
		body, _ := io.ReadAll(r.Body)
		cuerpoPeticion = string(body)
		_, _ = w.Write([]byte(respuestaRecibida))
	}))
	defer srv.Close()

	cliente := clienteContra(srv.URL, srv.URL)
	res, err := cliente.ValidarComprobante(context.Background(), xmlFirmado)
	require.NoError(t, err)
	assert.Equal(t, infrasri.EstadoRecibida, res.Estado)
	assert.Empty(t, res.Mensajes)

	// El comprobante viaja en Base64 dentro de ec:validarComprobante.
	assert.Contains(t, cuerpoPeticion, "validarComprobante")
	assert.Contains(t, cuerpoPeticion, base64.StdEncoding.EncodeToString(xmlFirmado))
}

func TestValidarComprobante_DevueltaNoSeReintenta(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&llamadas, 1)
		_, _ = w.Write([]byte(respuestaDevuelta))
	}))
	defer srv.Close()

	cliente := clienteContra(srv.URL, srv.URL)
	res, err := cliente.ValidarComprobante(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)

	assert.Equal(t, infrasri.EstadoDevuelta, res.Estado)
	require.Len(t, res.Mensajes, 1)
	assert.Equal(t, "45", res.Mensajes[0].Identificador)
	assert.Equal(t, "SECUENCIAL REGISTRADO", res.Mensajes[0].Mensaje)
	assert.Equal(t, "ERROR", res.Mensajes[0].Tipo)
	assert.Equal(t, int32(1), atomic.LoadInt32(&llamadas),
		"una DEVUELTA es un defecto del documento, no de transporte")
}

func TestValidarComprobante_ReintentaFallaTransitoria(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&llamadas, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(respuestaRecibida))
	}))
	defer srv.Close()

	cliente := clienteContra(srv.URL, srv.URL)
	res, err := cliente.ValidarComprobante(context.Background(), []byte("<factura/>"))
	require.NoError(t, err)
	assert.Equal(t, infrasri.EstadoRecibida, res.Estado)
	assert.Equal(t, int32(2), atomic.LoadInt32(&llamadas))
}

func TestValidarComprobante_AgotaReintentos(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&llamadas, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cliente := clienteContra(srv.URL, srv.URL)
	_, err := cliente.ValidarComprobante(context.Background(), []byte("<factura/>"))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&llamadas), "intento inicial + 2 reintentos")
}

func TestValidarComprobante_FaultNoSeReintenta(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&llamadas, 1)
		_, _ = w.Write([]byte(respuestaFault))
	}))
	defer srv.Close()

	cliente := clienteContra(srv.URL, srv.URL)
	_, err := cliente.ValidarComprobante(context.Background(), []byte("<factura/>"))
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "Error interno del servidor")
	assert.Equal(t, int32(1), atomic.LoadInt32(&llamadas))
}

func TestAutorizacionComprobante_Autorizado(t *testing.T) {
	var cuerpoPeticion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cuerpoPeticion = string(body)
		_, _ = w.Write([]byte(respuestaAutorizado))
	}))
	defer srv.Close()

	const clave = "1506202401179001234500110010010000000011234567812"
	cliente := clienteContra(srv.URL, srv.URL)
	res, err := cliente.AutorizacionComprobante(context.Background(), clave)
	require.NoError(t, err)

	assert.Equal(t, infrasri.EstadoAutorizado, res.Estado)
	assert.Equal(t, "1506202410301790012345001", res.NumeroAutorizacion)
	require.NotNil(t, res.FechaAutorizacion)
	esperada, _ := time.Parse(time.RFC3339, "2024-06-15T10:30:00-05:00")
	assert.True(t, esperada.Equal(*res.FechaAutorizacion))
	// El comprobante autorizado llega embebido como CDATA.
	assert.Contains(t, res.ComprobanteXML, `<factura id="comprobante">`)

	assert.Contains(t, cuerpoPeticion, "autorizacionComprobante")
	assert.Contains(t, cuerpoPeticion, clave)
}

func TestAutorizacionComprobante_SinAutorizacionesEsEnProceso(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(respuestaSinAutorizaciones))
	}))
	defer srv.Close()

	cliente := clienteContra(srv.URL, srv.URL)
	res, err := cliente.AutorizacionComprobante(context.Background(),
		strings.Repeat("1", 49))
	require.NoError(t, err)
	assert.Equal(t, infrasri.EstadoEnProceso, res.Estado)
	assert.Empty(t, res.NumeroAutorizacion)
}

func TestAutorizacionComprobante_ContextoCancelado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError) // fuerza la espera de reintento
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cliente := clienteContra(srv.URL, srv.URL)
	_, err := cliente.AutorizacionComprobante(ctx, strings.Repeat("1", 49))
	assert.Error(t, err)
}
