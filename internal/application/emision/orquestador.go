package emision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// Orquestador conduce un comprobante por el ciclo completo de emisión:
//
//	BORRADOR → SECUENCIADO → CONSTRUIDO → FIRMADO → ENVIADO → RECIBIDO → AUTORIZADO
//
// Cada transición se persiste antes de seguir, con su registro en la bitácora.
// Procesar es re-entrante: una nueva invocación lee el estado guardado y
// retoma exactamente donde quedó; nunca re-ejecuta una etapa ya reflejada. En
// particular un comprobante ENVIADO no se reenvía a recepción (reenviar
// duplicaría la clave ante la autoridad), se consulta directamente su
// autorización.
type Orquestador struct {
	comprobantes repository.ComprobanteRepository
	certificados repository.CertificadoRepository
	transiciones repository.TransicionRepository
	asignador    *AsignadorSecuencial
	builder      ConstructorXML
	firmante     Firmante
	gateway      infrasri.Gateway
	cfg          Config
	log          *logger.Logger
}

// NewOrquestador construye el orquestador con todas sus dependencias.
func NewOrquestador(
	comprobantes repository.ComprobanteRepository,
	certificados repository.CertificadoRepository,
	transiciones repository.TransicionRepository,
	asignador *AsignadorSecuencial,
	builder ConstructorXML,
	firmante Firmante,
	gateway infrasri.Gateway,
	cfg Config,
	log *logger.Logger,
) *Orquestador {
	return &Orquestador{
		comprobantes: comprobantes,
		certificados: certificados,
		transiciones: transiciones,
		asignador:    asignador,
		builder:      builder,
		firmante:     firmante,
		gateway:      gateway,
		cfg:          cfg,
		log:          log,
	}
}

// Procesar avanza el comprobante hasta un estado terminal o hasta agotar las
// rondas de sondeo (EN_PROCESO, reanudable). Sobre un comprobante terminal es
// un no-op.
func (o *Orquestador) Procesar(ctx context.Context, comprobanteID string) error {
	c, err := o.comprobantes.GetByID(ctx, comprobanteID)
	if err != nil {
		return err
	}

	if entity.EsTerminal(c.Estado) {
		o.log.Debug().Str("comprobante", c.ID).Str("estado", c.Estado).
			Msg("comprobante en estado terminal, nada que hacer")
		return nil
	}
	if entity.Reanudable(c.Estado) {
		o.log.Info().Str("comprobante", c.ID).Str("estado", c.Estado).
			Msg("reanudando en sondeo de autorización")
		return o.sondearAutorizacion(ctx, c)
	}

	if c.Estado == entity.EstadoBorrador {
		if err := o.asignador.Asignar(ctx, c); err != nil {
			return o.fallar(ctx, c, err)
		}
		if err := o.transitar(ctx, c, entity.EstadoSecuenciado, "secuencial "+c.Secuencial); err != nil {
			return err
		}
	}

	if c.Estado == entity.EstadoSecuenciado {
		xmlBytes, err := o.builder.Build(c)
		if err != nil {
			return o.fallar(ctx, c, err)
		}
		c.XMLGenerado = string(xmlBytes)
		if err := o.transitar(ctx, c, entity.EstadoConstruido, "XML generado"); err != nil {
			return err
		}
	}

	if c.Estado == entity.EstadoConstruido {
		cert, err := o.certificados.GetByEmisor(ctx, c.EmisorID)
		if err != nil {
			return o.fallar(ctx, c, err)
		}
		if !cert.Vigente(time.Now()) {
			return o.fallar(ctx, c, fmt.Errorf("%w: certificado fuera de vigencia (hasta %s)",
				domain.ErrCorruptCertificate, cert.NoDespues.Format("2006-01-02")))
		}
		firmado, err := o.firmante.Firmar([]byte(c.XMLGenerado), cert.BlobP12, o.cfg.PasswordCertificado)
		if err != nil {
			return o.fallar(ctx, c, err)
		}
		c.XMLFirmado = string(firmado)
		if err := o.transitar(ctx, c, entity.EstadoFirmado, "firma XAdES-BES aplicada"); err != nil {
			return err
		}
	}

	if c.Estado == entity.EstadoFirmado {
		// ENVIADO se persiste antes de la llamada: si el proceso muere con la
		// entrega en vuelo, la reanudación consulta autorización en lugar de
		// reenviar.
		if err := o.transitar(ctx, c, entity.EstadoEnviado, "entrega a recepción"); err != nil {
			return err
		}
		res, err := o.gateway.ValidarComprobante(ctx, []byte(c.XMLFirmado))
		if err != nil {
			return o.fallar(ctx, c, err)
		}
		switch res.Estado {
		case infrasri.EstadoRecibida:
			if err := o.transitar(ctx, c, entity.EstadoRecibido, "recepción OK"); err != nil {
				return err
			}
		case infrasri.EstadoDevuelta:
			c.MensajesSRI = formatearMensajes(res.Mensajes)
			detalle := "rechazado en recepción"
			if claveYaRegistrada(res.Mensajes) {
				detalle = "clave o secuencial ya registrados ante la autoridad"
			}
			if err := o.transitar(ctx, c, entity.EstadoDevuelto, detalle); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", domain.ErrAuthorityRejected, c.MensajesSRI)
		default:
			return o.fallar(ctx, c, fmt.Errorf("%w: estado de recepción desconocido %q",
				domain.ErrGatewayUnavailable, res.Estado))
		}
	}

	return o.sondearAutorizacion(ctx, c)
}

// sondearAutorizacion consulta la autorización hasta RondasSondeo veces. Si la
// autoridad sigue EN PROCESO al agotarlas, el comprobante queda EN_PROCESO y
// una invocación posterior retoma aquí.
func (o *Orquestador) sondearAutorizacion(ctx context.Context, c *entity.Comprobante) error {
	rondas := o.cfg.RondasSondeo
	if rondas <= 0 {
		rondas = 1
	}
	for i := 0; i < rondas; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.cfg.IntervaloSondeo):
			}
		}

		res, err := o.gateway.AutorizacionComprobante(ctx, c.ClaveAcceso)
		if err != nil {
			return o.fallar(ctx, c, err)
		}

		switch res.Estado {
		case infrasri.EstadoAutorizado:
			c.NumeroAutorizacion = res.NumeroAutorizacion
			c.FechaAutorizacion = res.FechaAutorizacion
			c.XMLAutorizado = res.ComprobanteXML
			c.MensajesSRI = formatearMensajes(res.Mensajes)
			c.UltimoError = ""
			return o.transitar(ctx, c, entity.EstadoAutorizado, "autorización "+res.NumeroAutorizacion)
		case infrasri.EstadoNoAutorizado:
			c.MensajesSRI = formatearMensajes(res.Mensajes)
			if err := o.transitar(ctx, c, entity.EstadoNoAutorizado, "negado por la autoridad"); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", domain.ErrAuthorityRejected, c.MensajesSRI)
		default:
			// EN PROCESO: seguir sondeando
		}
	}

	if c.Estado != entity.EstadoEnProceso {
		return o.transitar(ctx, c, entity.EstadoEnProceso, "sondeo agotado, pendiente de autoridad")
	}
	// Ya estaba EN_PROCESO: refrescar updated_at para que el worker lo
	// reordene al final de la cola.
	return o.comprobantes.Update(ctx, c)
}

// transitar persiste el nuevo estado y deja el cambio en la bitácora.
func (o *Orquestador) transitar(ctx context.Context, c *entity.Comprobante, hacia, detalle string) error {
	desde := c.Estado
	c.Estado = hacia
	if err := o.comprobantes.Update(ctx, c); err != nil {
		c.Estado = desde
		return fmt.Errorf("persistir transición %s a %s: %w", desde, hacia, err)
	}
	if err := o.transiciones.Append(ctx, &entity.Transicion{
		ComprobanteID: c.ID,
		Desde:         desde,
		Hacia:         hacia,
		Detalle:       detalle,
	}); err != nil {
		return fmt.Errorf("registrar transición %s a %s: %w", desde, hacia, err)
	}
	o.log.Info().
		Str("comprobante", c.ID).
		Str("clave_acceso", c.ClaveAcceso).
		Str("desde", desde).
		Str("hacia", hacia).
		Msg(detalle)
	return nil
}

// fallar guarda el último error sin mover el estado y lo propaga. El estado
// persistido decide dónde retoma la siguiente invocación.
func (o *Orquestador) fallar(ctx context.Context, c *entity.Comprobante, causa error) error {
	c.UltimoError = causa.Error()
	if err := o.comprobantes.Update(ctx, c); err != nil {
		o.log.Error().Err(err).Str("comprobante", c.ID).
			Msg("no se pudo persistir el último error")
	}
	o.log.Error().Err(causa).
		Str("comprobante", c.ID).
		Str("estado", c.Estado).
		Msg("etapa de emisión fallida")
	return causa
}

func formatearMensajes(mensajes []infrasri.MensajeSRI) string {
	if len(mensajes) == 0 {
		return ""
	}
	partes := make([]string, 0, len(mensajes))
	for _, m := range mensajes {
		s := m.Identificador + ": " + m.Mensaje
		if m.InformacionAdicional != "" {
			s += " (" + m.InformacionAdicional + ")"
		}
		partes = append(partes, s)
	}
	return strings.Join(partes, "; ")
}

// claveYaRegistrada detecta los códigos 43 y 45 de recepción (clave o
// secuencial ya registrados).
func claveYaRegistrada(mensajes []infrasri.MensajeSRI) bool {
	for _, m := range mensajes {
		if m.Identificador == pkgsri.MensajeClaveRegistrada ||
			m.Identificador == pkgsri.MensajeSecuencialRegistrado {
			return true
		}
	}
	return false
}
