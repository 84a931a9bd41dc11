package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.ComprobanteRepository = (*ComprobanteRepo)(nil)

// ComprobanteRepo implementación de ComprobanteRepository sobre PostgreSQL
// (usable con pool o tx).
type ComprobanteRepo struct {
	q Querier
}

// NewComprobanteRepository construye el adaptador. Pasar pool o tx (Querier).
func NewComprobanteRepository(q Querier) *ComprobanteRepo {
	return &ComprobanteRepo{q: q}
}

// documentoPayload contenido de negocio anidado del comprobante, persistido en
// una sola columna JSONB. Las columnas planas quedan para lo que se consulta:
// identidad, clave de acceso, estado y totales.
type documentoPayload struct {
	Comprador         entity.Comprador
	Detalles          []entity.Detalle
	Motivos           []entity.Motivo
	Retenciones       []entity.Retencion
	Traslado          *entity.Traslado
	DocSustento       *entity.DocSustento
	TotalImpuestos    []entity.TotalImpuesto
	Pagos             []entity.Pago
	CamposAdicionales []entity.CampoAdicional
}

func payloadDe(c *entity.Comprobante) ([]byte, error) {
	p := documentoPayload{
		Comprador:         c.Comprador,
		Detalles:          c.Detalles,
		Motivos:           c.Motivos,
		Retenciones:       c.Retenciones,
		Traslado:          c.Traslado,
		DocSustento:       c.DocSustento,
		TotalImpuestos:    c.TotalImpuestos,
		Pagos:             c.Pagos,
		CamposAdicionales: c.CamposAdicionales,
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("serializar documento: %w", err)
	}
	return b, nil
}

func aplicarPayload(c *entity.Comprobante, raw []byte) error {
	var p documentoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("deserializar documento: %w", err)
	}
	c.Comprador = p.Comprador
	c.Detalles = p.Detalles
	c.Motivos = p.Motivos
	c.Retenciones = p.Retenciones
	c.Traslado = p.Traslado
	c.DocSustento = p.DocSustento
	c.TotalImpuestos = p.TotalImpuestos
	c.Pagos = p.Pagos
	c.CamposAdicionales = p.CamposAdicionales
	return nil
}

// Create persiste el comprobante recién registrado (normalmente en BORRADOR).
func (r *ComprobanteRepo) Create(ctx context.Context, c *entity.Comprobante) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	doc, err := payloadDe(c)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO comprobantes
			(id, emisor_id, ruc, razon_social, nombre_comercial, dir_matriz,
			 dir_establecimiento, obligado_contabilidad,
			 cod_doc, estab, pto_emi, secuencial, clave_acceso, ambiente,
			 tipo_emision, fecha_emision, documento,
			 total_sin_impuestos, total_descuento, propina, importe_total, moneda,
			 estado, xml_generado, xml_firmado, xml_autorizado,
			 numero_autorizacion, fecha_autorizacion, ultimo_error, mensajes_sri,
			 created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			 $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
			 $29, $30, now(), now())`
	_, err = r.q.Exec(ctx, q,
		c.ID, c.EmisorID, c.RUC, c.RazonSocial, c.NombreComercial, c.DirMatriz,
		c.DirEstablecimiento, c.ObligadoContabilidad,
		c.CodDoc, c.Estab, c.PtoEmi, nullIfEmpty(c.Secuencial), nullIfEmpty(c.ClaveAcceso),
		c.Ambiente, c.TipoEmision, c.FechaEmision, doc,
		c.TotalSinImpuestos, c.TotalDescuento, c.Propina, c.ImporteTotal, c.Moneda,
		c.Estado, nullIfEmpty(c.XMLGenerado), nullIfEmpty(c.XMLFirmado), nullIfEmpty(c.XMLAutorizado),
		nullIfEmpty(c.NumeroAutorizacion), c.FechaAutorizacion, nullIfEmpty(c.UltimoError), nullIfEmpty(c.MensajesSRI),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: comprobante duplicado: %v", domain.ErrAllocationConflict, err)
		}
		return fmt.Errorf("insert comprobante: %w", err)
	}
	return nil
}

const columnasComprobante = `
	id, emisor_id, ruc, razon_social, nombre_comercial, dir_matriz,
	dir_establecimiento, obligado_contabilidad,
	cod_doc, estab, pto_emi, secuencial, clave_acceso, ambiente,
	tipo_emision, fecha_emision, documento,
	total_sin_impuestos, total_descuento, propina, importe_total, moneda,
	estado, xml_generado, xml_firmado, xml_autorizado,
	numero_autorizacion, fecha_autorizacion, ultimo_error, mensajes_sri,
	created_at, updated_at`

func (r *ComprobanteRepo) GetByID(ctx context.Context, id string) (*entity.Comprobante, error) {
	q := `SELECT ` + columnasComprobante + ` FROM comprobantes WHERE id = $1`
	c, err := scanComprobante(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get comprobante: %w", err)
	}
	return c, nil
}

func (r *ComprobanteRepo) GetByClaveAcceso(ctx context.Context, clave string) (*entity.Comprobante, error) {
	q := `SELECT ` + columnasComprobante + ` FROM comprobantes WHERE clave_acceso = $1`
	c, err := scanComprobante(r.q.QueryRow(ctx, q, clave))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: clave de acceso %s", domain.ErrNotFound, clave)
		}
		return nil, fmt.Errorf("get comprobante por clave: %w", err)
	}
	return c, nil
}

// Update persiste los campos mutables del pipeline. El contenido de negocio no
// cambia después de SECUENCIADO, pero se reescribe igual: el payload es una
// sola columna.
func (r *ComprobanteRepo) Update(ctx context.Context, c *entity.Comprobante) error {
	doc, err := payloadDe(c)
	if err != nil {
		return err
	}
	const q = `
		UPDATE comprobantes
		SET secuencial          = COALESCE($2, secuencial),
		    clave_acceso        = COALESCE($3, clave_acceso),
		    documento           = $4,
		    estado              = $5,
		    xml_generado        = COALESCE($6, xml_generado),
		    xml_firmado         = COALESCE($7, xml_firmado),
		    xml_autorizado      = COALESCE($8, xml_autorizado),
		    numero_autorizacion = COALESCE($9, numero_autorizacion),
		    fecha_autorizacion  = COALESCE($10, fecha_autorizacion),
		    ultimo_error        = $11,
		    mensajes_sri        = $12,
		    updated_at          = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		c.ID, nullIfEmpty(c.Secuencial), nullIfEmpty(c.ClaveAcceso), doc, c.Estado,
		nullIfEmpty(c.XMLGenerado), nullIfEmpty(c.XMLFirmado), nullIfEmpty(c.XMLAutorizado),
		nullIfEmpty(c.NumeroAutorizacion), c.FechaAutorizacion,
		nullIfEmpty(c.UltimoError), nullIfEmpty(c.MensajesSRI),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: clave o secuencial ya registrados: %v", domain.ErrAllocationConflict, err)
		}
		return fmt.Errorf("update comprobante: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, c.ID)
	}
	return nil
}

// ListPendientes devuelve comprobantes entregados al SRI sin desenlace
// terminal, en orden de llegada, para que el worker los reanude.
func (r *ComprobanteRepo) ListPendientes(ctx context.Context, limite int) ([]*entity.Comprobante, error) {
	q := `SELECT ` + columnasComprobante + `
		FROM comprobantes
		WHERE estado IN ($1, $2, $3)
		ORDER BY updated_at ASC
		LIMIT $4`
	rows, err := r.q.Query(ctx, q,
		entity.EstadoEnviado, entity.EstadoRecibido, entity.EstadoEnProceso, limite)
	if err != nil {
		return nil, fmt.Errorf("list pendientes: %w", err)
	}
	defer rows.Close()

	var list []*entity.Comprobante
	for rows.Next() {
		c, err := scanComprobante(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comprobante: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar scanComprobante.
type pgxScanner interface {
	Scan(dest ...any) error
}

func scanComprobante(row pgxScanner) (*entity.Comprobante, error) {
	var (
		c   entity.Comprobante
		doc []byte

		secuencial, clave, xmlGen, xmlFir, xmlAut *string
		numAut, ultErr, mensajes                  *string
	)
	err := row.Scan(
		&c.ID, &c.EmisorID, &c.RUC, &c.RazonSocial, &c.NombreComercial, &c.DirMatriz,
		&c.DirEstablecimiento, &c.ObligadoContabilidad,
		&c.CodDoc, &c.Estab, &c.PtoEmi, &secuencial, &clave, &c.Ambiente,
		&c.TipoEmision, &c.FechaEmision, &doc,
		&c.TotalSinImpuestos, &c.TotalDescuento, &c.Propina, &c.ImporteTotal, &c.Moneda,
		&c.Estado, &xmlGen, &xmlFir, &xmlAut,
		&numAut, &c.FechaAutorizacion, &ultErr, &mensajes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := aplicarPayload(&c, doc); err != nil {
		return nil, err
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	c.Secuencial = deref(secuencial)
	c.ClaveAcceso = deref(clave)
	c.XMLGenerado = deref(xmlGen)
	c.XMLFirmado = deref(xmlFir)
	c.XMLAutorizado = deref(xmlAut)
	c.NumeroAutorizacion = deref(numAut)
	c.UltimoError = deref(ultErr)
	c.MensajesSRI = deref(mensajes)
	return &c, nil
}
