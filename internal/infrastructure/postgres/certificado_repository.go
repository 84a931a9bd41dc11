package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.CertificadoRepository = (*CertificadoRepo)(nil)

// CertificadoRepo almacena el contenedor PKCS#12 tal como llegó, cifrado con
// la contraseña del emisor. Nunca guarda llaves descifradas.
type CertificadoRepo struct {
	q Querier
}

// NewCertificadoRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCertificadoRepository(q Querier) *CertificadoRepo {
	return &CertificadoRepo{q: q}
}

func (r *CertificadoRepo) GetByEmisor(ctx context.Context, emisorID string) (*entity.Certificado, error) {
	const q = `
		SELECT id, emisor_id, blob_p12, subject, issuer, no_antes, no_despues,
		       created_at, updated_at
		FROM certificados
		WHERE emisor_id = $1
		ORDER BY no_despues DESC
		LIMIT 1`
	var c entity.Certificado
	err := r.q.QueryRow(ctx, q, emisorID).Scan(
		&c.ID, &c.EmisorID, &c.BlobP12, &c.Subject, &c.Issuer,
		&c.NoAntes, &c.NoDespues, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: certificado del emisor %s", domain.ErrNotFound, emisorID)
		}
		return nil, fmt.Errorf("get certificado: %w", err)
	}
	return &c, nil
}

func (r *CertificadoRepo) Save(ctx context.Context, c *entity.Certificado) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO certificados
			(id, emisor_id, blob_p12, subject, issuer, no_antes, no_despues, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (id)
		DO UPDATE SET blob_p12 = $3, subject = $4, issuer = $5,
		              no_antes = $6, no_despues = $7, updated_at = now()`
	_, err := r.q.Exec(ctx, q,
		c.ID, c.EmisorID, c.BlobP12, c.Subject, c.Issuer, c.NoAntes, c.NoDespues,
	)
	if err != nil {
		return fmt.Errorf("save certificado: %w", err)
	}
	return nil
}
