package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.TransicionRepository = (*TransicionRepo)(nil)

// TransicionRepo bitácora append-only de cambios de estado. Solo inserta y
// lista; las transiciones nunca se corrigen ni se borran.
type TransicionRepo struct {
	q Querier
}

// NewTransicionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransicionRepository(q Querier) *TransicionRepo {
	return &TransicionRepo{q: q}
}

func (r *TransicionRepo) Append(ctx context.Context, t *entity.Transicion) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO transiciones (id, comprobante_id, desde, hacia, detalle, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`
	_, err := r.q.Exec(ctx, q, t.ID, t.ComprobanteID, t.Desde, t.Hacia, t.Detalle)
	if err != nil {
		return fmt.Errorf("insert transicion: %w", err)
	}
	return nil
}

func (r *TransicionRepo) ListByComprobante(ctx context.Context, comprobanteID string) ([]*entity.Transicion, error) {
	const q = `
		SELECT id, comprobante_id, desde, hacia, detalle, created_at
		FROM transiciones
		WHERE comprobante_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, q, comprobanteID)
	if err != nil {
		return nil, fmt.Errorf("list transiciones: %w", err)
	}
	defer rows.Close()

	var list []*entity.Transicion
	for rows.Next() {
		var t entity.Transicion
		if err := rows.Scan(&t.ID, &t.ComprobanteID, &t.Desde, &t.Hacia, &t.Detalle, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transicion: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
