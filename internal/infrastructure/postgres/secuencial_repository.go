package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
)

var _ repository.SecuencialRepository = (*SecuencialRepo)(nil)

// SecuencialRepo asigna secuenciales sobre PostgreSQL. El contador vive en la
// tabla secuenciales, una fila por (emisor, estab, pto_emi, cod_doc).
type SecuencialRepo struct {
	q Querier
}

// NewSecuencialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSecuencialRepository(q Querier) *SecuencialRepo {
	return &SecuencialRepo{q: q}
}

// Next incrementa y devuelve el contador en una sola sentencia. El upsert con
// RETURNING hace que dos llamadores concurrentes serialicen sobre la fila y
// nunca vean el mismo valor; no hay ventana leer-luego-escribir.
func (r *SecuencialRepo) Next(ctx context.Context, emisorID, estab, ptoEmi, codDoc string) (uint64, error) {
	const q = `
		INSERT INTO secuenciales (emisor_id, estab, pto_emi, cod_doc, ultimo_valor)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (emisor_id, estab, pto_emi, cod_doc)
		DO UPDATE SET ultimo_valor = secuenciales.ultimo_valor + 1,
		              updated_at   = now()
		RETURNING ultimo_valor`
	var valor uint64
	if err := r.q.QueryRow(ctx, q, emisorID, estab, ptoEmi, codDoc).Scan(&valor); err != nil {
		// Un incremento que no llega a completarse es un conflicto de
		// asignación: el llamador decide si reintenta contra el almacenamiento.
		return 0, fmt.Errorf("%w: next secuencial: %v", domain.ErrAllocationConflict, err)
	}
	return valor, nil
}
