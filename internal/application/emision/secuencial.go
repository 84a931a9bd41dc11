package emision

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// AsignadorSecuencial asigna el secuencial y deriva la clave de acceso.
// El incremento lo hace el almacenamiento en una sola operación atómica, así
// que dos llamadores concurrentes nunca reciben el mismo valor aunque corran
// en procesos distintos.
type AsignadorSecuencial struct {
	repo repository.SecuencialRepository
}

// NewAsignadorSecuencial construye el asignador.
func NewAsignadorSecuencial(repo repository.SecuencialRepository) *AsignadorSecuencial {
	return &AsignadorSecuencial{repo: repo}
}

// Asignar toma el siguiente secuencial de la serie (emisor, estab, ptoEmi,
// codDoc) y deja el comprobante con secuencial y clave de acceso. Idempotente:
// si el comprobante ya tiene secuencial no consume otro.
func (a *AsignadorSecuencial) Asignar(ctx context.Context, c *entity.Comprobante) error {
	if c.Secuencial != "" && c.ClaveAcceso != "" {
		return nil
	}
	if c.Secuencial == "" {
		n, err := a.repo.Next(ctx, c.EmisorID, c.Estab, c.PtoEmi, c.CodDoc)
		if err != nil {
			return fmt.Errorf("asignar secuencial: %w", err)
		}
		c.Secuencial = pkgsri.FormatSecuencial(n)
	}
	clave, err := pkgsri.BuildClaveAcceso(pkgsri.ClaveAccesoParams{
		FechaEmision: c.FechaEmision,
		CodDoc:       c.CodDoc,
		RUC:          c.RUC,
		Ambiente:     c.Ambiente,
		Estab:        c.Estab,
		PtoEmi:       c.PtoEmi,
		Secuencial:   c.Secuencial,
		TipoEmision:  c.TipoEmision,
	})
	if err != nil {
		return fmt.Errorf("derivar clave de acceso: %w", err)
	}
	c.ClaveAcceso = clave
	return nil
}
