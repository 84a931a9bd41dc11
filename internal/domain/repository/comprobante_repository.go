package repository

import (
	"context"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// ComprobanteRepository persistencia del comprobante y su ciclo de vida.
type ComprobanteRepository interface {
	Create(ctx context.Context, c *entity.Comprobante) error
	GetByID(ctx context.Context, id string) (*entity.Comprobante, error)
	GetByClaveAcceso(ctx context.Context, clave string) (*entity.Comprobante, error)
	// Update persiste los campos mutables del pipeline (estado, XMLs, autorización, errores).
	Update(ctx context.Context, c *entity.Comprobante) error
	// ListPendientes devuelve comprobantes en ENVIADO/RECIBIDO/EN_PROCESO para reanudación.
	ListPendientes(ctx context.Context, limite int) ([]*entity.Comprobante, error)
}

// SecuencialRepository asignación atómica del secuencial por
// (emisor, estab, ptoEmi, codDoc). La implementación debe hacer el incremento
// en una sola operación atómica del almacenamiento, nunca leer-luego-escribir.
type SecuencialRepository interface {
	// Next devuelve el siguiente valor, estrictamente creciente para la clave
	// compuesta incluso con llamadores concurrentes en procesos distintos.
	Next(ctx context.Context, emisorID, estab, ptoEmi, codDoc string) (uint64, error)
}

// CertificadoRepository almacenamiento del contenedor PKCS#12 cifrado.
type CertificadoRepository interface {
	GetByEmisor(ctx context.Context, emisorID string) (*entity.Certificado, error)
	Save(ctx context.Context, c *entity.Certificado) error
}

// TransicionRepository bitácora append-only de cambios de estado.
type TransicionRepository interface {
	Append(ctx context.Context, t *entity.Transicion) error
	ListByComprobante(ctx context.Context, comprobanteID string) ([]*entity.Transicion, error)
}
