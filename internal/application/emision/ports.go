package emision

import (
	"time"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
)

// ConstructorXML genera el XML del comprobante según su tipo (sin firma).
type ConstructorXML interface {
	Build(c *entity.Comprobante) ([]byte, error)
}

// Firmante descifra el contenedor PKCS#12 y firma el XML en una sola
// operación acotada: la llave privada no sobrevive a la llamada.
type Firmante interface {
	Firmar(xmlBytes, blobP12 []byte, password string) ([]byte, error)
}

// Config parámetros de operación del orquestador.
type Config struct {
	// PasswordCertificado contraseña del contenedor PKCS#12 del emisor.
	PasswordCertificado string
	// RondasSondeo consultas de autorización antes de dejar el comprobante EN_PROCESO.
	RondasSondeo int
	// IntervaloSondeo espera entre consultas de autorización.
	IntervaloSondeo time.Duration
}
