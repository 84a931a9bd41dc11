// Bóveda de certificados: descifra el contenedor PKCS#12 y acota la vida de la
// llave privada a una sola operación de firma.

package firmador

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturacion-sri/internal/domain"
)

// MaterialFirma llave privada y certificado descifrados, válidos solo durante
// la llamada de firma que los solicitó. Nunca se persisten.
type MaterialFirma struct {
	Cert      tls.Certificate
	Subject   string
	Issuer    string
	NoAntes   time.Time
	NoDespues time.Time

	liberado bool
}

// Liberar borra la llave privada de memoria. Idempotente; tras liberar, el
// material no puede volver a usarse.
func (m *MaterialFirma) Liberar() {
	if m == nil || m.liberado {
		return
	}
	if priv, ok := m.Cert.PrivateKey.(*rsa.PrivateKey); ok && priv != nil {
		priv.D.SetInt64(0)
		for _, p := range priv.Primes {
			p.SetInt64(0)
		}
		priv.Precomputed = rsa.PrecomputedValues{}
	}
	m.Cert.PrivateKey = nil
	m.liberado = true
}

// Unlock descifra el contenedor PKCS#12 con la contraseña dada y extrae llave,
// certificado hoja y metadatos del titular. La contraseña incorrecta y el
// contenedor dañado se distinguen porque solo la primera es corregible por el
// emisor.
func Unlock(blobP12 []byte, password string) (*MaterialFirma, error) {
	if len(blobP12) == 0 {
		return nil, fmt.Errorf("%w: contenedor vacío", domain.ErrCorruptCertificate)
	}
	priv, cert, err := pkcs12.Decode(blobP12, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPassword, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptCertificate, err)
	}
	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: la llave privada debe ser RSA", domain.ErrCorruptCertificate)
	}

	return &MaterialFirma{
		Cert: tls.Certificate{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  rsaKey,
			Leaf:        cert,
		},
		Subject:   cert.Subject.String(),
		Issuer:    cert.Issuer.String(),
		NoAntes:   cert.NotBefore,
		NoDespues: cert.NotAfter,
	}, nil
}

// ConMaterial adquisición con alcance acotado: descifra, ejecuta fn y libera la
// llave en todos los caminos de salida, incluida la falla de firma.
func ConMaterial(blobP12 []byte, password string, fn func(*MaterialFirma) error) error {
	material, err := Unlock(blobP12, password)
	if err != nil {
		return err
	}
	defer material.Liberar()
	return fn(material)
}

// InfoCertificado metadatos del titular para auditoría, sin firmar nada.
type InfoCertificado struct {
	Subject   string
	Issuer    string
	NoAntes   time.Time
	NoDespues time.Time
}

// Inspeccionar extrae los metadatos del certificado sin retener la llave.
func Inspeccionar(blobP12 []byte, password string) (*InfoCertificado, error) {
	var info *InfoCertificado
	err := ConMaterial(blobP12, password, func(m *MaterialFirma) error {
		info = &InfoCertificado{
			Subject:   m.Subject,
			Issuer:    m.Issuer,
			NoAntes:   m.NoAntes,
			NoDespues: m.NoDespues,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// VerificarVigencia confirma que el certificado hoja está dentro de su ventana
// de validez al momento de firmar.
func VerificarVigencia(cert *x509.Certificate, ahora time.Time) error {
	if ahora.Before(cert.NotBefore) {
		return fmt.Errorf("%w: certificado aún no vigente (desde %s)",
			domain.ErrCorruptCertificate, cert.NotBefore.Format(time.RFC3339))
	}
	if ahora.After(cert.NotAfter) {
		return fmt.Errorf("%w: certificado expirado (hasta %s)",
			domain.ErrCorruptCertificate, cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}
