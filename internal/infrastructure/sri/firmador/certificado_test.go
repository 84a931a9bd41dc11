package firmador_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/firmador"
)

func TestUnlock_ContenedorInvalido(t *testing.T) {
	t.Run("vacío", func(t *testing.T) {
		_, err := firmador.Unlock(nil, "clave")
		assert.ErrorIs(t, err, domain.ErrCorruptCertificate)
	})

	t.Run("basura", func(t *testing.T) {
		_, err := firmador.Unlock([]byte("esto no es un PKCS#12"), "clave")
		assert.ErrorIs(t, err, domain.ErrCorruptCertificate)
		assert.NotErrorIs(t, err, domain.ErrInvalidPassword,
			"un contenedor ilegible no debe reportarse como contraseña incorrecta")
	})
}

func TestConMaterial_ContenedorInvalidoNoEjecutaFn(t *testing.T) {
	ejecutado := false
	err := firmador.ConMaterial([]byte{0x00, 0x01}, "clave", func(m *firmador.MaterialFirma) error {
		ejecutado = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrCorruptCertificate)
	assert.False(t, ejecutado)
}

func TestLiberar_BorraLaLlave(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	m := &firmador.MaterialFirma{
		Cert: tls.Certificate{PrivateKey: priv},
	}
	m.Liberar()

	assert.Nil(t, m.Cert.PrivateKey)
	assert.Zero(t, priv.D.Sign(), "el exponente privado debe quedar en cero")
	for _, p := range priv.Primes {
		assert.Zero(t, p.Sign())
	}

	// Idempotente.
	m.Liberar()
}

func TestVerificarVigencia(t *testing.T) {
	ahora := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cert := certificadoDePrueba(t, ahora.Add(-time.Hour), ahora.Add(time.Hour))

	assert.NoError(t, firmador.VerificarVigencia(cert.Leaf, ahora))

	err := firmador.VerificarVigencia(cert.Leaf, ahora.Add(-2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrCorruptCertificate)

	err = firmador.VerificarVigencia(cert.Leaf, ahora.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrCorruptCertificate)
}
