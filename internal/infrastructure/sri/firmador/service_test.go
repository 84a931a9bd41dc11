package firmador_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/firmador"
)

const xmlComprobante = `<?xml version="1.0" encoding="UTF-8"?>
<factura id="comprobante" version="1.1.0"><infoTributaria><ambiente>1</ambiente><razonSocial>PRUEBAS S.A.</razonSocial><ruc>1790012345001</ruc></infoTributaria><infoFactura><importeTotal>112.00</importeTotal></infoFactura></factura>`

func certificadoDePrueba(t *testing.T, noAntes, noDespues time.Time) tls.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	plantilla := &x509.Certificate{
		SerialNumber: big.NewInt(987654321),
		Subject:      pkix.Name{CommonName: "EMISOR PRUEBAS", Organization: []string{"PRUEBAS S.A."}},
		NotBefore:    noAntes,
		NotAfter:     noDespues,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, plantilla, plantilla, &priv.PublicKey, priv)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        leaf,
	}
}

func TestSign_InsertaFirmaComoUltimoHijo(t *testing.T) {
	cert := certificadoDePrueba(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	svc := firmador.NewServicioFirma()

	firmado, err := svc.Sign([]byte(xmlComprobante), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(firmado))
	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "factura", root.Tag)
	assert.Equal(t, "comprobante", root.SelectAttrValue("id", ""))

	hijos := root.ChildElements()
	require.NotEmpty(t, hijos)
	ultimo := hijos[len(hijos)-1]
	assert.Equal(t, "Signature", ultimo.Tag, "la firma debe ser el último hijo de la raíz")
	assert.NotNil(t, ultimo.FindElement("./SignedInfo"))
	assert.NotNil(t, ultimo.FindElement("./SignatureValue"))
	assert.NotNil(t, ultimo.FindElement("./KeyInfo/X509Data/X509Certificate"))
	assert.NotNil(t, ultimo.FindElement("./Object/QualifyingProperties/SignedProperties"))
}

func TestSign_NoAlteraContenidoDeNegocio(t *testing.T) {
	cert := certificadoDePrueba(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	svc := firmador.NewServicioFirma()

	firmado, err := svc.Sign([]byte(xmlComprobante), cert)
	require.NoError(t, err)

	// Quitar el nodo de firma debe devolver exactamente el documento original
	// (tras pasar ambos por la misma serialización).
	conFirma := etree.NewDocument()
	require.NoError(t, conFirma.ReadFromBytes(firmado))
	sig := conFirma.Root().FindElement("./Signature")
	require.NotNil(t, sig)
	conFirma.Root().RemoveChild(sig)

	original := etree.NewDocument()
	require.NoError(t, original.ReadFromString(xmlComprobante))

	strOriginal, err := original.WriteToString()
	require.NoError(t, err)
	strSinFirma, err := conFirma.WriteToString()
	require.NoError(t, err)
	assert.Equal(t, strOriginal, strSinFirma)
}

func TestSign_FirmaRSAVerificable(t *testing.T) {
	cert := certificadoDePrueba(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	svc := firmador.NewServicioFirma()

	firmado, err := svc.Sign([]byte(xmlComprobante), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(firmado))
	sig := doc.Root().FindElement("./Signature")
	require.NotNil(t, sig)

	signedInfo := sig.FindElement("./SignedInfo")
	require.NotNil(t, signedInfo)
	fragmento := etree.NewDocument()
	fragmento.SetRoot(signedInfo.Copy())
	siXML, err := fragmento.WriteToString()
	require.NoError(t, err)

	canonico, err := c14n.Canonicalize(xml.NewDecoder(bytes.NewReader([]byte(siXML))))
	require.NoError(t, err)
	hash := sha1.Sum(canonico)

	valorB64 := sig.FindElement("./SignatureValue").Text()
	valor, err := base64.StdEncoding.DecodeString(valorB64)
	require.NoError(t, err)

	pub := cert.PrivateKey.(*rsa.PrivateKey).Public().(*rsa.PublicKey)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, hash[:], valor),
		"SignatureValue debe verificar contra el SignedInfo canónico")
}

func TestSign_Errores(t *testing.T) {
	svc := firmador.NewServicioFirma()
	vigente := certificadoDePrueba(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	t.Run("xml vacío", func(t *testing.T) {
		_, err := svc.Sign(nil, vigente)
		assert.ErrorIs(t, err, domain.ErrSigningFailure)
	})

	t.Run("sin llave privada", func(t *testing.T) {
		sinLlave := vigente
		sinLlave.PrivateKey = nil
		_, err := svc.Sign([]byte(xmlComprobante), sinLlave)
		assert.ErrorIs(t, err, domain.ErrSigningFailure)
	})

	t.Run("certificado expirado", func(t *testing.T) {
		expirado := certificadoDePrueba(t, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
		_, err := svc.Sign([]byte(xmlComprobante), expirado)
		assert.ErrorIs(t, err, domain.ErrCorruptCertificate)
	})

	t.Run("xml mal formado", func(t *testing.T) {
		_, err := svc.Sign([]byte("<factura id=\"comprobante\""), vigente)
		assert.ErrorIs(t, err, domain.ErrSigningFailure)
	})
}
