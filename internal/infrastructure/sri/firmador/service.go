// Servicio de firma digital XAdES-BES para comprobantes electrónicos SRI.
// Añade <ds:Signature> como último hijo del elemento raíz (firma enveloped,
// estrictamente aditiva: los nodos de negocio no se tocan).

package firmador

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturacion-sri/internal/domain"
	pkgsri "github.com/jhoicas/facturacion-sri/pkg/sri"
)

// ServicioFirma implementa pkg/sri.Firmador con el perfil XAdES-BES del SRI:
// tres References (comprobante, KeyInfo y SignedProperties), digest SHA-1 y
// firma RSA-SHA1.
type ServicioFirma struct{}

// NewServicioFirma crea el servicio.
func NewServicioFirma() *ServicioFirma {
	return &ServicioFirma{}
}

var _ pkgsri.Firmador = (*ServicioFirma)(nil)

// ids identificadores de los nodos de una firma; aleatorios por firma, al
// estilo de las herramientas de escritorio del SRI.
type ids struct {
	Signature        string
	SignedInfo       string
	SignedProperties string
	KeyInfo          string
	Reference        string
	SignatureValue   string
	Object           string
}

func nuevosIDs() ids {
	n := func() string {
		v, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
		if err != nil {
			return "0"
		}
		return v.String()
	}
	base := n()
	return ids{
		Signature:        "Signature" + base,
		SignedInfo:       "Signature-SignedInfo" + n(),
		SignedProperties: "Signature" + base + "-SignedProperties" + n(),
		KeyInfo:          "Certificate" + n(),
		Reference:        "Reference-ID-" + n(),
		SignatureValue:   "SignatureValue" + n(),
		Object:           "Signature" + base + "-Object" + n(),
	}
}

// Sign firma el XML del comprobante e inyecta ds:Signature como último hijo
// del elemento raíz.
func (s *ServicioFirma) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("%w: XML vacío", domain.ErrSigningFailure)
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok || priv == nil {
		return nil, fmt.Errorf("%w: el certificado debe incluir llave privada RSA", domain.ErrSigningFailure)
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("%w: certificado sin cadena", domain.ErrSigningFailure)
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrSigningFailure, err)
	}
	if err := VerificarVigencia(x509Cert, time.Now()); err != nil {
		return nil, err
	}

	id := nuevosIDs()

	// 1) Digest del documento completo (C14N). Reference URI="#comprobante".
	docDigestB64, err := digestC14N(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar comprobante: %v", domain.ErrSigningFailure, err)
	}

	// 2) KeyInfo (certificado inline + llave pública) y su digest.
	certB64 := base64.StdEncoding.EncodeToString(x509Cert.Raw)
	keyInfoXML := s.buildKeyInfo(id, certB64, priv)
	keyInfoDigestB64, err := digestC14N([]byte(keyInfoXML))
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar KeyInfo: %v", domain.ErrSigningFailure, err)
	}

	// 3) SignedProperties (SigningTime, SigningCertificate, DataObjectFormat) y su digest.
	signedPropsXML := s.buildSignedProperties(id, x509Cert)
	signedPropsDigestB64, err := digestC14N([]byte(signedPropsXML))
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar SignedProperties: %v", domain.ErrSigningFailure, err)
	}

	// 4) SignedInfo con las tres References; firmar su forma canónica.
	signedInfoXML := s.buildSignedInfo(id, signedPropsDigestB64, keyInfoDigestB64, docDigestB64)
	canonicalSignedInfo, err := canonicalizar([]byte(signedInfoXML))
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar SignedInfo: %v", domain.ErrSigningFailure, err)
	}
	hash := sha1.Sum(canonicalSignedInfo)
	firma, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA1, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: firmar SignedInfo: %v", domain.ErrSigningFailure, err)
	}
	firmaB64 := base64.StdEncoding.EncodeToString(firma)

	// 5) Nodo ds:Signature completo e inyección como último hijo de la raíz.
	signatureXML := s.buildSignature(id, signedInfoXML, firmaB64, keyInfoXML, signedPropsXML)
	return inyectarFirma(xmlBytes, signatureXML)
}

func canonicalizar(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func digestC14N(data []byte) (string, error) {
	canonical, err := canonicalizar(data)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func (s *ServicioFirma) buildSignedInfo(id ids, signedPropsDigest, keyInfoDigest, docDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `" Id="` + id.SignedInfo + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)
	// Reference 1: SignedProperties (XAdES-BES)
	sb.WriteString(`<ds:Reference Type="` + TipoSignedProperties + `" URI="#` + id.SignedProperties + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + signedPropsDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	// Reference 2: KeyInfo
	sb.WriteString(`<ds:Reference URI="#` + id.KeyInfo + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + keyInfoDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	// Reference 3: el comprobante (enveloped)
	sb.WriteString(`<ds:Reference Id="` + id.Reference + `" URI="#` + ComprobanteElementID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func (s *ServicioFirma) buildKeyInfo(id ids, certB64 string, priv *rsa.PrivateKey) string {
	modulusB64 := base64.StdEncoding.EncodeToString(priv.PublicKey.N.Bytes())
	exponentB64 := base64.StdEncoding.EncodeToString(big.NewInt(int64(priv.PublicKey.E)).Bytes())
	var sb strings.Builder
	sb.WriteString(`<ds:KeyInfo xmlns:ds="` + NamespaceDS + `" Id="` + id.KeyInfo + `">`)
	sb.WriteString(`<ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data>`)
	sb.WriteString(`<ds:KeyValue><ds:RSAKeyValue>`)
	sb.WriteString(`<ds:Modulus>` + modulusB64 + `</ds:Modulus>`)
	sb.WriteString(`<ds:Exponent>` + exponentB64 + `</ds:Exponent>`)
	sb.WriteString(`</ds:RSAKeyValue></ds:KeyValue>`)
	sb.WriteString(`</ds:KeyInfo>`)
	return sb.String()
}

func (s *ServicioFirma) buildSignedProperties(id ids, cert *x509.Certificate) string {
	signingTime := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	certDigest := sha1.Sum(cert.Raw)
	certDigestB64 := base64.StdEncoding.EncodeToString(certDigest[:])

	var sb strings.Builder
	sb.WriteString(`<xades:SignedProperties xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + id.SignedProperties + `">`)
	sb.WriteString(`<xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SigningTime>` + signingTime + `</xades:SigningTime>`)
	sb.WriteString(`<xades:SigningCertificate><xades:Cert>`)
	sb.WriteString(`<xades:CertDigest><ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + certDigestB64 + `</ds:DigestValue></xades:CertDigest>`)
	sb.WriteString(`<xades:IssuerSerial>`)
	sb.WriteString(`<ds:X509IssuerName>` + escapeXML(cert.Issuer.String()) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + cert.SerialNumber.String() + `</ds:X509SerialNumber>`)
	sb.WriteString(`</xades:IssuerSerial></xades:Cert></xades:SigningCertificate>`)
	sb.WriteString(`</xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SignedDataObjectProperties>`)
	sb.WriteString(`<xades:DataObjectFormat ObjectReference="#` + id.Reference + `">`)
	sb.WriteString(`<xades:Description>contenido comprobante</xades:Description>`)
	sb.WriteString(`<xades:MimeType>text/xml</xades:MimeType>`)
	sb.WriteString(`</xades:DataObjectFormat>`)
	sb.WriteString(`</xades:SignedDataObjectProperties>`)
	sb.WriteString(`</xades:SignedProperties>`)
	return sb.String()
}

func (s *ServicioFirma) buildSignature(id ids, signedInfoXML, firmaB64, keyInfoXML, signedPropsXML string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + id.Signature + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue Id="` + id.SignatureValue + `">` + firmaB64 + `</ds:SignatureValue>`)
	sb.WriteString(keyInfoXML)
	sb.WriteString(`<ds:Object Id="` + id.Object + `">`)
	sb.WriteString(`<xades:QualifyingProperties Target="#` + id.Signature + `">`)
	sb.WriteString(signedPropsXML)
	sb.WriteString(`</xades:QualifyingProperties>`)
	sb.WriteString(`</ds:Object>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

// inyectarFirma parsea el comprobante, añade ds:Signature como último hijo del
// elemento raíz y serializa. El contenido de negocio no se altera.
func inyectarFirma(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("%w: parsear comprobante: %v", domain.ErrSigningFailure, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: comprobante sin raíz", domain.ErrSigningFailure)
	}

	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("%w: parsear nodo Signature: %v", domain.ErrSigningFailure, err)
	}
	sigRoot := sigDoc.Root()
	if sigRoot == nil {
		return nil, fmt.Errorf("%w: firma vacía", domain.ErrSigningFailure)
	}
	root.AddChild(sigRoot)

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("%w: serializar comprobante firmado: %v", domain.ErrSigningFailure, err)
	}
	return out.Bytes(), nil
}
