// Constantes para la firma XAdES-BES de comprobantes electrónicos SRI.

package firmador

// Namespaces y algoritmos XMLDSig / XAdES. El perfil publicado por el SRI usa
// SHA-1 y RSA-SHA1; el validador de la autoridad rechaza otros algoritmos.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"

	// Type de la Reference que apunta a las SignedProperties (XAdES-BES).
	TipoSignedProperties = "http://uri.etsi.org/01903#SignedProperties"
)

// ID del elemento raíz al que apunta la Reference principal (atributo id del
// comprobante generado por el builder).
const ComprobanteElementID = "comprobante"
