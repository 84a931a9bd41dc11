// Package sri: interfaz para la firma digital de comprobantes XML (XAdES-BES).

package sri

import "crypto/tls"

// Firmador firma un comprobante XML y devuelve el XML con el nodo ds:Signature
// añadido como último hijo del elemento raíz (firma enveloped, aditiva).
type Firmador interface {
	// Sign toma el XML del comprobante (sin firma) y el certificado con llave
	// privada, y retorna el XML firmado. Los nodos de negocio del documento
	// original no se modifican.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
