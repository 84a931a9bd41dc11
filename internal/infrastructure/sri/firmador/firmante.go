package firmador

// FirmanteComprobantes une la bóveda y el servicio de firma: descifra el
// PKCS#12, firma y libera la llave en la misma llamada.
type FirmanteComprobantes struct {
	svc *ServicioFirma
}

// NewFirmanteComprobantes construye el firmante.
func NewFirmanteComprobantes() *FirmanteComprobantes {
	return &FirmanteComprobantes{svc: NewServicioFirma()}
}

// Firmar descifra el contenedor, firma el XML y borra la llave de memoria en
// todos los caminos de salida.
func (f *FirmanteComprobantes) Firmar(xmlBytes, blobP12 []byte, password string) ([]byte, error) {
	var firmado []byte
	err := ConMaterial(blobP12, password, func(m *MaterialFirma) error {
		var errSign error
		firmado, errSign = f.svc.Sign(xmlBytes, m.Cert)
		return errSign
	})
	if err != nil {
		return nil, err
	}
	return firmado, nil
}
