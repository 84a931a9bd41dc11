package entity

import "time"

// Certificado metadatos del certificado de firma de un emisor. El blob PKCS#12
// se guarda cifrado tal como llegó; la llave privada descifrada solo existe en
// memoria durante una llamada de firma.
type Certificado struct {
	ID        string
	EmisorID  string
	BlobP12   []byte // contenedor PKCS#12 cifrado con contraseña
	Subject   string // DN del titular, extraído al registrar
	Issuer    string // DN de la autoridad certificadora
	NoAntes   time.Time
	NoDespues time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vigente indica si el certificado está dentro de su ventana de validez.
func (c *Certificado) Vigente(ahora time.Time) bool {
	return !ahora.Before(c.NoAntes) && !ahora.After(c.NoDespues)
}

// Transicion registro append-only del cambio de estado de un comprobante.
// Hace el sondeo idempotente y reanudable: el orquestador decide dónde retomar
// leyendo el estado persistido, nunca re-ejecuta etapas ya reflejadas.
type Transicion struct {
	ID            string
	ComprobanteID string
	Desde         string
	Hacia         string
	Detalle       string
	CreatedAt     time.Time
}
