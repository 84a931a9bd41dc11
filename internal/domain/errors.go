package domain

import "errors"

// Errores de dominio (sin dependencias externas). La taxonomía fija el
// tratamiento en el orquestador: los de validación y de la autoridad nunca se
// reintentan; los de transporte se reintentan con backoff acotado.
var (
	ErrNotFound = errors.New("recurso no encontrado")

	// ErrValidation entrada malformada o inconsistente; se corrige y se emite
	// un comprobante nuevo, nunca se reintenta con el mismo secuencial.
	ErrValidation = errors.New("datos del comprobante inválidos")
	// ErrInvalidCatalogCode código de catálogo fuera de las tablas del SRI.
	ErrInvalidCatalogCode = errors.New("código de catálogo inválido")
	// ErrTotalsMismatch los totales declarados no cuadran con las líneas.
	ErrTotalsMismatch = errors.New("totales del comprobante no cuadran")

	// ErrInvalidPassword el contenedor PKCS#12 rechazó la contraseña.
	ErrInvalidPassword = errors.New("contraseña del certificado incorrecta")
	// ErrCorruptCertificate el contenedor PKCS#12 está dañado o es ilegible.
	ErrCorruptCertificate = errors.New("certificado corrupto o ilegible")
	// ErrSigningFailure falló la canonicalización o el cálculo de la firma.
	ErrSigningFailure = errors.New("fallo al firmar el comprobante")

	// ErrGatewayUnavailable falla transitoria de red/transporte contra el SRI.
	ErrGatewayUnavailable = errors.New("servicio del SRI no disponible")
	// ErrAuthorityRejected rechazo de negocio del SRI (DEVUELTA / NO AUTORIZADO);
	// terminal, los mensajes de la autoridad se entregan textuales.
	ErrAuthorityRejected = errors.New("comprobante rechazado por el SRI")

	// ErrAllocationConflict el incremento atómico del secuencial falló en el
	// almacenamiento; se reintenta allí, nunca derivando un valor en el cliente.
	ErrAllocationConflict = errors.New("conflicto al asignar secuencial")
)
