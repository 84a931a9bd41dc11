// Clave de acceso de 49 dígitos (Ficha Técnica SRI, módulo 11).
// Función pura y determinista: los mismos campos producen siempre la misma clave.

package sri

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrInvalidAccessKeyInput indica un campo no numérico o de ancho incorrecto.
	ErrInvalidAccessKeyInput = errors.New("sri: campo de clave de acceso inválido")
	// ErrChecksumMismatch indica que el dígito verificador no corresponde a la clave.
	ErrChecksumMismatch = errors.New("sri: dígito verificador de la clave de acceso no coincide")
)

// ClaveAccesoParams campos que componen los 48 dígitos previos al verificador.
// El orden de concatenación es fijo:
//
//	fecha(8 ddmmaaaa) + codDoc(2) + ruc(13) + ambiente(1) +
//	estab(3) + ptoEmi(3) + secuencial(9) + codigoNumerico(8) + tipoEmision(1)
type ClaveAccesoParams struct {
	FechaEmision   time.Time
	CodDoc         string // Tabla 3 (01, 04, 05, 06, 07)
	RUC            string // 13 dígitos
	Ambiente       string // 1=pruebas, 2=producción
	Estab          string // 3 dígitos
	PtoEmi         string // 3 dígitos
	Secuencial     string // 9 dígitos con ceros a la izquierda
	CodigoNumerico string // 8 dígitos; si está vacío se genera aleatorio
	TipoEmision    string // normalmente "1"
}

// BuildClaveAcceso arma la clave de 49 dígitos con su dígito verificador módulo 11.
func BuildClaveAcceso(p ClaveAccesoParams) (string, error) {
	if p.FechaEmision.IsZero() {
		return "", fmt.Errorf("%w: fechaEmision vacía", ErrInvalidAccessKeyInput)
	}
	codigoNumerico := p.CodigoNumerico
	if codigoNumerico == "" {
		var err error
		codigoNumerico, err = GenerarCodigoNumerico()
		if err != nil {
			return "", err
		}
	}
	campos := []struct {
		nombre string
		valor  string
		ancho  int
	}{
		{"codDoc", p.CodDoc, 2},
		{"ruc", p.RUC, 13},
		{"ambiente", p.Ambiente, 1},
		{"estab", p.Estab, 3},
		{"ptoEmi", p.PtoEmi, 3},
		{"secuencial", p.Secuencial, 9},
		{"codigoNumerico", codigoNumerico, 8},
		{"tipoEmision", p.TipoEmision, 1},
	}
	clave := p.FechaEmision.Format("02012006")
	for _, c := range campos {
		if len(c.valor) != c.ancho || !esNumerico(c.valor) {
			return "", fmt.Errorf("%w: %s debe tener %d dígitos, se recibió %q",
				ErrInvalidAccessKeyInput, c.nombre, c.ancho, c.valor)
		}
		clave += c.valor
	}
	dv, err := DigitoVerificador(clave)
	if err != nil {
		return "", err
	}
	return clave + string(dv), nil
}

// ValidateClaveAcceso recalcula el dígito verificador de una clave de 49 dígitos.
func ValidateClaveAcceso(clave string) error {
	if len(clave) != 49 || !esNumerico(clave) {
		return fmt.Errorf("%w: la clave debe tener 49 dígitos numéricos, se recibieron %d",
			ErrInvalidAccessKeyInput, len(clave))
	}
	dv, err := DigitoVerificador(clave[:48])
	if err != nil {
		return err
	}
	if clave[48] != dv {
		return fmt.Errorf("%w: esperado %c, recibido %c", ErrChecksumMismatch, dv, clave[48])
	}
	return nil
}

// DigitoVerificador calcula el dígito módulo 11 sobre los 48 dígitos previos.
// Pesos 2..7 cíclicos de derecha a izquierda; 11 - (suma % 11), con 11→0 y 10→1.
func DigitoVerificador(cuerpo string) (byte, error) {
	if len(cuerpo) != 48 || !esNumerico(cuerpo) {
		return 0, fmt.Errorf("%w: el cuerpo de la clave debe tener 48 dígitos numéricos",
			ErrInvalidAccessKeyInput)
	}
	peso := 2
	suma := 0
	for i := len(cuerpo) - 1; i >= 0; i-- {
		suma += int(cuerpo[i]-'0') * peso
		peso++
		if peso > 7 {
			peso = 2
		}
	}
	resultado := 11 - (suma % 11)
	switch resultado {
	case 11:
		return '0', nil
	case 10:
		return '1', nil
	default:
		return byte('0' + resultado), nil
	}
}

// GenerarCodigoNumerico devuelve 8 dígitos aleatorios (crypto/rand) para la clave.
func GenerarCodigoNumerico() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("sri: generar código numérico: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// FormatSecuencial formatea un secuencial entero como 9 dígitos con ceros a la izquierda.
func FormatSecuencial(n uint64) string {
	return fmt.Sprintf("%09d", n)
}

func esNumerico(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
