package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del emisor (lectura vía Viper desde env y opcionalmente .env).
type Config struct {
	App AppConfig
	DB  DBConfig
	SRI SRIConfig
}

// AppConfig configuración general.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// SRIConfig configuración de comprobantes electrónicos SRI (Ecuador).
type SRIConfig struct {
	Ambiente        string        // "1" = pruebas (celcer), "2" = producción (cel)
	RecepcionURL    string        // Override del endpoint de recepción (vacío = URL oficial del ambiente)
	AutorizacionURL string        // Override del endpoint de autorización
	SOAPTimeout     time.Duration // Timeout por llamada SOAP
	MaxReintentos   int           // Reintentos ante fallas transitorias de transporte
	RondasSondeo    int           // Consultas de autorización antes de dejar el comprobante EN_PROCESO
	IntervaloSondeo time.Duration // Espera entre consultas de autorización
	CertPassword    string        // Contraseña del contenedor PKCS#12 del emisor
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde .env).
// Las env vars tienen prioridad: APP_ENV, DATABASE_URL, SRI_AMBIENTE, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // el archivo es opcional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "facturacion-sri")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "facturacion")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SRI_AMBIENTE", "1")
	v.SetDefault("SRI_SOAP_TIMEOUT", "30s")
	v.SetDefault("SRI_MAX_REINTENTOS", 3)
	v.SetDefault("SRI_RONDAS_SONDEO", 10)
	v.SetDefault("SRI_INTERVALO_SONDEO", "3s")

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
		},
		SRI: SRIConfig{
			Ambiente:        v.GetString("SRI_AMBIENTE"),
			RecepcionURL:    v.GetString("SRI_RECEPCION_URL"),
			AutorizacionURL: v.GetString("SRI_AUTORIZACION_URL"),
			SOAPTimeout:     v.GetDuration("SRI_SOAP_TIMEOUT"),
			MaxReintentos:   v.GetInt("SRI_MAX_REINTENTOS"),
			RondasSondeo:    v.GetInt("SRI_RONDAS_SONDEO"),
			IntervaloSondeo: v.GetDuration("SRI_INTERVALO_SONDEO"),
			CertPassword:    v.GetString("SRI_CERT_PASSWORD"),
		},
	}

	if cfg.SRI.Ambiente != "1" && cfg.SRI.Ambiente != "2" {
		return nil, fmt.Errorf("config: SRI_AMBIENTE debe ser 1 (pruebas) o 2 (producción), se recibió %q", cfg.SRI.Ambiente)
	}
	return cfg, nil
}
