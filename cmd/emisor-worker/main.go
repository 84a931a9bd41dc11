// emisor-worker reanuda comprobantes que quedaron a medio camino frente al
// SRI (ENVIADO, RECIBIDO o EN_PROCESO) y los empuja hasta un estado terminal.
// Corre en bucle hasta recibir SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/facturacion-sri/internal/application/emision"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/postgres"
	infrasri "github.com/jhoicas/facturacion-sri/internal/infrastructure/sri"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/sri/firmador"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

const (
	loteMaximo      = 50
	pausaEntreLotes = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente_sri", cfg.SRI.Ambiente).
		Msg("iniciando emisor-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	comprobanteRepo := postgres.NewComprobanteRepository(pool)
	secuencialRepo := postgres.NewSecuencialRepository(pool)
	certificadoRepo := postgres.NewCertificadoRepository(pool)
	transicionRepo := postgres.NewTransicionRepository(pool)

	gateway := infrasri.NewSOAPClient(infrasri.SOAPClientConfig{
		Ambiente:        cfg.SRI.Ambiente,
		RecepcionURL:    cfg.SRI.RecepcionURL,
		AutorizacionURL: cfg.SRI.AutorizacionURL,
		Timeout:         cfg.SRI.SOAPTimeout,
		MaxReintentos:   cfg.SRI.MaxReintentos,
	})

	orquestador := emision.NewOrquestador(
		comprobanteRepo, certificadoRepo, transicionRepo,
		emision.NewAsignadorSecuencial(secuencialRepo),
		infrasri.NewXMLBuilderService(),
		firmador.NewFirmanteComprobantes(),
		gateway,
		emision.Config{
			PasswordCertificado: cfg.SRI.CertPassword,
			RondasSondeo:        cfg.SRI.RondasSondeo,
			IntervaloSondeo:     cfg.SRI.IntervaloSondeo,
		},
		log,
	)

	for {
		procesarLote(ctx, log, comprobanteRepo, orquestador)

		select {
		case <-ctx.Done():
			log.Info().Msg("apagando emisor-worker")
			return
		case <-time.After(pausaEntreLotes):
		}
	}
}

func procesarLote(ctx context.Context, log *logger.Logger, repo *postgres.ComprobanteRepo, orq *emision.Orquestador) {
	pendientes, err := repo.ListPendientes(ctx, loteMaximo)
	if err != nil {
		log.Error().Err(err).Msg("listar comprobantes pendientes")
		return
	}
	if len(pendientes) == 0 {
		return
	}
	log.Info().Int("pendientes", len(pendientes)).Msg("reanudando comprobantes")

	for _, c := range pendientes {
		if ctx.Err() != nil {
			return
		}
		if err := orq.Procesar(ctx, c.ID); err != nil {
			// El error ya quedó persistido en el comprobante; el lote sigue.
			log.Warn().Err(err).Str("comprobante", c.ID).Msg("reanudación fallida")
		}
	}
}
