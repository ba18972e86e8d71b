// Command matchbookd runs the matching engine behind a TCP listener
// and a Prometheus metrics endpoint. Grounded in the teacher's
// cmd/server/server.go (signal-driven context, engine + net.Server
// wiring).
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dorufloare/matchbook/internal/config"
	"github.com/dorufloare/matchbook/internal/engine"
	"github.com/dorufloare/matchbook/internal/generator"
	"github.com/dorufloare/matchbook/internal/logsink"
	"github.com/dorufloare/matchbook/internal/metrics"
	matchnet "github.com/dorufloare/matchbook/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0:9001", "address to listen for order traffic on")
	metricsAddr := flag.String("metrics-address", "0.0.0.0:9090", "address to serve /metrics on")
	ordersLog := flag.String("orders-log", "orders.csv", "path to the order CSV log")
	tradesLog := flag.String("trades-log", "trades.csv", "path to the trade CSV log")
	enableGenerator := flag.Bool("enable-generator", false, "submit synthetic background order flow, per original_source's background_generator")
	generatorInterval := flag.Duration("generator-interval", 200*time.Millisecond, "interval between synthetic orders when -enable-generator is set")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	met := metrics.New()
	logSink := logsink.Open(*ordersLog, *tradesLog)
	defer logSink.Close()

	cfg := config.New()
	eng, err := engine.New(cfg, logSink, met)
	if err != nil {
		log.Fatal().Err(err).Msg("matchbookd: unable to construct engine")
	}
	eng.Start(ctx)

	if *enableGenerator {
		gen := generator.New(eng.Submit, eng, *generatorInterval)
		go gen.Run(ctx)
		log.Info().Dur("interval", *generatorInterval).Msg("matchbookd: background order generator enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("matchbookd: metrics server stopped")
		}
	}()

	srv := matchnet.New(*address, eng)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("matchbookd: net server stopped")
		}
	}()

	log.Info().Str("address", *address).Msg("matchbookd: started")

	<-ctx.Done()
	srv.Shutdown()
	_ = eng.Shutdown()
	_ = metricsServer.Close()
}
