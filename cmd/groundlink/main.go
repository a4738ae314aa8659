// GroundLink: ground-side controller for the ESP-Drone. Loads the config,
// builds the drone link and the intent gateway, then runs until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"GroundLink/internal/app"
	"GroundLink/internal/controller"
	"GroundLink/internal/link"
	"GroundLink/internal/util"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to YAML config (empty for defaults)")
	transport := flag.String("transport", "udp", "drone transport: udp, serial or fake")
	addr := flag.String("addr", "", "gateway bind address (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := util.NewLogger(*debug)
	defer func() { _ = logger.Sync() }()

	cfg, err := controller.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Gateway.Addr = *addr
	}

	var tr link.Transport
	switch *transport {
	case "udp":
		tr = link.NewUDPTransport(cfg.Link.Host, cfg.Link.Port)
	case "serial":
		tr = link.NewSerialTransport(cfg.Link.SerialDevice, cfg.Link.SerialBaud)
	case "fake":
		tr = link.NewFakeTransport()
	default:
		logger.Fatal("unknown transport", zap.String("transport", *transport))
	}

	ctrl := controller.New(cfg, tr, logger.Named("controller"))
	gw := app.NewGateway(ctrl, logger.Named("gateway"))

	errCh := make(chan error, 1)
	go func() { errCh <- gw.Start(cfg.Gateway.Addr) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logger.Info("groundlink running",
		zap.String("endpoint", tr.String()),
		zap.String("gateway", cfg.Gateway.Addr))

	select {
	case <-stop:
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("gateway failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		logger.Warn("gateway shutdown", zap.Error(err))
	}
	// forces manual control off first, so the drone gets its motor-stop
	ctrl.Disconnect()
}
