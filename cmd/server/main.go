package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Trylar/go-messenger/internal/server"
	"github.com/Trylar/go-messenger/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Println("Starting messenger server...")

	if err := run(); err != nil {
		log.Printf("Fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", "server.yaml", "path to the YAML configuration file")
	host := pflag.String("host", "", "listen host (overrides config)")
	port := pflag.String("port", "", "listen port (overrides config)")
	database := pflag.String("db", "", "credentials database path (overrides config)")
	wsAddr := pflag.String("ws-addr", "", "WebSocket gateway listen address (empty disables)")
	pflag.Parse()

	cfg, err := server.LoadConfigFile(*configPath)
	if err != nil {
		return err
	}
	cfg = server.NewConfigFromEnv(cfg)
	if *host != "" {
		cfg.Host = *host
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *database != "" {
		cfg.Database = *database
	}
	if *wsAddr != "" {
		cfg.WSAddr = *wsAddr
	}
	server.SetConfig(cfg)

	credentials, err := store.OpenSQLite(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := credentials.Close(); err != nil {
			log.Printf("Error closing credential store: %v", err)
		}
	}()

	hub := server.NewHub()
	go hub.Run()

	dispatch := server.NewDispatcher(hub, credentials, cfg.HelpMessage)

	srv := server.NewServer(hub, dispatch)
	if err := srv.Listen(cfg.Addr()); err != nil {
		return err
	}

	var gatewaySrv *http.Server
	if cfg.WSAddr != "" {
		gateway := server.NewGateway(hub, dispatch)
		gatewaySrv = server.CreateHTTPServer(cfg.WSAddr, server.SetupRoutes(gateway))
		go func() {
			log.Printf("WebSocket gateway listening on %s", cfg.WSAddr)
			if err := gatewaySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("WebSocket gateway error: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Printf("Received %s, shutting down...", sig)
	case runErr = <-serveErr:
	}

	srv.Shutdown()
	if gatewaySrv != nil {
		_ = server.ShutdownHTTPServer(gatewaySrv, shutdownTimeout)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown: %v", err)
	}

	return runErr
}
