package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rfqdash/pkg/api"
	"rfqdash/pkg/audit"
	"rfqdash/pkg/auth"
	"rfqdash/pkg/config"
	"rfqdash/pkg/dashboard"
	"rfqdash/pkg/metrics"
	"rfqdash/pkg/session"
	"rfqdash/pkg/store"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	configFile := flag.String("config", "rfqdash.toml", "Path to the TOML config file")

	flag.Parse()
	if *verbose {
		// Set the log level to debug
		log.SetLevel(log.DebugLevel)
	}
	// Set the log format to include a leading timestamp in ISO8601 format
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("failed to load .env: %v", err)
	}

	cfg, err := config.New(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	backing, err := cfg.OpenStore(ctx)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}

	auditLog, err := audit.Open(cfg.Store.AuditDBFilename)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}
	defer auditLog.Close()

	m := metrics.New()
	dash := dashboard.New(store.NewCached(backing), cfg.Store.Columns, cfg.Policy(), auditLog, m)
	a := auth.New(cfg.Store.Auth.GlobalPassword, cfg.Store.Auth.DivisionPasswords)
	if !a.Enabled() {
		log.Warn("no passwords configured, every session is unrestricted")
	}

	sessions := session.NewManager(cfg.Store.Server.SecureCookies)
	sessions.SetIdleTimeout(time.Duration(cfg.Store.Server.SessionIdleMinutes) * time.Minute)
	handler := api.NewHandler(dash, sessions, a, m)
	router := api.GetRouter(handler, api.RouterOptions{
		CSRFKey:       cfg.Store.Server.CSRFKey,
		SecureCookies: cfg.Store.Server.SecureCookies,
	})
	go startServer(cfg.Store.Server.ListenAddress, router)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// In all cases, just exit and let the container restart from scratch.
	<-signalChan
	log.Info("Signalled, shutting down")
}

func startServer(addr string, router http.Handler) {
	server := http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
	}
	log.Infof("listening for HTTP on: %s", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("ListenAndServeError", err)
	}
}
