package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"

	"rfqdash/pkg/audit"
	"rfqdash/pkg/config"
	"rfqdash/pkg/dashboard"
	"rfqdash/pkg/rfq"
	"rfqdash/pkg/session"
	"rfqdash/pkg/store"
	"rfqdash/pkg/upload"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// rfqload pushes a CSV or XLSX file into the configured record store the same
// way an unrestricted dashboard upload does.
func main() {
	verbose := flag.Bool("v", false, "Verbose logging")
	configFile := flag.String("config", "rfqdash.toml", "Path to the TOML config file")
	file := flag.String("file", "", "CSV or XLSX file to load (required)")
	mode := flag.String("mode", string(dashboard.ModeAppend), "replace or append")

	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if *file == "" {
		log.Error("You must specify a file with -file")
		flag.Usage()
		os.Exit(1)
	}
	m, err := dashboard.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}

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

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer f.Close()
	table, err := upload.Parse(f, *file)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", *file, err)
	}

	sess := &session.Session{ID: "rfqload"}
	sess.Login(rfq.Unrestricted())

	dash := dashboard.New(store.NewCached(backing), cfg.Store.Columns, cfg.Policy(), auditLog, nil)
	entry, err := dash.Upload(ctx, sess, m, *file, table)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *file, err)
	}
	log.Infof("Loaded %d rows from %s (%s)", entry.Rows, *file, entry.Mode)
}
