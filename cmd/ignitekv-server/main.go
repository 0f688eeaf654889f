// Command ignitekv-server runs the TCP request server and, unless
// disabled, the admin HTTP surface alongside it. The engine marker file
// round-trip (current_engine/record_current_engine) mirrors kvs-server.rs,
// translated to Go's flag package, using plain stdlib flag parsing rather
// than a CLI framework since this is a small front end.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dreamerlzl/ignitekv/internal/admin"
	"github.com/dreamerlzl/ignitekv/internal/engine"
	"github.com/dreamerlzl/ignitekv/internal/metrics"
	"github.com/dreamerlzl/ignitekv/internal/server"
	"github.com/dreamerlzl/ignitekv/pkg/logger"
	"github.com/dreamerlzl/ignitekv/pkg/options"
	"github.com/prometheus/client_golang/prometheus"
)

const engineMarkerFile = "engine"

func main() {
	addr := flag.String("addr", options.DefaultAddr, "IP:PORT to listen on")
	engineName := flag.String("engine", options.DefaultEngine, "storage engine: kvs or bolt")
	dataDir := flag.String("data-dir", options.DefaultDataDir, "directory holding segment/engine data")
	poolSize := flag.Int("pool-size", 4, "number of workers in the request pool")
	adminAddr := flag.String("admin-addr", options.DefaultAdminAddr, "IP:PORT for the admin HTTP surface")
	noAdmin := flag.Bool("no-admin", false, "disable the admin HTTP surface")
	flag.Parse()

	log := logger.New("ignitekv-server")

	if _, err := engine.Parse(*engineName); err != nil {
		log.Fatalw("invalid engine flag", "error", err)
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalw("failed to create data directory", "dataDir", *dataDir, "error", err)
	}

	if err := checkEngineMarker(*engineName); err != nil {
		log.Fatalw("engine marker mismatch", "error", err)
	}

	opts := options.NewDefaultOptions()
	for _, opt := range []options.OptionFunc{
		options.WithDataDir(*dataDir),
		options.WithAddr(*addr),
		options.WithEngine(*engineName),
		options.WithPoolSize(*poolSize),
		options.WithAdminAddr(*adminAddr),
		options.WithAdminEnabled(!*noAdmin),
	} {
		opt(&opts)
	}

	eng, err := engine.Open(&engine.Config{Options: &opts, Logger: log})
	if err != nil {
		log.Fatalw("failed to open engine", "error", err)
	}
	defer eng.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	srv, err := server.New(&server.Config{
		Addr:     opts.ServerOptions.Addr,
		Engine:   eng,
		PoolSize: opts.ServerOptions.PoolSize,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		log.Fatalw("failed to start server", "error", err)
	}

	var adminSrv *admin.Server
	if opts.AdminOptions.Enabled {
		adminSrv = admin.New(opts.AdminOptions.Addr, eng, reg)
		go func() {
			if err := adminSrv.Serve(); err != nil {
				log.Errorw("admin server stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.Serve(); err != nil {
			log.Fatalw("server stopped", "error", err)
		}
	}()

	log.Infow("ignitekv-server running", "addr", srv.Addr(), "engine", *engineName, "dataDir", *dataDir)

	waitForShutdown()

	log.Infow("shutting down")
	_ = srv.Close()
	if adminSrv != nil {
		_ = adminSrv.Close()
	}
}

func waitForShutdown() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}

// checkEngineMarker enforces that the working directory already used to
// start one engine variant isn't silently reused to start the other: it
// reads the ./engine marker file (if any) relative to the current working
// directory, compares it to requested, and writes requested back when none
// exists yet.
func checkEngineMarker(requested string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	path := filepath.Join(cwd, engineMarkerFile)

	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(path, []byte(requested), 0644)
		}
		return err
	}

	recorded := strings.TrimSpace(string(existing))
	if recorded != requested {
		return fmt.Errorf("current directory %s was started with engine %q, cannot reopen with %q", cwd, recorded, requested)
	}
	return nil
}
