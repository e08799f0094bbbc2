package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/crateline/crateline/src/internal/config"
	"github.com/crateline/crateline/src/internal/store"
	"github.com/crateline/crateline/src/internal/syncengine"
)

// openStore loads the configuration, applies the --db override, and opens
// the single relational database file (§6 "Persisted state layout"). Every
// subcommand funnels through this so the CLI stays wiring-only.
func openStore(ctx context.Context) (*store.Store, logrus.FieldLogger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	st, err := store.Open(ctx, cfg.DatabasePath, log)
	if err != nil {
		return nil, nil, err
	}
	return st, log, nil
}

func newEngine(st *store.Store) *syncengine.Engine {
	return &syncengine.Engine{Store: st}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
