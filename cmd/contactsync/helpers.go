// Shared helpers for contactsync CLI commands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/meshline/contactsync/internal/crm"
	"github.com/meshline/contactsync/internal/directory"
	"github.com/meshline/contactsync/internal/engine"
	"github.com/meshline/contactsync/internal/match"
	"github.com/meshline/contactsync/internal/store"
)

// newLogger builds the console logger. --verbose wins over the configured
// level.
func newLogger(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// openStore opens the link database at the configured path.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("open link store: %w", err)
	}
	return st, nil
}

// newEngine wires the store and both remote clients into an engine.
func newEngine(st *store.Store, resolver match.DecisionResolver) *engine.Engine {
	return engine.New(st,
		directory.New(cfg.Directory, logger),
		crm.New(cfg.CRM, logger),
		resolver, cfg, logger)
}

// printReport writes a consistency report to stdout.
func printReport(report engine.Report) {
	fmt.Printf("link store: %d links, directory: %d contacts, crm: %d contacts\n",
		report.Links, report.Sources, report.Targets)

	if report.Clean() {
		color.Green("everything is paired and consistent")
		return
	}
	for _, l := range report.SourceMissing {
		color.Red("link %s <-> %s: directory contact is gone (%s)",
			l.SourceID, l.TargetID, l.SourceName)
	}
	for _, l := range report.TargetMissing {
		color.Red("link %s <-> %s: crm contact is gone (%s)",
			l.SourceID, l.TargetID, l.TargetName)
	}
	for _, c := range report.OrphanSources {
		color.Yellow("directory contact %s (%s) has no link", c.ID, c.DisplayName())
	}
	for _, c := range report.OrphanTargets {
		color.Yellow("crm contact %s (%s) has no link", c.ID, c.DisplayName())
	}
}
