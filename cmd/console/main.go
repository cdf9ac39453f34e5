package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/auth"
	"github.com/ctrlcompliance/admin-console/devicetrust/sqlitestore"
	"github.com/ctrlcompliance/admin-console/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running console: %s\n", err)
	}
	log.Printf("Console stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	displayAppname(cfg.AppName)
	logger := newLogger(cfg.LogLevel)

	apiClient, err := api.New(cfg.APIBase,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	trust, err := sqlitestore.Open(cfg.TrustStorePath())
	if err != nil {
		return err
	}
	defer trust.Close()

	controller, err := auth.New(apiClient, trust, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	session := &session{
		cfg:        cfg,
		log:        logger,
		api:        apiClient,
		controller: controller,
	}
	return session.Run(context.Background())
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
