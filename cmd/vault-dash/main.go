// ABOUTME: Entry point for vault-dash, the terminal shell around the dashboard controller
// ABOUTME: Wires config, logging, the persisted session, the remote client, and the REPL

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/vault-dashboard/internal/api"
	"github.com/2389/vault-dashboard/internal/config"
	"github.com/2389/vault-dashboard/internal/dashboard"
	"github.com/2389/vault-dashboard/internal/logging"
	"github.com/2389/vault-dashboard/internal/session"
)

// Version is set at build time.
var version = "dev"

const banner = `
                 _ _              _           _
 __   ____ _ _  _| | |_ ___ ___  __| | __ _ ___| |__
 \ \ / / _' | || | |  _|___|___|/ _' |/ _' (_-<| '_ \
  \_/ \__,_|\_,_|_|\__|        \__,_|\__,_/__/|_| |_|
`

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or toml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, path, err := config.LoadDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	color.New(color.FgCyan).Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n", version)
	if path == "" {
		path = "(defaults)"
	}
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", path)
	green.Print("    ▶ ")
	fmt.Printf("API:     %s\n", cfg.API.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Session: %s\n\n", cfg.Session.Path)

	storeOpts := []session.StoreOption{session.WithStoreLogger(logger)}
	key, err := cfg.Session.SealKeyBytes()
	if err != nil {
		return err
	}
	if key != nil {
		sealer, err := session.NewSealer(key)
		if err != nil {
			return fmt.Errorf("creating sealer: %w", err)
		}
		storeOpts = append(storeOpts, session.WithSealer(sealer))
	}
	kv, err := session.OpenStore(cfg.Session.Path, storeOpts...)
	if err != nil {
		return err
	}
	defer kv.Close()

	sc, writer := session.NewContext(kv, logger)
	if err := sc.Init(ctx); err != nil {
		logger.Warn("restoring session", "error", err)
	}

	opts := []api.Option{api.WithTimeout(cfg.API.Timeout), api.WithLogger(logger)}
	if cfg.API.UserAgent != "" {
		opts = append(opts, api.WithUserAgent(cfg.API.UserAgent))
	}
	client := api.New(cfg.API.BaseURL, api.TokenFunc(sc.Token), opts...)

	sh := newShell(os.Stdin, os.Stdout)
	scanners, err := sh.scannerFactory(cfg.Scanner)
	if err != nil {
		return err
	}

	dash := dashboard.New(ctx, dashboard.Config{
		Session:       sc,
		Writer:        writer,
		Remote:        client,
		Location:      sh.location,
		Scanners:      scanners,
		WatchInterval: cfg.Session.WatchInterval,
		OnChange:      sh.invalidate,
		Notify:        sh.notify,
		Logger:        logger,
	})
	defer dash.Close()

	logger.Info("dashboard started", "logged_in", dash.Screen().LoggedIn)
	return sh.run(ctx, dash)
}
