// ABOUTME: Entry point for vault-mock, the in-memory development backend
// ABOUTME: Serves the record service routes with seeded accounts for every role

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"

	"github.com/2389/vault-dashboard/internal/config"
	"github.com/2389/vault-dashboard/internal/logging"
	"github.com/2389/vault-dashboard/internal/mockapi"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or toml)")
	seed := flag.Bool("seed", true, "create demo accounts and courses")
	tamper := flag.Int("tamper", -1, "corrupt the audit log entry at this index after seeding")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *seed, *tamper); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, seed bool, tamper int) error {
	cfg, _, err := config.LoadDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.Logging, os.Stdout)
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	secret := []byte(cfg.Mock.JWTSecret)
	if len(secret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating jwt secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(buf))
		logger.Warn("mock.jwt_secret not set; using a random secret for this run")
	}

	store := mockapi.NewStore()
	if seed || cfg.Mock.Seed {
		seeded, err := mockapi.Seed(store)
		if err != nil {
			return err
		}
		printAccounts(seeded)
	}
	if tamper >= 0 {
		if !store.TamperLog(tamper, "tampered") {
			return fmt.Errorf("no audit log entry at index %d", tamper)
		}
		logger.Warn("audit log tampered", "index", tamper)
	}

	srv := mockapi.NewServer(store, secret,
		mockapi.WithTokenTTL(cfg.Mock.TokenTTL),
		mockapi.WithLogger(logger),
	)
	httpServer := &http.Server{
		Addr:              cfg.Mock.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting vault-mock", "addr", cfg.Mock.Addr, "token_ttl", cfg.Mock.TokenTTL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		return err
	}
	return nil
}

func printAccounts(s mockapi.Seeded) {
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	yellow.Println("Seeded accounts (password: " + mockapi.SeedPassword + ")")
	for _, u := range []mockapi.User{s.Admin, s.Teacher, s.Student, s.Student2, s.Parent} {
		green.Print("  ▶ ")
		fmt.Printf("%-8s %-22s qr %s\n", u.Role, u.Email, u.QRToken)
	}
	fmt.Println()
}
