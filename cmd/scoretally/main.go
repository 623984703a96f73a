package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abrezinsky/scoretally/internal/app"
	"github.com/abrezinsky/scoretally/internal/auth"
	"github.com/abrezinsky/scoretally/internal/config"
	"github.com/abrezinsky/scoretally/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

// shutdownTimeout bounds how long in-flight requests may take on exit
const shutdownTimeout = 10 * time.Second

func showBanner() {
	fmt.Printf("\n  %s%s ScoreTally %s%s %s\n", bold, cyan, yellow, version, reset)
	fmt.Printf("  %slive scoring and tabulation%s\n\n", green, reset)
}

func newLogger(cfg *config.Config) *logger.SlogLogger {
	return logger.NewWithOptions(logger.Options{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Format:  logger.Format(cfg.LogFormat),
		HTTPLog: cfg.HTTPLog,
	})
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if stderrors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Printf("scoretally %s\n", version)
		os.Exit(0)
	}

	showBanner()
	appLog := newLogger(cfg)

	generated := cfg.AdminPassword == auth.GeneratedPassword
	if generated {
		cfg.AdminPassword = auth.GeneratePassword()
	}

	a, err := app.New(cfg, appLog)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}

	switch {
	case generated:
		appLog.Info("Admin password", "password", cfg.AdminPassword)
	case cfg.AdminPassword == "":
		appLog.Warn("Admin login disabled, no admin password configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info("Server starting", "addr", cfg.ListenAddr, "base_url", a.BaseURL())
		serverErr <- server.ListenAndServe()
	}()

	if isTerminal(os.Stdin) {
		printConsoleHelp()
		go runConsole(os.Stdin, appLog, stop)
	}

	select {
	case err := <-serverErr:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.Close()
			log.Fatal(err)
		}
	case <-ctx.Done():
	}

	appLog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", "error", err)
	}
	if err := a.Close(); err != nil {
		appLog.Error("Close failed", "error", err)
	}
}
