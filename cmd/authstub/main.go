package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-cellar-auth/authstub"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("auth stub stopped")
	}
}

func run() error {
	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	figure.NewFigure("auth stub", "cybermedium", true).Print()
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub, err := authstub.New(ctx, c)
	if err != nil {
		return err
	}
	defer stub.Close()

	httpServer := &http.Server{Addr: c.GetStubPort(), Handler: stub, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("alg", c.GetSigningAlgorithm()).Msg("Auth stub listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("stub.ListenAndServe %w", err)
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
