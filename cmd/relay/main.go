package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/relay"
)

func main() {
	godotenv.Load()
	logger.Init()

	port := flag.String("port", envOr("RELAY_PORT", "8973"), "HTTP listen port")
	flag.Parse()

	rs := relay.NewServer()
	srv := &http.Server{
		Addr:    ":" + *port,
		Handler: rs.Router(),
	}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		logger.Log.Infof("[relay] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case s := <-sig:
			logger.Log.Infof("[relay] caught %s, shutting down", s)
		case <-ctx.Done():
			return nil
		}

		rs.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Fatalf("[relay] %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
