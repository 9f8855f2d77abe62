package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cpudash/cpudash/internal/config"
	"github.com/cpudash/cpudash/internal/frontend"
	"github.com/cpudash/cpudash/internal/hub"
	"github.com/cpudash/cpudash/internal/mock"
	"github.com/cpudash/cpudash/internal/sampler"
	"github.com/cpudash/cpudash/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to optional YAML config file")
	address := flag.String("address", "", "Address to listen on (default 127.0.0.1)")
	port := flag.Int("port", -1, "Port to listen on (default 8799)")
	interval := flag.Duration("interval", 0, "Sampling interval (minimum 200ms)")
	mockMode := flag.Bool("mock", false, "Serve synthetic CPU data instead of reading the host")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *address != "" {
		cfg.Server.Host = *address
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if *interval > 0 {
		cfg.Sampler.Interval = *interval
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ln, err := ws.Listen(cfg.Server.Host, cfg.Server.Port)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}

	h := hub.New()
	server := ws.NewServer(h, frontend.Assets())
	httpServer := &http.Server{Handler: server.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reader sampler.Reader = sampler.GopsutilReader{}
	if *mockMode {
		log.Println("Starting in mock mode")
		reader = mock.NewGenerator(runtime.NumCPU(), time.Now().UnixNano())
	}

	smp := sampler.New(reader, h, cfg.Sampler.Interval, cfg.Sampler.MaxConsecutiveFailures)
	go func() {
		err := smp.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Fatalf("Sampler stopped: %v", err)
	}()

	log.Printf("Listening on %s (sampling every %v)", ln.Addr(), smp.Interval())
	log.Printf("Realtime feed at %s", ws.ListenURL(ln))

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(ln) }()

	select {
	case err := <-serveErr:
		log.Fatalf("Server error: %v", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("realtime shutdown: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	h.Close()
}
