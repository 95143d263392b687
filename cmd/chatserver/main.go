package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hoangnguyen2809/chat-relay/internal/app"
	"github.com/hoangnguyen2809/chat-relay/internal/chat"
	"github.com/hoangnguyen2809/chat-relay/internal/metrics"
	"github.com/hoangnguyen2809/chat-relay/internal/relay"
)

func main() {
	cfg, err := app.LoadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := app.NewLogger(cfg.Env, os.Stdout)
	logger.Info("server.config",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"static_dir", cfg.StaticDir,
		"cors_allow", cfg.CORSAllow,
		"send_buffer", cfg.SendBuffer,
		"write_timeout", cfg.WriteTimeout,
		"pong_wait", cfg.PongWait,
		"max_message_bytes", cfg.MaxMessageBytes,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)

	registry := chat.NewRegistry()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, registry.Len)

	server := relay.NewServer(cfg, logger, registry, m, metrics.Handler(reg))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.listen", "err", err)
			os.Exit(1)
		}
	}()

	// Operator console:
	// 1. Print session count
	// 2. Print room count
	go console(os.Stdin, os.Stdout, server, registry)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				logger.Info("server.shutdown.start")
				// Shutdown does not touch hijacked websocket connections.
				server.Close()
				return httpServer.Shutdown(ctx)
			},
		},
	)
	os.Exit(<-wait)
}

func console(in io.Reader, out io.Writer, server *relay.Server, registry *chat.Registry) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch scanner.Text() {
		case "1":
			fmt.Fprintf(out, "sessions: %d\n", server.SessionCount())
		case "2":
			fmt.Fprintf(out, "rooms: %d\n", registry.Len())
		}
	}
}
