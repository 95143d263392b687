// Package app holds process-level configuration and logging setup.
package app

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinPongWait is the shortest pong wait accepted. Pings go out at 9/10 of it.
const MinPongWait = time.Second

// Config is the chat server configuration. Environment variables provide
// defaults and command-line flags override them.
type Config struct {
	Env             string        `env:"CHAT_ENV"               envDefault:"dev"`
	HTTPAddr        string        `env:"CHAT_HTTP_ADDR"         envDefault:"localhost:8080"`
	StaticDir       string        `env:"CHAT_STATIC_DIR"        envDefault:"./static"`
	CORSAllow       []string      `env:"CHAT_CORS_ALLOW"        envDefault:"http://localhost:8080" envSeparator:","`
	SendBuffer      int           `env:"CHAT_SEND_BUFFER"       envDefault:"256"`
	WriteTimeout    time.Duration `env:"CHAT_WRITE_TIMEOUT"     envDefault:"10s"`
	PongWait        time.Duration `env:"CHAT_PONG_WAIT"         envDefault:"60s"`
	MaxMessageBytes int64         `env:"CHAT_MAX_MESSAGE_BYTES" envDefault:"65536"`
	ShutdownTimeout time.Duration `env:"CHAT_SHUTDOWN_TIMEOUT"  envDefault:"10s"`
}

// LoadConfig reads an optional .env file, then the environment, then args.
func LoadConfig(fs *flag.FlagSet, args []string) (Config, error) {
	// Local .env is optional (dev only)
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Env, "env", cfg.Env, "environment name (prod enables JSON logs)")
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "http service address")
	fs.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "directory served at /")
	fs.IntVar(&cfg.SendBuffer, "send-buffer", cfg.SendBuffer, "outbound frames buffered per connection")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for a single websocket write")
	fs.DurationVar(&cfg.PongWait, "pong-wait", cfg.PongWait, "time allowed between pongs before a connection is dropped")
	fs.Int64Var(&cfg.MaxMessageBytes, "max-message-bytes", cfg.MaxMessageBytes, "largest inbound frame accepted")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown budget")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send buffer must be positive, got %d", c.SendBuffer))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout))
	}
	if c.PongWait < MinPongWait {
		errs = append(errs, fmt.Errorf("pong wait must be at least %s, got %s", MinPongWait, c.PongWait))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max message bytes must be positive, got %d", c.MaxMessageBytes))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}
