// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gofetch/requests"
	"github.com/gofetch/requests/request"
	"gopkg.in/yaml.v3"
)

// Config defines file configuration for a requests.Client and the
// requests command.
type Config struct {
	Timeout         time.Duration     `yaml:"timeout" validate:"gte=0"`
	UserAgent       string            `yaml:"user_agent"`
	Headers         map[string]string `yaml:"headers" validate:"dive,keys,required,endkeys"`
	FollowRedirects bool              `yaml:"follow_redirects"`
	ChunkSize       int               `yaml:"chunk_size" validate:"gte=0"`
	Throttle        ThrottleConfig    `yaml:"throttle"`
	Log             LogConfig         `yaml:"log"`
	Bucket          string            `yaml:"bucket" validate:"omitempty,uri"`
}

// ThrottleConfig limits the rate of outgoing requests. A zero RPS
// disables throttling.
type ThrottleConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"required_with=RPS,gte=0"`
}

// LogConfig selects the level and format of the client's log output.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Timeout:         30 * time.Second,
		UserAgent:       "requests/1",
		FollowRedirects: true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file. Settings missing from the file
// keep their Default values. The result is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration. Unknown keys are an
// error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Logger builds a logger writing to w at the configured level and in
// the configured format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level(c.Log.Level)}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ClientOptions returns the options which build a client configured
// by c.
func (c Config) ClientOptions(logger *slog.Logger) []requests.Option {
	opts := []requests.Option{
		requests.WithTimeout(c.Timeout),
		requests.WithChunkSize(c.ChunkSize),
	}
	if logger != nil {
		opts = append(opts, requests.WithLogger(logger))
	}
	if c.UserAgent != "" {
		opts = append(opts, requests.WithUserAgent(c.UserAgent))
	}
	if !c.FollowRedirects {
		opts = append(opts, requests.WithNoFollowRedirects())
	}
	if c.Throttle.RPS > 0 {
		opts = append(opts, requests.WithThrottle(c.Throttle.RPS, c.Throttle.Burst))
	}
	return opts
}

// NewClient builds a client configured by c.
func (c Config) NewClient(logger *slog.Logger) (*requests.Client, error) {
	return requests.New(c.ClientOptions(logger)...)
}

// RequestOptions returns the options which add the configured headers
// to a request, in sorted header name order.
func (c Config) RequestOptions() []request.Option {
	names := make([]string, 0, len(c.Headers))
	for name := range c.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	opts := make([]request.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, request.Header(name, c.Headers[name]))
	}
	return opts
}

func level(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
