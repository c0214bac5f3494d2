// Copyright  Project Contour Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.  You may obtain
// a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the
// License for the specific language governing permissions and limitations
// under the License.

// Package config loads and validates the environment-variable driven
// startup configuration described in spec.md §6. A configuration
// error is fatal at startup, per spec.md §7.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Conshmea/EddnRelay/pkg/utils"
)

// Config holds the fully-validated startup configuration.
type Config struct {
	UpstreamURL     string
	UpstreamTimeout time.Duration

	RelayHost string
	RelayPort int

	LogLevel logrus.Level

	UseStore      bool
	StoreURI      string
	StoreDatabase string
	CacheTTL      time.Duration
}

// defaults mirrors the table in spec.md §6 exactly.
var defaults = map[string]string{
	"UPSTREAM_URL":        "tcp://eddn.edcd.io:9500",
	"UPSTREAM_TIMEOUT_MS": "600000",
	"RELAY_HOST":          "127.0.0.1",
	"RELAY_PORT":          "9600",
	"LOG_LEVEL":           "INFO",
	"USE_STORE":           "false",
	"STORE_URI":           "mongodb://localhost:27017",
	"STORE_DATABASE":      "eddn_relay",
	"CACHE_TTL":           "24",
}

var validLogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// Load reads configuration from the process environment, applying the
// defaults in spec.md §6, and validates it. Every failure here is a
// Configuration error (fatal at startup).
func Load() (*Config, error) {
	timeoutMS, err := strconv.Atoi(getenv("UPSTREAM_TIMEOUT_MS"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid UPSTREAM_TIMEOUT_MS: %w", err)
	}

	port, err := strconv.Atoi(getenv("RELAY_PORT"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid RELAY_PORT: %w", err)
	}

	useStore, err := strconv.ParseBool(getenv("USE_STORE"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid USE_STORE: %w", err)
	}

	ttlHours, err := strconv.Atoi(getenv("CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid CACHE_TTL: %w", err)
	}

	rawLevel := getenv("LOG_LEVEL")
	if !utils.ContainsString(validLogLevels, rawLevel) {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL %q, want one of %v", rawLevel, validLogLevels)
	}

	level, err := logrus.ParseLevel(mapLogLevel(rawLevel))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Config{
		UpstreamURL:     getenv("UPSTREAM_URL"),
		UpstreamTimeout: time.Duration(timeoutMS) * time.Millisecond,
		RelayHost:       getenv("RELAY_HOST"),
		RelayPort:       port,
		LogLevel:        level,
		UseStore:        useStore,
		StoreURI:        getenv("STORE_URI"),
		StoreDatabase:   getenv("STORE_DATABASE"),
		CacheTTL:        time.Duration(ttlHours) * time.Hour,
	}, nil
}

// mapLogLevel translates the spec's level names to logrus's, which
// spells the two differently ("WARNING" vs "warn", "CRITICAL" vs
// "fatal").
func mapLogLevel(level string) string {
	switch level {
	case "WARNING":
		return "warning"
	case "CRITICAL":
		return "fatal"
	default:
		return level
	}
}

func getenv(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return defaults[key]
}

// NewLogger builds the structured logger every component logs
// through, at the level Load validated.
func NewLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return log
}
