/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
// Receiver and source definitions live in the JSON settings file instead.
type Config struct {
	Environment  string
	HTTPBind     string
	HTTPPort     int
	SettingsFile string
	DBBackend    DatabaseBackend
	DBDSN        string

	// DX cluster configuration
	DXClusterEnabled     bool
	DXClusterHost        string
	DXClusterPort        int
	DXClusterCallsign    string
	DXClusterLoginScript []string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:  getEnvAny([]string{"OWRX_ENV", "OPENWEBRX_ENV"}, "development"),
		HTTPBind:     getEnvAny([]string{"OWRX_HTTP_BIND", "OPENWEBRX_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:     getEnvIntAny([]string{"OWRX_HTTP_PORT", "OPENWEBRX_HTTP_PORT"}, 8073),
		SettingsFile: getEnvAny([]string{"OWRX_SETTINGS_FILE", "OPENWEBRX_SETTINGS_FILE"}, "/etc/openwebrx/settings.json"),
		DBBackend:    DatabaseBackend(getEnvAny([]string{"OWRX_DB_BACKEND", "OPENWEBRX_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:        getEnvAny([]string{"OWRX_DB_DSN", "OPENWEBRX_DB_DSN"}, "/var/lib/openwebrx/openwebrx.db"),

		DXClusterEnabled:     getEnvBoolAny([]string{"OWRX_DXCLUSTER_ENABLED"}, false),
		DXClusterHost:        getEnvAny([]string{"OWRX_DXCLUSTER_HOST"}, ""),
		DXClusterPort:        getEnvIntAny([]string{"OWRX_DXCLUSTER_PORT"}, 7300),
		DXClusterCallsign:    getEnvAny([]string{"OWRX_DXCLUSTER_CALLSIGN"}, ""),
		DXClusterLoginScript: getEnvLinesAny([]string{"OWRX_DXCLUSTER_LOGIN_SCRIPT"}),

		TracingEnabled:    getEnvBoolAny([]string{"OWRX_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"OWRX_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"OWRX_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("OWRX_DB_DSN must be provided")
	}

	if cfg.DXClusterEnabled {
		if cfg.DXClusterHost == "" {
			return nil, fmt.Errorf("OWRX_DXCLUSTER_HOST must be set when the DX cluster client is enabled")
		}
		if cfg.DXClusterCallsign == "" {
			return nil, fmt.Errorf("OWRX_DXCLUSTER_CALLSIGN must be set when the DX cluster client is enabled")
		}
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"OPENWEBRX_ENV":           "use OWRX_ENV",
		"OPENWEBRX_HTTP_BIND":     "use OWRX_HTTP_BIND",
		"OPENWEBRX_HTTP_PORT":     "use OWRX_HTTP_PORT",
		"OPENWEBRX_SETTINGS_FILE": "use OWRX_SETTINGS_FILE",
		"OPENWEBRX_DB_BACKEND":    "use OWRX_DB_BACKEND",
		"OPENWEBRX_DB_DSN":        "use OWRX_DB_DSN",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvLinesAny splits the first set environment variable value from keys into
// non-empty lines, or returns nil if none set.
func getEnvLinesAny(keys []string) []string {
	for _, k := range keys {
		v := os.Getenv(k)
		if v == "" {
			continue
		}
		var lines []string
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		return lines
	}
	return nil
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
