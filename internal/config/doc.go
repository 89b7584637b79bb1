// Package config handles configuration loading for the vault dashboard.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The package provides validation and sensible defaults, so a
// missing file still yields a usable configuration.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from VAULT_CONFIG environment variable
//  3. ./vault.yaml or ./vault.toml (current directory)
//  4. ~/.config/vault/dash.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	session:
//	  seal_key: "${VAULT_SEAL_KEY}"
//
// # Configuration Sections
//
// Remote service:
//
//	api:
//	  base_url: "http://localhost:3000/api"
//	  timeout: "10s"
//
// Session area:
//
//	session:
//	  path: ""                # defaults to $XDG_CONFIG_HOME/vault/session.db
//	  seal_key: ""            # 64 hex chars enables sealing at rest
//	  watch_interval: "30s"   # how often the token expiry is checked; "0" or "off" disables it
//
// Scanner:
//
//	scanner:
//	  kind: "lines"   # lines, none
//	  path: ""        # empty means payloads are typed at the prompt
//
// Mock backend:
//
//	mock:
//	  addr: "127.0.0.1:3000"
//	  jwt_secret: "${VAULT_MOCK_SECRET}"
//	  token_ttl: "1h"
//	  seed: true
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, path, err := config.LoadDefault(flagPath)
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
