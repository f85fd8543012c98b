package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# FX Journal Configuration

[server]
# Listen address for the HTTP API
host = "0.0.0.0"
port = 8080

[store]
# Persistence backend: "mongo" or "sqlite"
backend = "sqlite"
# MongoDB connection string (mongo backend only)
mongo_uri = ""
# Database name (mongo backend only)
database = "fxjournal"
# Path to the embedded database file (sqlite backend only)
sqlite_path = ""

[blob]
# S3-compatible object storage for chart screenshots. Leave empty to run
# without image uploads.
endpoint = ""
access_key = ""
secret_key = ""
bucket = ""
use_ssl = true
# Public URL prefix for stored objects
base_url = ""

[auth]
# HMAC secret for verifying bearer tokens. Prefer the FXJOURNAL_JWT_SECRET
# environment variable over storing it here.
jwt_secret = ""

[leaderboard]
# Minimum closed trades before a user appears on the leaderboard
min_trades = 3
# How many recent closed trades feed the aggregation
recent_limit = 500

[log]
# Log level: debug, info, warn, error
level = "info"
# Also write logs to a rotating file
file = true
path = ""
`

// createTemplateConfig writes a starter config file so a fresh install has
// something to edit.
func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
