// Package config loads runtime configuration for the medadmin client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or $MEDADMIN_CONFIG.
//  3. MEDADMIN_* environment variables (MEDADMIN_API_URL, MEDADMIN_DB_PATH, ...).
//  4. Command-line flags, which override everything else.
//
// # JSON schema
//
// Durations are strings like "3s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://clinic.example.com",
//	  "api_prefix": "/api/v1",
//	  "refresh_buffer": "2m",
//	  "online_check_interval": "3s",
//	  "db_path": "/var/lib/medadmin/client.db"
//	}
package config
