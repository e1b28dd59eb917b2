// Package config loads the pulse client configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/pulse/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing, empty or non-positive, use defaults
//
// # Default Values
//
//   - Dashboard server: http://127.0.0.1:5000
//   - Push channel path: /live
//   - Poll interval: 30s
//   - Push handshake timeout: 15s
//   - Authorization prompt cool-down: 5m
//   - Log file: ~/.local/state/pulse/pulse.log
//   - Log level: info
//   - Metrics listener: disabled
//
// # TOML Format
//
//	server_url = "http://127.0.0.1:5000"
//	live_path = "/live"
//	poll_seconds = 30
//	handshake_timeout_seconds = 15
//	prompt_cooldown_seconds = 300
//	log_file = "~/.local/state/pulse/pulse.log"
//	log_level = "info"
//	metrics_addr = "127.0.0.1:9464"
//
// Durations are whole seconds. A live_path without a leading slash gets one.
// Tilde expansion is applied to log_file.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// Missing config files are NOT an error. Pulse works out-of-the-box against
// a dashboard on the default port.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatalf("failed to load config: %v", err)
//	}
//	client, err := dashboard.NewClient(cfg.ServerURL)
package config
