package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("AUTHORITYSTORE_CONFIG", "configs/example.yaml"),
		"Path to configuration file (env: AUTHORITYSTORE_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("AUTHORITYSTORE_CONFIG", "configs/example.yaml"),
		"Path to configuration file (env: AUTHORITYSTORE_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("AUTHORITYSTORE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: AUTHORITYSTORE_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("AUTHORITYSTORE_LOG_FORMAT", "text"),
		"Log format: json, text (env: AUTHORITYSTORE_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate config file exists
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Authority document store CLI

Usage:
  %s [flags] <command> [args]

Commands:
  create-authority <short-id> <display-name>     Create an authority
  get-authority <specifier>                      Show an authority
  list-authorities                               List authorities
  delete-authority <specifier>                   Delete an authority and its items
  create-item <parent-spec> <short-id> <name>    Create an item under an authority
  get-item <parent-spec> <item-spec>             Show an item
  list-items <parent-spec> [partial-term]        List an authority's items
  delete-item <parent-spec> <item-spec>          Permanently delete an item
  transition <parent-spec> <item-spec> <name>    Apply delete/undelete/lock to an item
  resolve <ref-name>                             Resolve an item reference name to a CSID
  hierarchy <parent-spec> <item-spec> [parents]  Walk the item tree down (or up)
  refs <parent-spec> <item-spec>                 List documents referencing an item
  authority-refs <parent-spec> <item-spec>       List authority references held by an item

Specifiers are either an opaque CSID or urn:cspace:name(<short-id>).

Flags:
`, appName, appName)
	flag.PrintDefaults()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// contains checks if a string slice contains a value
func contains(slice []string, value string) bool {
	for _, item := range slice {
		if item == value {
			return true
		}
	}
	return false
}
