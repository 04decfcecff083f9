// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent calendar-day drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Resolve the rules document (CLEARWATER_RULES_JSON or defaults).
//  5. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"clearwater/internal/types"
)

// LoadConfig loads and validates the Clearwater configuration from the
// environment. Any missing required value, malformed duration, or invalid
// rules document is returned as an error; callers are expected to treat
// that as fatal.
func LoadConfig() (*Config, error) {
	// Step 1: all date arithmetic in the engine is calendar-day math in
	// UTC; a process-local timezone would silently shift day boundaries.
	time.Local = time.UTC

	// Step 2: .env is a local development convenience only.
	_ = godotenv.Load()

	// Step 3: populate from the environment.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			"processing environment configuration", err)
	}

	// Step 4: rules document.
	if cfg.RulesJSON != "" {
		rules, err := ParseRules(cfg.RulesJSON)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	} else {
		cfg.Rules = DefaultRules()
	}

	// Step 5: struct-level validation.
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("configuration validation failed: %v", err), err)
	}

	return &cfg, nil
}
