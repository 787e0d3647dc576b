// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// Config mirrors the environment variables documented for the service.
type Config struct {
	RPCURL          string `envconfig:"RPC_URL" required:"true"`
	WSURL           string `envconfig:"WS_URL" required:"true"`
	MongoURI        string `envconfig:"MONGO_URI" required:"true"`
	MongoDB         string `envconfig:"MONGO_DB" required:"true"`
	RaydiumProgram  string `envconfig:"RAYDIUM_PROGRAM_ID" required:"true"`
	RaydiumCPProgra string `envconfig:"RAYDIUM_CP_PROGRAM_ID" required:"true"`
	PrivateKey      string `envconfig:"PRIVATE_KEY"`
	AmmConfigIndex  uint16 `envconfig:"AMM_CONFIG_INDEX" default:"0"`
	LogLevel        string `envconfig:"RUST_LOG" default:"info"`
	AppHost         string `envconfig:"APP_HOST" default:"0.0.0.0"`
	AppPort         int    `envconfig:"APP_PORT" default:"8080"`

	// JitoEndpoint, when set, routes developer-mode sends through the
	// MEV-protected bundle path instead of a plain sendTransaction call.
	JitoEndpoint string `envconfig:"JITO_ENDPOINT"`
	// RPCRequestsPerSecond bounds outbound RPC call rate (account loader,
	// pool sync, position discovery all share this budget).
	RPCRequestsPerSecond int `envconfig:"RPC_REQUESTS_PER_SECOND" default:"20"`
}

// Load reads and validates configuration from the process environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, apperr.New(apperr.CodeConfig, fmt.Sprintf("load config: %v", err))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports a Config error for any impossible or missing value that
// envconfig's struct tags alone cannot catch.
func (c *Config) Validate() error {
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return apperr.New(apperr.CodeConfig, fmt.Sprintf("invalid APP_PORT: %d", c.AppPort))
	}
	if c.RPCRequestsPerSecond <= 0 {
		return apperr.New(apperr.CodeConfig, "RPC_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

// DeveloperModeEnabled reports whether a process-local signing key was
// supplied. Production deployments must leave PRIVATE_KEY unset.
func (c *Config) DeveloperModeEnabled() bool {
	return c.PrivateKey != ""
}
