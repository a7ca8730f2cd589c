package app

import (
	"github.com/spf13/viper"

	"github.com/code-payments/code-idl/pkg/solana"
)

// Config is the CLI configuration, read from a YAML file and the environment.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// RPCEndpoint is the Solana JSON RPC node used by commands that read
	// account state. Cluster monikers like devnet are accepted.
	RPCEndpoint string `mapstructure:"rpc_endpoint"`

	// StrictBool rejects boolean bytes other than 0 and 1 when decoding.
	StrictBool bool `mapstructure:"strict_bool"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = Config{
	LogLevel:    "warn",
	AppName:     "idl",
	RPCEndpoint: string(solana.EnvironmentProd),
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("app_name", "APP_NAME")
	_ = viper.BindEnv("rpc_endpoint", "RPC_ENDPOINT")
	_ = viper.BindEnv("strict_bool", "STRICT_BOOL")
	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")
}
