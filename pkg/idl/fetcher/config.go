package fetcher

import (
	"time"

	"github.com/code-payments/code-idl/pkg/config"
	"github.com/code-payments/code-idl/pkg/config/env"
	"github.com/code-payments/code-idl/pkg/config/memory"
	"github.com/code-payments/code-idl/pkg/config/wrapper"
)

const (
	envConfigPrefix = "IDL_FETCHER_"

	commitmentConfigName = "COMMITMENT"
	defaultCommitment    = "confirmed"

	cacheBudgetConfigName = "CACHE_BUDGET_BYTES"
	defaultCacheBudget    = 16 * 1024 * 1024

	fetchTimeoutConfigName = "FETCH_TIMEOUT"
	defaultFetchTimeout    = 10 * time.Second

	requestsPerSecondConfigName = "REQUESTS_PER_SECOND"
	defaultRequestsPerSecond    = 50.0

	verboseCacheConfigName = "VERBOSE_CACHE"
	defaultVerboseCache    = false
)

type conf struct {
	commitment        config.String
	cacheBudget       config.Uint64
	fetchTimeout      config.Duration
	requestsPerSecond config.Float64
	verboseCache      config.Bool
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from IDL_FETCHER_* environment
// variables, such as IDL_FETCHER_COMMITMENT.
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		source := env.NewSource(envConfigPrefix)
		return &conf{
			commitment:        source.String(commitmentConfigName, defaultCommitment),
			cacheBudget:       source.Uint64(cacheBudgetConfigName, defaultCacheBudget),
			fetchTimeout:      source.Duration(fetchTimeoutConfigName, defaultFetchTimeout),
			requestsPerSecond: source.Float64(requestsPerSecondConfigName, defaultRequestsPerSecond),
			verboseCache:      source.Bool(verboseCacheConfigName, defaultVerboseCache),
		}
	}
}

type testOverrides struct {
	commitment        string
	cacheBudget       uint64
	fetchTimeout      time.Duration
	requestsPerSecond float64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			commitment:        wrapper.NewStringConfig(memory.NewConfig(overrides.commitment), defaultCommitment),
			cacheBudget:       wrapper.NewUint64Config(memory.NewConfig(overrides.cacheBudget), defaultCacheBudget),
			fetchTimeout:      wrapper.NewDurationConfig(memory.NewConfig(overrides.fetchTimeout), defaultFetchTimeout),
			requestsPerSecond: wrapper.NewFloat64Config(memory.NewConfig(overrides.requestsPerSecond), defaultRequestsPerSecond),
			verboseCache:      wrapper.NewBoolConfig(memory.NewConfig(true), defaultVerboseCache),
		}
	}
}
