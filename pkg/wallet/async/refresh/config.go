package async_refresh

import (
	"time"

	"github.com/code-payments/compressed-wallet/pkg/config"
	"github.com/code-payments/compressed-wallet/pkg/config/env"
	"github.com/code-payments/compressed-wallet/pkg/config/memory"
	"github.com/code-payments/compressed-wallet/pkg/config/wrapper"
)

const (
	envConfigPrefix = "WALLET_REFRESH_SERVICE_"

	RunTimeoutConfigEnvName = envConfigPrefix + "RUN_TIMEOUT"
	defaultRunTimeout       = time.Minute

	MetricsIntervalConfigEnvName = envConfigPrefix + "METRICS_INTERVAL"
	defaultMetricsInterval       = 10 * time.Second
)

type conf struct {
	runTimeout      config.Duration
	metricsInterval config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			runTimeout:      env.NewDurationConfig(RunTimeoutConfigEnvName, defaultRunTimeout),
			metricsInterval: env.NewDurationConfig(MetricsIntervalConfigEnvName, defaultMetricsInterval),
		}
	}
}

type testOverrides struct {
	runTimeout      time.Duration
	metricsInterval time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			runTimeout:      wrapper.NewDurationConfig(memory.NewConfig(overrides.runTimeout), defaultRunTimeout),
			metricsInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.metricsInterval), defaultMetricsInterval),
		}
	}
}
