package gateway

import (
	"time"

	"github.com/code-payments/compressed-wallet/pkg/config"
	"github.com/code-payments/compressed-wallet/pkg/config/env"
	"github.com/code-payments/compressed-wallet/pkg/config/memory"
	"github.com/code-payments/compressed-wallet/pkg/config/wrapper"
)

const (
	envConfigPrefix = "WALLET_GATEWAY_"

	AirdropsPerHourConfigEnvName = envConfigPrefix + "AIRDROPS_PER_HOUR"
	defaultAirdropsPerHour       = 5

	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0

	TransferMemoConfigEnvName = envConfigPrefix + "TRANSFER_MEMO"
	defaultTransferMemo       = ""

	LookupTableTTLConfigEnvName = envConfigPrefix + "LOOKUP_TABLE_TTL"
	defaultLookupTableTTL       = 10 * time.Minute
)

type conf struct {
	airdropsPerHour  config.Uint64
	computeUnitPrice config.Uint64
	transferMemo     config.String
	lookupTableTTL   config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			airdropsPerHour:  env.NewUint64Config(AirdropsPerHourConfigEnvName, defaultAirdropsPerHour),
			computeUnitPrice: env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			transferMemo:     env.NewStringConfig(TransferMemoConfigEnvName, defaultTransferMemo),
			lookupTableTTL:   env.NewDurationConfig(LookupTableTTLConfigEnvName, defaultLookupTableTTL),
		}
	}
}

type testOverrides struct {
	airdropsPerHour  uint64
	computeUnitPrice uint64
	transferMemo     string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			airdropsPerHour:  wrapper.NewUint64Config(memory.NewConfig(overrides.airdropsPerHour), defaultAirdropsPerHour),
			computeUnitPrice: wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitPrice), defaultComputeUnitPrice),
			transferMemo:     wrapper.NewStringConfig(memory.NewConfig(overrides.transferMemo), defaultTransferMemo),
			lookupTableTTL:   wrapper.NewDurationConfig(memory.NewConfig(defaultLookupTableTTL), defaultLookupTableTTL),
		}
	}
}
