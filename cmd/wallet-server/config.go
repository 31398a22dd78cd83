package main

import (
	"encoding/base64"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	pg "github.com/code-payments/compressed-wallet/pkg/database/postgres"
	"github.com/code-payments/compressed-wallet/pkg/web/app"

	wallet_postgres_client "github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet/postgres"
)

const (
	defaultNetwork     = "devnet"
	defaultLoadTimeout = 30 * time.Second
)

type config struct {
	Network      string `mapstructure:"network"`
	HeliusApiKey string `mapstructure:"helius_api_key"`

	// Interval between wallet refresh runs. Zero uses the service default.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Timeout of the initial collection load. Wallets that fail to load here
	// are retried by the refresh service.
	LoadTimeout time.Duration `mapstructure:"load_timeout"`

	// Wallets are kept in memory when no database is configured
	Database *pg.Config `mapstructure:"database"`

	// Base64 encoded key used to seal secret keys at rest
	SealingKey string `mapstructure:"sealing_key"`
}

func decodeConfig(raw app.Config) (*config, error) {
	conf := &config{
		Network:     defaultNetwork,
		LoadTimeout: defaultLoadTimeout,
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           conf,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(raw)); err != nil {
		return nil, errors.Wrap(err, "error decoding app config")
	}

	if conf.Database != nil && len(conf.SealingKey) == 0 {
		return nil, errors.New("sealing_key is required when a database is configured")
	}
	return conf, nil
}

func (c *config) sealingKey() ([wallet_postgres_client.SealingKeySize]byte, error) {
	var key [wallet_postgres_client.SealingKeySize]byte

	decoded, err := base64.StdEncoding.DecodeString(c.SealingKey)
	if err != nil {
		return key, errors.Wrap(err, "invalid sealing_key")
	}
	if len(decoded) != len(key) {
		return key, errors.Errorf("sealing_key must be %d bytes", len(key))
	}

	copy(key[:], decoded)
	return key, nil
}
