package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/compressed-wallet/pkg/config"
)

func TestEnvConfig(t *testing.T) {
	ctx := context.Background()

	const key = "WALLET_ENV_CONFIG_TEST_VAR"

	v, err := NewConfig(key).Get(ctx)
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
	assert.Equal(t, 2*time.Second, NewDurationConfig(key, 2*time.Second).Get(ctx))

	t.Setenv(key, "15s")

	v, err = NewConfig(key).Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []byte("15s"), v)
	assert.Equal(t, 15*time.Second, NewDurationConfig(key, 2*time.Second).Get(ctx))
	assert.Equal(t, "15s", NewStringConfig(key, "").Get(ctx))

	// Unparseable values fall back to the default
	assert.EqualValues(t, 7, NewUint64Config(key, 7).Get(ctx))
	assert.True(t, NewBoolConfig(key, true).Get(ctx))
}

func TestEnvConfig_UpperCasesKey(t *testing.T) {
	t.Setenv("WALLET_ENV_CONFIG_CASE", "true")
	assert.True(t, NewBoolConfig("wallet_env_config_case", false).Get(context.Background()))
}
