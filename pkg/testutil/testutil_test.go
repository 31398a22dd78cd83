package testutil

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestGenerateSolanaKeys(t *testing.T) {
	keys := GenerateSolanaKeys(t, 3)
	assert.Len(t, keys, 3)
	assert.NotEqual(t, keys[0], keys[1])
	assert.NotEqual(t, keys[1], keys[2])
}

func TestAssertErrorCause(t *testing.T) {
	root := errors.New("root")
	AssertErrorCause(t, errors.Wrap(errors.Wrap(root, "inner"), "outer"), root)
}

func TestDisableLogging(t *testing.T) {
	var buf bytes.Buffer
	original := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(original)

	reset := DisableLogging()
	logrus.Info("hidden")
	reset()
	logrus.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}
