package testutil

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCause verifies err is non-nil and unwraps to expected
func AssertErrorCause(t *testing.T, err, expected error) {
	require.Error(t, err)
	assert.Equal(t, expected, errors.Cause(err), err.Error())
}
