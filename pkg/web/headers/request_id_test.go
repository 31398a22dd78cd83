package headers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		seen, ok = GetRequestID(r.Context())
		require.True(t, ok)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeaderName))

	for _, tc := range []struct {
		provided string
		reused   bool
	}{
		{"abc-123", true},
		{"trace:1.2_3", true},
		{"has spaces", false},
		{"<script>", false},
		{strings.Repeat("a", maxRequestIDLength+1), false},
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeaderName, tc.provided)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if tc.reused {
			assert.Equal(t, tc.provided, seen)
		} else {
			assert.NotEqual(t, tc.provided, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		}
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeaderName))
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	_, ok := GetRequestID(context.Background())
	assert.False(t, ok)

	_, ok = GetRequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}
