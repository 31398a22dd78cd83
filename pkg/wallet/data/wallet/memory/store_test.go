package memory

import (
	"testing"

	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet/tests"
)

func TestWalletMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}

	tests.RunTests(t, testStore, teardown)
}
