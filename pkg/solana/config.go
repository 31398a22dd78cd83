package solana

import (
	"fmt"
	"strings"
)

// Network is a Solana cluster the wallets can operate against.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkMainnet Network = "mainnet"
)

// ParseNetwork returns the network with the given name. The boolean result is
// false when the name isn't a known network.
func ParseNetwork(name string) (Network, bool) {
	switch Network(strings.ToLower(strings.TrimSpace(name))) {
	case NetworkDevnet:
		return NetworkDevnet, true
	case NetworkMainnet:
		return NetworkMainnet, true
	}
	return NetworkDevnet, false
}

// HeliusEndpoint is the RPC endpoint serving both the regular and compression
// APIs for the network.
func (n Network) HeliusEndpoint(apiKey string) string {
	return fmt.Sprintf("https://%s.helius-rpc.com?api-key=%s", n, apiKey)
}

// ExplorerCluster is the value of the explorer's cluster query parameter.
func (n Network) ExplorerCluster() string {
	if n == NetworkMainnet {
		return "mainnet-beta"
	}
	return string(n)
}

func (n Network) String() string {
	return string(n)
}
