// Package registry holds the static definitions of the supported L2 networks.
package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
)

// Network describes a single supported chain. Values are resolved once at
// startup and treated as immutable afterwards.
type Network struct {
	Name         string `json:"name"`
	RPCURL       string `json:"rpc_url"`
	ChainID      uint64 `json:"chain_id"`
	NativeSymbol string `json:"native_symbol"`
}

// defaultNetworks lists the built-in chains in declaration order. The order
// matters: it is the enumeration order used when breaking fee ties, so the
// registry keeps a slice rather than a bare map.
var defaultNetworks = []Network{
	{Name: "arbitrum", RPCURL: "https://arb1.arbitrum.io/rpc", ChainID: 42161, NativeSymbol: "ETH"},
	{Name: "optimism", RPCURL: "https://mainnet.optimism.io", ChainID: 10, NativeSymbol: "ETH"},
	{Name: "base", RPCURL: "https://mainnet.base.org", ChainID: 8453, NativeSymbol: "ETH"},
}

// Registry is an immutable snapshot of the configured networks.
type Registry struct {
	networks []Network
	byName   map[string]Network
}

// Load builds a Registry from the built-in defaults, applying per-network RPC
// endpoint overrides from environment variables named <NAME>_RPC_URL
// (e.g. ARBITRUM_RPC_URL). A missing override falls back to the default.
func Load() Registry {
	networks := make([]Network, len(defaultNetworks))
	copy(networks, defaultNetworks)

	for i := range networks {
		envVar := strings.ToUpper(networks[i].Name) + "_RPC_URL"
		if override := os.Getenv(envVar); override != "" {
			networks[i].RPCURL = override
		}
	}
	return New(networks)
}

// New builds a Registry from an explicit network list, preserving its order.
func New(networks []Network) Registry {
	byName := make(map[string]Network, len(networks))
	for _, n := range networks {
		byName[n.Name] = n
	}
	return Registry{networks: networks, byName: byName}
}

// Names returns the network names in registry order.
func (r Registry) Names() []string {
	names := make([]string, len(r.networks))
	for i, n := range r.networks {
		names[i] = n.Name
	}
	return names
}

// All returns the networks in registry order.
func (r Registry) All() []Network {
	networks := make([]Network, len(r.networks))
	copy(networks, r.networks)
	return networks
}

// Lookup resolves a network by name. An unknown name yields
// model.ErrUnsupportedNetwork.
func (r Registry) Lookup(name string) (Network, error) {
	n, ok := r.byName[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q", model.ErrUnsupportedNetwork, name)
	}
	return n, nil
}

// Len returns the number of configured networks.
func (r Registry) Len() int {
	return len(r.networks)
}
