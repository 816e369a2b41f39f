// Package chain wraps the per-network RPC client used for gas queries and
// transaction broadcast.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/karthikeyanvcb/l2-router-bot/internal/registry"
)

// Client is the subset of the go-ethereum client the router needs per network.
// ethclient.Client satisfies it; tests substitute fakes.
type Client interface {
	// SuggestGasPrice retrieves the currently suggested gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// PendingNonceAt returns the account nonce including pending transactions.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)

	// EstimateGas returns the gas limit needed to execute the given call.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)

	// SendTransaction broadcasts a signed transaction.
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// Close releases the underlying RPC connection.
	Close()
}

// Dialer opens a Client for a network. Injecting it keeps the estimator and
// dispatcher free of real RPC dependencies in tests.
type Dialer func(ctx context.Context, network registry.Network) (Client, error)

// NewDialer returns a Dialer backed by ethclient with a connection deadline.
func NewDialer(dialTimeout time.Duration) Dialer {
	return func(ctx context.Context, network registry.Network) (Client, error) {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		client, err := ethclient.DialContext(dialCtx, network.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("error connecting to %s RPC: %w", network.Name, err)
		}

		logrus.Debugf("Connected to %s RPC at %s", network.Name, network.RPCURL)
		return client, nil
	}
}
