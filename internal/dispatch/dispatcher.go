// Package dispatch builds, signs and broadcasts native transfers on a chosen
// network.
package dispatch

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/karthikeyanvcb/l2-router-bot/internal/chain"
	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
	"github.com/karthikeyanvcb/l2-router-bot/internal/registry"
	"github.com/karthikeyanvcb/l2-router-bot/internal/validation"
)

// Dispatcher signs and sends native transfers. The signing key is acquired at
// construction: a missing or unparsable key is a configuration error, never a
// per-request one. Key material is held in memory only and never logged.
type Dispatcher struct {
	registry registry.Registry
	dial     chain.Dialer
	key      *ecdsa.PrivateKey
}

// NewDispatcher creates a Dispatcher with the given hex-encoded private key.
func NewDispatcher(reg registry.Registry, dial chain.Dialer, privateKeyHex string) (*Dispatcher, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("%w: set PRIVATE_KEY or inject a key explicitly", model.ErrMissingCredential)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		// Deliberately not wrapping err: its text could echo key material.
		return nil, fmt.Errorf("%w: private key is not a valid hex-encoded ECDSA key", model.ErrMissingCredential)
	}
	return &Dispatcher{
		registry: reg,
		dial:     dial,
		key:      key,
	}, nil
}

// SendTransfer builds, signs and broadcasts a native transfer on the named
// network and returns the transaction hash as a hex string. RPC and signing
// failures wrap model.ErrDispatchFailed and are not retried.
func (d *Dispatcher) SendTransfer(ctx context.Context, networkName, fromAddr, toAddr string, amountWei *big.Int) (string, error) {
	network, err := d.registry.Lookup(networkName)
	if err != nil {
		return "", err
	}
	from, to, err := validation.Addresses(fromAddr, toAddr)
	if err != nil {
		return "", err
	}

	client, err := d.dial(ctx, network)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrDispatchFailed, err)
	}
	defer client.Close()

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("%w: error fetching nonce on %s: %v", model.ErrDispatchFailed, network.Name, err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: error fetching gas price on %s: %v", model.ErrDispatchFailed, network.Name, err)
	}

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: amountWei,
	})
	if err != nil {
		return "", fmt.Errorf("%w: error estimating gas on %s: %v", model.ErrDispatchFailed, network.Name, err)
	}

	chainID := new(big.Int).SetUint64(network.ChainID)
	tx, err := types.SignNewTx(d.key, types.LatestSignerForChainID(chainID), &types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    amountWei,
	})
	if err != nil {
		return "", fmt.Errorf("%w: error signing transaction on %s: %v", model.ErrDispatchFailed, network.Name, err)
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("%w: error broadcasting on %s: %v", model.ErrDispatchFailed, network.Name, err)
	}

	txHash := tx.Hash().Hex()
	logrus.WithFields(logrus.Fields{
		"network":   network.Name,
		"tx_hash":   txHash,
		"gas_limit": gasLimit,
		"nonce":     nonce,
	}).Info("Transfer broadcast")

	return txHash, nil
}
