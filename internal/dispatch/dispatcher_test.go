package dispatch

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthikeyanvcb/l2-router-bot/internal/chain"
	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
	"github.com/karthikeyanvcb/l2-router-bot/internal/registry"
)

const (
	// Throwaway key, never funded anywhere.
	testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testFrom   = "0x742d35Cc6634C0532925A3B8D4C9dB96C4B4d8B6"
	testTo     = "0x53d284357ec70cE289D6D64134DfAc8E511c8a3D"
)

func testRegistry() registry.Registry {
	return registry.New([]registry.Network{
		{Name: "optimism", RPCURL: "http://optimism.invalid", ChainID: 10, NativeSymbol: "ETH"},
	})
}

// fakeClient records the transaction handed to SendTransaction.
type fakeClient struct {
	gasPrice *big.Int
	nonce    uint64
	gasLimit uint64
	sendErr  error
	sentTx   *types.Transaction
}

func (c *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.gasPrice), nil
}

func (c *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.nonce, nil
}

func (c *fakeClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.gasLimit, nil
}

func (c *fakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentTx = tx
	return nil
}

func (c *fakeClient) Close() {}

func dialerFor(client *fakeClient, dialErr error) chain.Dialer {
	return func(ctx context.Context, network registry.Network) (chain.Client, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return client, nil
	}
}

func TestNewDispatcher_MissingKey(t *testing.T) {
	_, err := NewDispatcher(testRegistry(), dialerFor(nil, nil), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMissingCredential)
}

func TestNewDispatcher_InvalidKey(t *testing.T) {
	_, err := NewDispatcher(testRegistry(), dialerFor(nil, nil), "zz-not-hex")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMissingCredential)
	assert.NotContains(t, err.Error(), "zz-not-hex", "error text must not echo key material")
}

func TestNewDispatcher_AcceptsPrefixedKey(t *testing.T) {
	_, err := NewDispatcher(testRegistry(), dialerFor(nil, nil), "0x"+testKeyHex)
	assert.NoError(t, err)
}

func TestSendTransfer_UnsupportedNetwork(t *testing.T) {
	d, err := NewDispatcher(testRegistry(), dialerFor(nil, nil), testKeyHex)
	require.NoError(t, err)

	_, err = d.SendTransfer(context.Background(), "zksync", testFrom, testTo, big.NewInt(1))
	assert.ErrorIs(t, err, model.ErrUnsupportedNetwork)
}

func TestSendTransfer_InvalidAddress(t *testing.T) {
	d, err := NewDispatcher(testRegistry(), dialerFor(nil, nil), testKeyHex)
	require.NoError(t, err)

	_, err = d.SendTransfer(context.Background(), "optimism", "bogus", testTo, big.NewInt(1))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSendTransfer_BuildsSignsAndBroadcasts(t *testing.T) {
	client := &fakeClient{
		gasPrice: big.NewInt(1_500_000_000),
		nonce:    42,
		gasLimit: 21000,
	}
	d, err := NewDispatcher(testRegistry(), dialerFor(client, nil), testKeyHex)
	require.NoError(t, err)

	amount := big.NewInt(1_000_000_000_000_000) // 0.001 ETH
	txHash, err := d.SendTransfer(context.Background(), "optimism", testFrom, testTo, amount)
	require.NoError(t, err)

	require.NotNil(t, client.sentTx, "a signed transaction must be broadcast")
	tx := client.sentTx
	assert.Equal(t, tx.Hash().Hex(), txHash)
	assert.Equal(t, uint64(42), tx.Nonce())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Zero(t, tx.GasPrice().Cmp(big.NewInt(1_500_000_000)))
	assert.Zero(t, tx.Value().Cmp(amount))
	require.NotNil(t, tx.To())
	assert.Equal(t, common.HexToAddress(testTo), *tx.To())
	assert.Equal(t, big.NewInt(10), tx.ChainId(), "tx must be signed for the network's chain id")

	// The signature must recover to the configured key's address.
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(10)), tx)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, sender)
}

func TestSendTransfer_RPCFailureWrapsDispatchFailed(t *testing.T) {
	d, err := NewDispatcher(testRegistry(), dialerFor(nil, errors.New("connection refused")), testKeyHex)
	require.NoError(t, err)

	_, err = d.SendTransfer(context.Background(), "optimism", testFrom, testTo, big.NewInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDispatchFailed)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSendTransfer_BroadcastFailureWrapsDispatchFailed(t *testing.T) {
	client := &fakeClient{
		gasPrice: big.NewInt(100),
		nonce:    0,
		gasLimit: 21000,
		sendErr:  errors.New("nonce too low"),
	}
	d, err := NewDispatcher(testRegistry(), dialerFor(client, nil), testKeyHex)
	require.NoError(t, err)

	_, err = d.SendTransfer(context.Background(), "optimism", testFrom, testTo, big.NewInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDispatchFailed)
	assert.Contains(t, err.Error(), "nonce too low")
}
