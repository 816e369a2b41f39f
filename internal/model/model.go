// Package model defines the core data structures for the l2-router-bot.
package model

import (
	"errors"
	"math/big"
)

// Sentinel errors for the routing core. Handlers translate these into HTTP
// status codes; everything else is treated as an internal failure.
var (
	// ErrInvalidInput marks a malformed address or non-positive amount,
	// rejected before any network I/O.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedNetwork marks a dispatch against a network name that is
	// not present in the registry.
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrNoViableRoute is returned by route-and-send when estimation failed
	// on every configured network.
	ErrNoViableRoute = errors.New("no viable route")

	// ErrMissingCredential marks a dispatcher constructed without a signing
	// key. It is a configuration error, never a per-request one.
	ErrMissingCredential = errors.New("missing signing credential")

	// ErrDispatchFailed wraps any RPC or signing failure after a network has
	// been chosen. Dispatches are never retried.
	ErrDispatchFailed = errors.New("dispatch failed")
)

// FeeEstimate is the per-network result of a transfer cost estimation.
// Exactly one of the two shapes is populated: a successful estimate carries
// the gas figures, a failed one carries only Error.
type FeeEstimate struct {
	// GasPriceWei is the network's suggested gas price at estimation time.
	GasPriceWei *big.Int `json:"gas_price_wei,omitempty"`

	// EstimatedGas is the gas limit reported for the candidate transfer.
	EstimatedGas uint64 `json:"estimated_gas,omitempty"`

	// TotalFeeWei is GasPriceWei * EstimatedGas, exact integer arithmetic.
	TotalFeeWei *big.Int `json:"total_fee_wei,omitempty"`

	// TotalFeeNative is the fee converted to the native unit (ETH).
	TotalFeeNative string `json:"total_fee_native,omitempty"`

	// TotalFeeUSD is present only when a USD quote was requested and the
	// price oracle had one. Its absence is not an error.
	TotalFeeUSD *float64 `json:"total_fee_usd,omitempty"`

	// Error holds the per-network failure message. A set Error means the
	// network could not be estimated; the remaining fields are zero.
	Error string `json:"error,omitempty"`
}

// Failed reports whether this estimate recorded a per-network failure.
func (e FeeEstimate) Failed() bool {
	return e.Error != ""
}

// NewFailedEstimate records a per-network failure as data. Estimation of the
// sibling networks continues regardless.
func NewFailedEstimate(err error) FeeEstimate {
	return FeeEstimate{Error: err.Error()}
}
