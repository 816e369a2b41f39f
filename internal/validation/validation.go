// Package validation rejects malformed transfer input before any RPC work.
package validation

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
)

// Addresses validates both account identifiers of a transfer and returns
// their canonical forms. The validation rules are chain-agnostic across the
// configured networks. A malformed address, or a mixed-case address whose
// EIP-55 checksum does not hold, yields model.ErrInvalidInput.
func Addresses(fromAddr, toAddr string) (common.Address, common.Address, error) {
	if !validAddress(fromAddr) {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: invalid sender address %q", model.ErrInvalidInput, fromAddr)
	}
	if !validAddress(toAddr) {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: invalid recipient address %q", model.ErrInvalidInput, toAddr)
	}
	return common.HexToAddress(fromAddr), common.HexToAddress(toAddr), nil
}

// validAddress accepts uniform-case hex addresses as checksum-free; a
// mixed-case address carries an EIP-55 checksum and must match it.
func validAddress(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return common.HexToAddress(addr).Hex() == "0x"+hex
}

// Amount validates a wei amount for estimation: it must be present and
// non-negative.
func Amount(amountWei *big.Int) error {
	if amountWei == nil || amountWei.Sign() < 0 {
		return fmt.Errorf("%w: amount must be a non-negative wei value", model.ErrInvalidInput)
	}
	return nil
}
