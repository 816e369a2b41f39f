// Package route selects the cheapest network from a set of fee estimates.
package route

import (
	"math/big"

	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
)

// Cheapest returns the name of the network with the lowest total fee in wei
// among the successful estimates, iterating in the given enumeration order.
// Failed entries are skipped. The comparison is a strict less-than, so on a
// tie the network seen first in the order wins; passing the registry order
// makes the tie-break deterministic. The boolean is false when no successful
// estimate exists.
func Cheapest(order []string, costs map[string]model.FeeEstimate) (string, bool) {
	var (
		cheapestName string
		cheapestFee  *big.Int
	)

	for _, name := range order {
		est, ok := costs[name]
		if !ok || est.Failed() || est.TotalFeeWei == nil {
			continue
		}
		if cheapestFee == nil || est.TotalFeeWei.Cmp(cheapestFee) < 0 {
			cheapestFee = est.TotalFeeWei
			cheapestName = name
		}
	}

	return cheapestName, cheapestFee != nil
}
