// Package estimate implements the multi-network transfer fee estimation fan-out.
package estimate

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/karthikeyanvcb/l2-router-bot/internal/chain"
	"github.com/karthikeyanvcb/l2-router-bot/internal/circuitbreaker"
	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
	"github.com/karthikeyanvcb/l2-router-bot/internal/oracle"
	"github.com/karthikeyanvcb/l2-router-bot/internal/registry"
	"github.com/karthikeyanvcb/l2-router-bot/internal/validation"
)

// Estimator computes per-network fee estimates for a native transfer.
type Estimator struct {
	registry registry.Registry
	dial     chain.Dialer
	prices   oracle.PriceSource
	breaker  *circuitbreaker.Breaker
}

// New creates an Estimator over the given registry. The price source may be
// nil, in which case USD figures are never attached.
func New(reg registry.Registry, dial chain.Dialer, prices oracle.PriceSource) *Estimator {
	return &Estimator{
		registry: reg,
		dial:     dial,
		prices:   prices,
	}
}

// WithBreaker attaches a per-network circuit breaker and returns the estimator.
func (e *Estimator) WithBreaker(b *circuitbreaker.Breaker) *Estimator {
	e.breaker = b
	return e
}

// EstimateTransferCosts estimates the fee of sending amountWei from one
// address to another on every configured network. The result carries exactly
// one entry per network: a successful estimate or a recorded failure. A
// failing network never aborts its siblings; only malformed input fails the
// whole call, and it does so before any RPC work starts.
func (e *Estimator) EstimateTransferCosts(ctx context.Context, fromAddr, toAddr string, amountWei *big.Int, includeUSD bool) (map[string]model.FeeEstimate, error) {
	from, to, err := validation.Addresses(fromAddr, toAddr)
	if err != nil {
		return nil, err
	}
	if err := validation.Amount(amountWei); err != nil {
		return nil, err
	}

	networks := e.registry.All()

	// The USD quote is one oracle call per distinct native symbol for the
	// whole estimation, resolved concurrently with the RPC fan-out.
	priceCh := make(chan map[string]float64, 1)
	go func() {
		priceCh <- e.lookupPrices(ctx, networks, includeUSD)
	}()

	type networkResult struct {
		name     string
		estimate model.FeeEstimate
	}

	var wg sync.WaitGroup
	resultCh := make(chan networkResult, len(networks))

	for _, network := range networks {
		wg.Add(1)
		go func(network registry.Network) {
			defer wg.Done()
			resultCh <- networkResult{
				name:     network.Name,
				estimate: e.estimateNetwork(ctx, network, from, to, amountWei),
			}
		}(network)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	costs := make(map[string]model.FeeEstimate, len(networks))
	for result := range resultCh {
		costs[result.name] = result.estimate
	}

	prices := <-priceCh
	for _, network := range networks {
		est := costs[network.Name]
		if est.Failed() {
			continue
		}
		if price, ok := prices[network.NativeSymbol]; ok {
			feeNative, err := decimal.NewFromString(est.TotalFeeNative)
			if err == nil {
				usd := feeNative.InexactFloat64() * price
				est.TotalFeeUSD = &usd
				costs[network.Name] = est
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"networks":  len(networks),
		"succeeded": countSuccesses(costs),
	}).Debug("Estimation fan-out finished")

	return costs, nil
}

// estimateNetwork runs the gas price, nonce and gas limit queries for one
// network and computes the total fee. Any failure is recorded as data.
func (e *Estimator) estimateNetwork(ctx context.Context, network registry.Network, from, to common.Address, amountWei *big.Int) model.FeeEstimate {
	if e.breaker != nil && !e.breaker.Allow(network.Name) {
		return model.NewFailedEstimate(fmt.Errorf("circuit open for %s: endpoint marked unhealthy", network.Name))
	}

	estimate, err := e.queryNetwork(ctx, network, from, to, amountWei)
	if err != nil {
		if e.breaker != nil {
			e.breaker.RecordFailure(network.Name)
		}
		logrus.Warnf("Estimation failed for %s: %v", network.Name, err)
		return model.NewFailedEstimate(err)
	}

	if e.breaker != nil {
		e.breaker.RecordSuccess(network.Name)
	}
	return estimate
}

func (e *Estimator) queryNetwork(ctx context.Context, network registry.Network, from, to common.Address, amountWei *big.Int) (model.FeeEstimate, error) {
	client, err := e.dial(ctx, network)
	if err != nil {
		return model.FeeEstimate{}, err
	}
	defer client.Close()

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return model.FeeEstimate{}, fmt.Errorf("error fetching gas price: %w", err)
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return model.FeeEstimate{}, fmt.Errorf("error fetching nonce: %w", err)
	}

	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: amountWei,
	})
	if err != nil {
		return model.FeeEstimate{}, fmt.Errorf("error estimating gas: %w", err)
	}

	totalFeeWei := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))

	logrus.WithFields(logrus.Fields{
		"network":   network.Name,
		"gas_price": gasPrice.String(),
		"gas_limit": gasLimit,
		"nonce":     nonce,
	}).Debug("Network gas queries complete")

	return model.FeeEstimate{
		GasPriceWei:    gasPrice,
		EstimatedGas:   gasLimit,
		TotalFeeWei:    totalFeeWei,
		TotalFeeNative: decimal.NewFromBigInt(totalFeeWei, -18).String(),
	}, nil
}

// lookupPrices resolves the USD price once per distinct native symbol.
func (e *Estimator) lookupPrices(ctx context.Context, networks []registry.Network, includeUSD bool) map[string]float64 {
	prices := make(map[string]float64)
	if !includeUSD || e.prices == nil {
		return prices
	}
	for _, network := range networks {
		if _, done := prices[network.NativeSymbol]; done {
			continue
		}
		if price, ok := e.prices.USDPrice(ctx, network.NativeSymbol); ok {
			prices[network.NativeSymbol] = price
		}
	}
	return prices
}

func countSuccesses(costs map[string]model.FeeEstimate) int {
	n := 0
	for _, est := range costs {
		if !est.Failed() {
			n++
		}
	}
	return n
}
