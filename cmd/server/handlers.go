package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
	"github.com/karthikeyanvcb/l2-router-bot/internal/otel"
	"github.com/karthikeyanvcb/l2-router-bot/internal/route"
)

// EstimateRequest is the body for /estimate, /route and /route-and-send.
type EstimateRequest struct {
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	AmountETH   decimal.Decimal `json:"amount_eth"`
	IncludeUSD  *bool           `json:"include_usd"`
}

// includeUSD defaults to true when the field is omitted.
func (r EstimateRequest) includeUSD() bool {
	return r.IncludeUSD == nil || *r.IncludeUSD
}

// SendRequest is the body for /send.
type SendRequest struct {
	Network     string          `json:"network"`
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	AmountETH   decimal.Decimal `json:"amount_eth"`
}

// RouteResponse is the body returned by /route.
type RouteResponse struct {
	ChosenNetwork *string                      `json:"chosen_network"`
	Costs         map[string]model.FeeEstimate `json:"costs"`
}

// SendResponse is the body returned by /send.
type SendResponse struct {
	TxHash string `json:"tx_hash"`
}

// RouteAndSendResponse is the body returned by /route-and-send.
type RouteAndSendResponse struct {
	Network string                       `json:"network"`
	TxHash  string                       `json:"tx_hash"`
	Costs   map[string]model.FeeEstimate `json:"costs"`
}

// NetworkInfo is the per-network entry returned by /networks.
type NetworkInfo struct {
	RPCURL       string `json:"rpc_url"`
	ChainID      uint64 `json:"chain_id"`
	NativeSymbol string `json:"native_symbol"`
}

// handleNetworks returns the configured networks keyed by name.
func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := make(map[string]NetworkInfo, s.registry.Len())
	for _, n := range s.registry.All() {
		snapshot[n.Name] = NetworkInfo{
			RPCURL:       n.RPCURL,
			ChainID:      n.ChainID,
			NativeSymbol: n.NativeSymbol,
		}
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleEstimate estimates transfer costs across all networks.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := s.decodeEstimateRequest(w, r, "estimate")
	if !ok {
		return
	}

	ctx, span := otel.Tracer().Start(r.Context(), "estimate")
	defer span.End()

	costs, err := s.estimate(ctx, req)
	if err != nil {
		otel.RecordError(ctx, err)
		s.errorResponse(w, "estimate", statusForError(err), err.Error())
		return
	}

	s.observe("estimate", "success", start)
	s.writeJSON(w, http.StatusOK, costs)
}

// handleRoute estimates transfer costs and selects the cheapest network.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := s.decodeEstimateRequest(w, r, "route")
	if !ok {
		return
	}

	ctx, span := otel.Tracer().Start(r.Context(), "route")
	defer span.End()

	costs, err := s.estimate(ctx, req)
	if err != nil {
		otel.RecordError(ctx, err)
		s.errorResponse(w, "route", statusForError(err), err.Error())
		return
	}

	resp := RouteResponse{Costs: costs}
	if chosen, found := route.Cheapest(s.registry.Names(), costs); found {
		resp.ChosenNetwork = &chosen
		if s.metrics != nil {
			s.metrics.chosenNetwork.WithLabelValues(chosen).Inc()
		}
	}

	s.observe("route", "success", start)
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSend signs and broadcasts a transfer on a specific network.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !s.admit(w, r, "send") {
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "send", http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AmountETH.Sign() <= 0 {
		s.errorResponse(w, "send", http.StatusBadRequest, "amount_eth must be greater than zero")
		return
	}

	if s.dispatcher == nil {
		s.errorResponse(w, "send", http.StatusInternalServerError, model.ErrMissingCredential.Error())
		return
	}

	ctx, span := otel.Tracer().Start(r.Context(), "send")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	txHash, err := s.dispatcher.SendTransfer(ctx, req.Network, req.FromAddress, req.ToAddress, ethToWei(req.AmountETH))
	if err != nil {
		otel.RecordError(ctx, err)
		s.errorResponse(w, "send", statusForError(err), err.Error())
		return
	}

	s.observe("send", "success", start)
	s.writeJSON(w, http.StatusOK, SendResponse{TxHash: txHash})
}

// handleRouteAndSend selects the cheapest network and broadcasts the transfer
// there. An all-failure estimation yields no viable route and no dispatch is
// attempted. A dispatch failure after selection is surfaced as-is; there is no
// fallback to the second-cheapest network.
func (s *Server) handleRouteAndSend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := s.decodeEstimateRequest(w, r, "route-and-send")
	if !ok {
		return
	}

	if s.dispatcher == nil {
		s.errorResponse(w, "route-and-send", http.StatusInternalServerError, model.ErrMissingCredential.Error())
		return
	}

	ctx, span := otel.Tracer().Start(r.Context(), "route_and_send")
	defer span.End()

	costs, err := s.estimate(ctx, req)
	if err != nil {
		otel.RecordError(ctx, err)
		s.errorResponse(w, "route-and-send", statusForError(err), err.Error())
		return
	}

	chosen, found := route.Cheapest(s.registry.Names(), costs)
	if !found {
		otel.RecordError(ctx, model.ErrNoViableRoute)
		s.errorResponse(w, "route-and-send", http.StatusInternalServerError, model.ErrNoViableRoute.Error()+": estimation failed on every network")
		return
	}
	if s.metrics != nil {
		s.metrics.chosenNetwork.WithLabelValues(chosen).Inc()
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	txHash, err := s.dispatcher.SendTransfer(sendCtx, chosen, req.FromAddress, req.ToAddress, ethToWei(req.AmountETH))
	if err != nil {
		otel.RecordError(ctx, err)
		s.errorResponse(w, "route-and-send", statusForError(err), err.Error())
		return
	}

	s.observe("route-and-send", "success", start)
	s.writeJSON(w, http.StatusOK, RouteAndSendResponse{
		Network: chosen,
		TxHash:  txHash,
		Costs:   costs,
	})
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":   "operational",
		"uptime":   time.Since(startTime).String(),
		"version":  "1.0.0",
		"networks": s.registry.Names(),
		"configuration": map[string]interface{}{
			"circuit_breaker": s.config.EnableCircuitBreaker,
			"metrics":         s.config.EnableMetrics,
			"send_enabled":    s.dispatcher != nil,
		},
	}

	if s.breaker != nil {
		circuits := make(map[string]string, s.registry.Len())
		for _, name := range s.registry.Names() {
			circuits[name] = s.breaker.StateOf(name).String()
		}
		status["circuits"] = circuits
	}

	s.writeJSON(w, http.StatusOK, status)
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.config.EnableMetrics {
		http.Error(w, "Metrics disabled", http.StatusServiceUnavailable)
		return
	}
	promhttp.Handler().ServeHTTP(w, r)
}

// estimate runs the fan-out under the request deadline and records the
// per-network outcome metrics.
func (s *Server) estimate(ctx context.Context, req EstimateRequest) (map[string]model.FeeEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	costs, err := s.estimator.EstimateTransferCosts(ctx, req.FromAddress, req.ToAddress, ethToWei(req.AmountETH), req.includeUSD())
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		for network, est := range costs {
			if est.Failed() {
				s.metrics.estimateErrors.WithLabelValues(network).Inc()
				continue
			}
			fee, _ := new(big.Float).SetInt(est.TotalFeeWei).Float64()
			s.metrics.lastFeeWei.WithLabelValues(network).Set(fee)
		}
	}
	return costs, nil
}

// decodeEstimateRequest parses and validates the shared estimate-shaped body,
// applying rate limiting and method checks. It reports whether the caller
// should proceed.
func (s *Server) decodeEstimateRequest(w http.ResponseWriter, r *http.Request, endpoint string) (EstimateRequest, bool) {
	var req EstimateRequest
	if !s.admit(w, r, endpoint) {
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.AmountETH.Sign() <= 0 {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "amount_eth must be greater than zero")
		return req, false
	}
	return req, true
}

// admit enforces the POST method and the optional rate limit.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if s.rateLimit != nil && !s.rateLimit.Allow() {
		s.errorResponse(w, endpoint, http.StatusTooManyRequests, "Rate limit exceeded")
		return false
	}
	return true
}

// ethToWei converts a decimal ETH amount to integer wei, truncating anything
// below one wei.
func ethToWei(amountETH decimal.Decimal) *big.Int {
	return amountETH.Shift(18).BigInt()
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrUnsupportedNetwork):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes a response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Error encoding response: %v", err)
	}
}

// errorResponse returns a JSON error body and records the failure in metrics.
func (s *Server) errorResponse(w http.ResponseWriter, endpoint string, status int, msg string) {
	logrus.Warn(msg)
	if s.metrics != nil {
		s.metrics.requestCounter.WithLabelValues(endpoint, "error").Inc()
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// observe records a successful request in metrics.
func (s *Server) observe(endpoint, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.requestCounter.WithLabelValues(endpoint, status).Inc()
	s.metrics.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
