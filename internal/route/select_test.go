package route

import (
	"math/big"
	"testing"

	"github.com/karthikeyanvcb/l2-router-bot/internal/model"
)

// registryOrder mirrors the default registry declaration order.
var registryOrder = []string{"arbitrum", "optimism", "base"}

func success(feeWei int64) model.FeeEstimate {
	return model.FeeEstimate{
		TotalFeeWei: big.NewInt(feeWei),
	}
}

func failure(msg string) model.FeeEstimate {
	return model.FeeEstimate{Error: msg}
}

func TestCheapest(t *testing.T) {
	tests := []struct {
		name      string
		costs     map[string]model.FeeEstimate
		expected  string
		wantFound bool
	}{
		{
			name: "picks global minimum",
			costs: map[string]model.FeeEstimate{
				"arbitrum": success(100),
				"optimism": success(50),
				"base":     success(75),
			},
			expected:  "optimism",
			wantFound: true,
		},
		{
			name: "ignores failed entries",
			costs: map[string]model.FeeEstimate{
				"arbitrum": failure("RPC unavailable"),
				"optimism": success(90),
				"base":     success(120),
			},
			expected:  "optimism",
			wantFound: true,
		},
		{
			name: "absent when all fail",
			costs: map[string]model.FeeEstimate{
				"arbitrum": failure("failed"),
				"optimism": failure("failed"),
			},
			wantFound: false,
		},
		{
			name:      "absent for empty map",
			costs:     map[string]model.FeeEstimate{},
			wantFound: false,
		},
		{
			name: "first in order wins ties",
			costs: map[string]model.FeeEstimate{
				"arbitrum": success(80),
				"optimism": success(80),
				"base":     success(200),
			},
			expected:  "arbitrum",
			wantFound: true,
		},
		{
			name: "tie between later entries goes to earlier one",
			costs: map[string]model.FeeEstimate{
				"arbitrum": failure("down"),
				"optimism": success(60),
				"base":     success(60),
			},
			expected:  "optimism",
			wantFound: true,
		},
		{
			name: "entries outside the enumeration order are ignored",
			costs: map[string]model.FeeEstimate{
				"arbitrum": success(100),
				"unknown":  success(1),
			},
			expected:  "arbitrum",
			wantFound: true,
		},
		{
			name: "entry with no fee recorded is skipped",
			costs: map[string]model.FeeEstimate{
				"arbitrum": {},
				"optimism": success(90),
			},
			expected:  "optimism",
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Cheapest(registryOrder, tt.costs)
			if found != tt.wantFound {
				t.Fatalf("found got = %v, want %v", found, tt.wantFound)
			}
			if found && got != tt.expected {
				t.Errorf("network got = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCheapestIsEquivalentToDroppingFailures(t *testing.T) {
	mixed := map[string]model.FeeEstimate{
		"arbitrum": failure("timeout"),
		"optimism": success(40),
		"base":     success(30),
	}
	onlySuccess := map[string]model.FeeEstimate{
		"optimism": success(40),
		"base":     success(30),
	}

	gotMixed, foundMixed := Cheapest(registryOrder, mixed)
	gotClean, foundClean := Cheapest(registryOrder, onlySuccess)

	if foundMixed != foundClean || gotMixed != gotClean {
		t.Errorf("mixed map selected (%v, %v), success-only map selected (%v, %v)",
			gotMixed, foundMixed, gotClean, foundClean)
	}
}

func TestCheapestHandlesLargeFees(t *testing.T) {
	// Values beyond int64 must still compare exactly.
	huge, ok := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
	if !ok {
		t.Fatal("failed to build big fee")
	}
	costs := map[string]model.FeeEstimate{
		"arbitrum": {TotalFeeWei: huge},
		"optimism": {TotalFeeWei: new(big.Int).Sub(huge, big.NewInt(1))},
	}

	got, found := Cheapest(registryOrder, costs)
	if !found || got != "optimism" {
		t.Errorf("got (%v, %v), want (optimism, true)", got, found)
	}
}
