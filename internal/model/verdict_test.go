package model

import (
	"encoding/json"
	"testing"
)

// TestTierString tests the String method of Tier.
func TestTierString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		tier     Tier
		expected string
	}{
		{TierSafe, "safe"},
		{TierSuspicious, "suspicious"},
		{TierPhishing, "phishing"},
		{Tier(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.tier.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.tier.String(), tc.expected)
			}
		})
	}
}

// TestTierForPercent tests the tier thresholds, including every boundary.
func TestTierForPercent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		percent  int
		expected Tier
	}{
		{"zero is safe", 0, TierSafe},
		{"39 is safe", 39, TierSafe},
		{"40 is suspicious", 40, TierSuspicious},
		{"69 is suspicious", 69, TierSuspicious},
		{"70 is phishing", 70, TierPhishing},
		{"100 is phishing", 100, TierPhishing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := TierForPercent(tc.percent); got != tc.expected {
				t.Errorf("TierForPercent(%d) = %v, expected %v", tc.percent, got, tc.expected)
			}
		})
	}
}

// TestTierOrdering tests that tiers are ordered by severity.
func TestTierOrdering(t *testing.T) {
	t.Parallel()

	if TierSafe >= TierSuspicious {
		t.Error("expected TierSafe < TierSuspicious")
	}
	if TierSuspicious >= TierPhishing {
		t.Error("expected TierSuspicious < TierPhishing")
	}
}

// TestTierJSONRoundTrip tests that Tier serializes as its string form.
func TestTierJSONRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("marshals as string", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(TierPhishing)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `"phishing"` {
			t.Errorf("got %s, expected %q", data, "phishing")
		}
	})

	t.Run("unmarshals known tiers", func(t *testing.T) {
		t.Parallel()

		var tier Tier
		if err := json.Unmarshal([]byte(`"suspicious"`), &tier); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tier != TierSuspicious {
			t.Errorf("got %v, expected TierSuspicious", tier)
		}
	})

	t.Run("unknown tier decodes as safe", func(t *testing.T) {
		t.Parallel()

		var tier Tier
		if err := json.Unmarshal([]byte(`"critical"`), &tier); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tier != TierSafe {
			t.Errorf("got %v, expected TierSafe", tier)
		}
	})
}
