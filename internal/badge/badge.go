// Package badge maps risk tiers onto the small persistent status indicator
// the host UI shows per tab. The projection is a pure function of the latest
// verdict for a page load; it never aggregates across loads.
package badge

import "github.com/phishguard/phishguard/internal/model"

// Badge is the {symbol, color} pair pushed to the host's indicator surface.
type Badge struct {
	// Symbol is the short indicator text, at most a couple of characters.
	Symbol string `json:"symbol"`

	// Color is the background color as a CSS hex string.
	Color string `json:"color"`
}

// Idle is the badge for a load that has not been classified, either because
// classification has not happened yet or because the oracle call failed.
// An unscored load is never presented as safe.
var Idle = Badge{Symbol: "", Color: "#334155"}

// tierBadges is the fixed tier projection.
var tierBadges = map[model.Tier]Badge{
	model.TierSafe:       {Symbol: "✓", Color: "#16a34a"},
	model.TierSuspicious: {Symbol: "!", Color: "#d97706"},
	model.TierPhishing:   {Symbol: "‼", Color: "#dc2626"},
}

// ForTier returns the badge for a tier. Unknown tiers project to Idle.
func ForTier(tier model.Tier) Badge {
	if b, ok := tierBadges[tier]; ok {
		return b
	}
	return Idle
}

// Surface is the host indicator surface the coordinator drives.
// Implementations apply badges per tab and never block.
type Surface interface {
	// Set applies the badge to the given tab.
	Set(tabID string, b Badge)

	// Reset returns the tab's badge to the idle state.
	Reset(tabID string)
}
