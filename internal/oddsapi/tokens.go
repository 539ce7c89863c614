package oddsapi

import (
	"strings"

	"github.com/yourusername/edgecard/internal/config"
)

// TokensForFetch estimates the provider-token cost of one ingest pass over
// the active sports. The provider bills regions x markets per request, one
// request per sport. Used only for logging and budget checks.
func TokensForFetch(activeSports []config.SportConfig, regions string) int {
	regionCount := 0
	for _, r := range strings.Split(regions, ",") {
		if strings.TrimSpace(r) != "" {
			regionCount++
		}
	}
	if regionCount == 0 {
		regionCount = 1
	}

	total := 0
	for _, sport := range activeSports {
		markets := len(sport.Markets)
		if markets == 0 {
			markets = 1
		}
		total += regionCount * markets
	}
	return total
}
