package resultsapi

import (
	"strings"
)

// teamAliases maps short display names to the canonical forms used by the
// results source. Both directions are tried during comparison.
var teamAliases = map[string]string{
	"la kings":      "los angeles kings",
	"la clippers":   "los angeles clippers",
	"la lakers":     "los angeles lakers",
	"ny rangers":    "new york rangers",
	"ny islanders":  "new york islanders",
	"ny knicks":     "new york knicks",
	"nj devils":     "new jersey devils",
	"tb lightning":  "tampa bay lightning",
	"vegas":         "vegas golden knights",
	"montreal":      "montreal canadiens",
	"utah":          "utah hockey club",
	"sj sharks":     "san jose sharks",
	"gs warriors":   "golden state warriors",
	"okc thunder":   "oklahoma city thunder",
	"san antonio":   "san antonio spurs",
	"philly flyers": "philadelphia flyers",
}

// normalizeTeamName lowercases, trims, and resolves known aliases
func normalizeTeamName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.Join(strings.Fields(normalized), " ")
	if canonical, ok := teamAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// TeamsMatch compares two team display names: normalized exact match,
// substring either way, or per-token containment (every token of the
// shorter name appears in the longer one).
func TeamsMatch(a, b string) bool {
	na, nb := normalizeTeamName(a), normalizeTeamName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	shorter, longer := na, nb
	if len(strings.Fields(nb)) < len(strings.Fields(na)) {
		shorter, longer = nb, na
	}
	longerTokens := strings.Fields(longer)
	for _, token := range strings.Fields(shorter) {
		if !containsToken(longerTokens, token) {
			return false
		}
	}
	return true
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}

// FindGame locates the scoreboard row whose home and away sides both match
// our display names, or nil when no row matches.
func FindGame(games []ScoreboardGame, homeTeam, awayTeam string) *ScoreboardGame {
	for i := range games {
		if TeamsMatch(games[i].HomeTeam, homeTeam) && TeamsMatch(games[i].AwayTeam, awayTeam) {
			return &games[i]
		}
	}
	return nil
}
