package jobs

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yourusername/edgecard/internal/repository"
)

// Job names used across the pipeline
const (
	JobPullOddsHourly    = "pull_odds_hourly"
	JobSettleGameResults = "settle_game_results"
	JobSettlePendingCard = "settle_pending_cards"
	JobKeyAudit          = "job_key_audit"
)

// ModelJobName returns the fan-out job name for a sport (e.g. run_nhl_model)
func ModelJobName(sport string) string {
	return fmt.Sprintf("run_%s_model", strings.ToLower(sport))
}

// HourlyOddsKey builds odds|hourly|YYYY-MM-DD|HH for the configured
// timezone's calendar date and hour bucket.
func HourlyOddsKey(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return fmt.Sprintf("odds|hourly|%s|%02d", local.Format("2006-01-02"), local.Hour())
}

// FixedModelKey builds <sport>|fixed|YYYY-MM-DD|HHmm for a fixed window.
// The window is the configured HH:MM slot, not the dispatch instant, so
// catch-up dispatches share the key with the on-time dispatch.
func FixedModelKey(sport string, day time.Time, loc *time.Location, window string) string {
	local := day.In(loc)
	return fmt.Sprintf("%s|fixed|%s|%s", strings.ToLower(sport), local.Format("2006-01-02"), strings.Replace(window, ":", "", 1))
}

// TMinusModelKey builds <sport>|tminus|<game_id>|<minutes>
func TMinusModelKey(sport, gameID string, minutes int) string {
	return fmt.Sprintf("%s|tminus|%s|%d", strings.ToLower(sport), gameID, minutes)
}

// DailyKey builds <job>|daily|YYYY-MM-DD
func DailyKey(job string, now time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s|daily|%s", job, now.In(loc).Format("2006-01-02"))
}

// FPLDeadlineKey builds fpl|deadline|GW<N>|T-<N>h
func FPLDeadlineKey(gameweek, hoursBefore int) string {
	return fmt.Sprintf("fpl|deadline|GW%d|T-%dh", gameweek, hoursBefore)
}

// Authoritative job-key formats. The audit job checks stored keys against
// these; keys under the test prefix are allowed but exempt from the strict
// format check.
var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^odds\|hourly\|\d{4}-\d{2}-\d{2}\|\d{2}$`),
	regexp.MustCompile(`^[a-z0-9_]+\|fixed\|\d{4}-\d{2}-\d{2}\|\d{4}$`),
	regexp.MustCompile(`^[a-z0-9_]+\|tminus\|game-[a-z0-9_]+-[A-Za-z0-9_-]+\|\d+$`),
	regexp.MustCompile(`^[a-z0-9_]+\|daily\|\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^fpl\|deadline\|GW\d+\|T-\d+h$`),
}

const testKeyPrefix = "odds|hourly|test"

// IsTestKey reports whether a key is an ad-hoc/dev key
func IsTestKey(key string) bool {
	return strings.HasPrefix(key, testKeyPrefix)
}

// ValidKeyFormat reports whether a key matches one of the documented
// patterns. Test keys pass by exemption.
func ValidKeyFormat(key string) bool {
	if IsTestKey(key) {
		return true
	}
	for _, pattern := range keyPatterns {
		if pattern.MatchString(key) {
			return true
		}
	}
	return false
}

// AuditReport summarizes a key-format audit pass
type AuditReport struct {
	Checked    int      `json:"checked"`
	TestExempt int      `json:"test_exempt"`
	Invalid    []string `json:"invalid"`
}

// AuditKeys validates recent job keys against the documented formats.
// Null keys are legal (some jobs run keyless) and are not counted.
func AuditKeys(recent []repository.RecentJobKey) *AuditReport {
	report := &AuditReport{}
	for _, rk := range recent {
		if rk.JobKey == nil {
			continue
		}
		report.Checked++
		key := *rk.JobKey
		if IsTestKey(key) {
			report.TestExempt++
			continue
		}
		if !ValidKeyFormat(key) {
			report.Invalid = append(report.Invalid, fmt.Sprintf("%s: %s", rk.JobName, key))
		}
	}
	return report
}
