package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRegistryIdempotent(t *testing.T) {
	first := InitRegistry()
	second := InitRegistry()
	assert.Same(t, first, second)
}

func TestHandlerServesRecordedMetrics(t *testing.T) {
	RecordJobRun("pull_odds_hourly", "success")
	RecordIngest(3, 12)
	RecordContractViolation("nhl")
	RecordCardWritten("nhl", "nhl-goalie")
	RecordCardSettled("win")
	RecordCardsVoided(2)
	SetProviderQuota(480)
	WSConnectionOpened()
	defer WSConnectionClosed()
	ObserveRequestDuration("/api/cards", 0.012)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "edgecard_job_runs_total")
	assert.Contains(t, body, "edgecard_games_upserted_total")
	assert.Contains(t, body, "edgecard_contract_violations_total")
	assert.Contains(t, body, "edgecard_cards_written_total")
	assert.Contains(t, body, "edgecard_cards_settled_total")
	assert.Contains(t, body, "edgecard_provider_quota_remaining")
	assert.Contains(t, body, "edgecard_ws_connections_active")
}
