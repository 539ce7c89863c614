package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
)

type fakeGameRepo struct {
	games        []*models.Game
	byID         map[string]*models.Game
	gotBoundary  time.Time
	boundaryErr  error
	upcomingErr  error
	upcomingSeen string
}

func (f *fakeGameRepo) Upsert(ctx context.Context, game *models.Game) error { return nil }

func (f *fakeGameRepo) GetByID(ctx context.Context, gameID string) (*models.Game, error) {
	if g, ok := f.byID[gameID]; ok {
		return g, nil
	}
	return nil, errors.New("game not found")
}

func (f *fakeGameRepo) GetUpcoming(ctx context.Context, sport string, within time.Duration, now time.Time) ([]*models.Game, error) {
	f.upcomingSeen = sport
	return f.games, f.upcomingErr
}

func (f *fakeGameRepo) GetFromBoundary(ctx context.Context, boundary time.Time) ([]*models.Game, error) {
	f.gotBoundary = boundary
	return f.games, f.boundaryErr
}

func (f *fakeGameRepo) GetPendingResults(ctx context.Context, lookback time.Duration, now time.Time) ([]*models.Game, error) {
	return nil, nil
}

func (f *fakeGameRepo) UpdateStatus(ctx context.Context, gameID, status string) error { return nil }

type fakeCardRepo struct {
	latest    []*models.CardPayload
	all       []*models.CardPayload
	latestFor string
	allFor    string
}

func (f *fakeCardRepo) PrepareModelAndCardWrite(ctx context.Context, gameID, modelVersion, cardType string) error {
	return nil
}
func (f *fakeCardRepo) InsertCardPayload(ctx context.Context, card *models.CardPayload) error {
	return nil
}
func (f *fakeCardRepo) InsertModelOutput(ctx context.Context, output *models.ModelOutput) error {
	return nil
}

func (f *fakeCardRepo) GetLatestPerGameType(ctx context.Context, gameID string, now time.Time) ([]*models.CardPayload, error) {
	f.latestFor = gameID
	return f.latest, nil
}

func (f *fakeCardRepo) GetAllCards(ctx context.Context, gameID string) ([]*models.CardPayload, error) {
	f.allFor = gameID
	return f.all, nil
}

func (f *fakeCardRepo) GetSettleable(ctx context.Context) ([]*repository.SettleableCard, error) {
	return nil, nil
}

type fakeResultRepo struct {
	ledger    []*repository.LedgerRow
	segments  []*models.TrackingStat
	gotFilter repository.LedgerFilter
}

func (f *fakeResultRepo) UpsertGameResult(ctx context.Context, result *models.GameResult) error {
	return nil
}
func (f *fakeResultRepo) GetGameResult(ctx context.Context, gameID string) (*models.GameResult, error) {
	return nil, errors.New("not found")
}
func (f *fakeResultRepo) MarkCardResult(ctx context.Context, cardID uuid.UUID, result string, pnlUnits decimal.Decimal, settledAt time.Time) (bool, error) {
	return false, nil
}
func (f *fakeResultRepo) VoidStalePending(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	return 0, nil
}
func (f *fakeResultRepo) UpsertTrackingStat(ctx context.Context, stat *models.TrackingStat) error {
	return nil
}
func (f *fakeResultRepo) RecomputeTrackingStat(ctx context.Context, sport, cardCategory, betType string, now time.Time) (*models.TrackingStat, error) {
	return nil, nil
}

func (f *fakeResultRepo) GetLedger(ctx context.Context, filter repository.LedgerFilter) ([]*repository.LedgerRow, error) {
	f.gotFilter = filter
	return f.ledger, nil
}

func (f *fakeResultRepo) GetSegments(ctx context.Context, filter repository.LedgerFilter) ([]*models.TrackingStat, error) {
	return f.segments, nil
}

type fakeJobRunRepo struct {
	lastRuns map[string]time.Time
}

func (f *fakeJobRunRepo) Insert(ctx context.Context, run *models.JobRun) error { return nil }
func (f *fakeJobRunRepo) MarkSuccess(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	return nil
}
func (f *fakeJobRunRepo) MarkFailed(ctx context.Context, id uuid.UUID, endedAt time.Time, errorMessage string) error {
	return nil
}
func (f *fakeJobRunRepo) HasRunning(ctx context.Context, jobName string, jobKey *string) (bool, error) {
	return false, nil
}
func (f *fakeJobRunRepo) WasRecentlySuccessful(ctx context.Context, jobName string, jobKey *string, window time.Duration) (bool, error) {
	return false, nil
}
func (f *fakeJobRunRepo) SweepOrphans(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	return 0, nil
}

func (f *fakeJobRunRepo) LastSuccessPerJob(ctx context.Context) (map[string]time.Time, error) {
	return f.lastRuns, nil
}

func (f *fakeJobRunRepo) RecentKeys(ctx context.Context, limit int) ([]repository.RecentJobKey, error) {
	return nil, nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeAnalyzer struct {
	results any
	err     error
	phases  []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, game *models.Game, report ProgressFunc) (any, error) {
	for i, phase := range f.phases {
		report((i+1)*100/len(f.phases), phase)
	}
	return f.results, f.err
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Port:             8090,
		HeartbeatSeconds: 1,
		ReadTimeoutSecs:  5,
		WriteTimeoutSecs: 10,
		ShutdownTimeoutS: 5,
	}
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	if deps.Logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)
		deps.Logger = logger
	}
	return NewServer(testAPIConfig(), loc, deps)
}

func TestGamesUsesTodayBoundaryInConfiguredZone(t *testing.T) {
	games := &fakeGameRepo{games: []*models.Game{
		{GameID: "game-nhl-1", Sport: "nhl"},
	}}
	s := newTestServer(t, Deps{Games: games})

	// 03:00 UTC on March 1st is still Feb 28th in New York
	s.nowFn = func() time.Time {
		return time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	loc, _ := time.LoadLocation("America/New_York")
	wantBoundary := time.Date(2026, 2, 28, 0, 0, 0, 0, loc)
	assert.True(t, games.gotBoundary.Equal(wantBoundary), "got boundary %v", games.gotBoundary)

	var resp gamesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestGamesQueryFailure(t *testing.T) {
	games := &fakeGameRepo{boundaryErr: errors.New("connection refused")}
	s := newTestServer(t, Deps{Games: games})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "query_failed", resp.Error)
}

func TestCardsDedupeDefault(t *testing.T) {
	cards := &fakeCardRepo{latest: []*models.CardPayload{
		{GameID: "game-nhl-1", CardType: "nhl-goalie"},
	}}
	s := newTestServer(t, Deps{Cards: cards})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cards?game_id=game-nhl-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "game-nhl-1", cards.latestFor)
	assert.Empty(t, cards.allFor)

	var resp cardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestCardsDedupeNone(t *testing.T) {
	cards := &fakeCardRepo{all: []*models.CardPayload{
		{GameID: "game-nhl-1", CardType: "nhl-goalie"},
		{GameID: "game-nhl-1", CardType: "nhl-goalie"},
		{GameID: "game-nhl-1", CardType: "nhl-goalie"},
	}}
	s := newTestServer(t, Deps{Cards: cards})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cards?game_id=game-nhl-1&dedupe=none", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "game-nhl-1", cards.allFor)

	var resp cardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
}

func TestCardsWithoutGameIDSpansAllGames(t *testing.T) {
	cards := &fakeCardRepo{latest: []*models.CardPayload{
		{GameID: "game-nhl-1", CardType: "nhl-goalie"},
		{GameID: "game-nhl-2", CardType: "nhl-goalie"},
	}}
	s := newTestServer(t, Deps{Cards: cards})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cards", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cards.latestFor)

	var resp cardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestCardsRejectsUnknownDedupe(t *testing.T) {
	s := newTestServer(t, Deps{Cards: &fakeCardRepo{}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cards?game_id=g&dedupe=sometimes", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultsPassesFilter(t *testing.T) {
	results := &fakeResultRepo{
		ledger: []*repository.LedgerRow{
			{GameID: "game-nhl-1", Result: models.ResultWin},
		},
		segments: []*models.TrackingStat{
			{Sport: "nhl", CardCategory: "driver", RecommendedBetType: "moneyline", Wins: 1},
		},
	}
	s := newTestServer(t, Deps{Results: results})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results?sport=nhl&market=moneyline&card_category=driver", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.LedgerFilter{
		Sport:        "nhl",
		Market:       "moneyline",
		CardCategory: "driver",
	}, results.gotFilter)

	var resp resultsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Segments, 1)
	assert.Equal(t, 1, resp.Segments[0].Wins)
}

func TestResultsRejectsUnknownMarket(t *testing.T) {
	s := newTestServer(t, Deps{Results: &fakeResultRepo{}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results?market=parlay", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthOK(t *testing.T) {
	lastRun := time.Date(2026, 2, 28, 14, 0, 0, 0, time.UTC)
	s := newTestServer(t, Deps{
		DB:      &fakePinger{},
		JobRuns: &fakeJobRunRepo{lastRuns: map[string]time.Time{"pull_odds_hourly": lastRun}},
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.True(t, resp.LastSuccessful["pull_odds_hourly"].Equal(lastRun))
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	s := newTestServer(t, Deps{
		DB:      &fakePinger{err: errors.New("dial tcp: connection refused")},
		JobRuns: &fakeJobRunRepo{},
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Contains(t, resp.Checks["database"], "connection refused")
}
