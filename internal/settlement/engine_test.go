package settlement

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/logger"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
	"github.com/yourusername/edgecard/internal/resultsapi"
)

type fakeGameRepo struct {
	pending       []*models.Game
	statusUpdates map[string]string
}

func (f *fakeGameRepo) Upsert(context.Context, *models.Game) error { return nil }
func (f *fakeGameRepo) GetByID(context.Context, string) (*models.Game, error) {
	return nil, models.ErrNotFound
}
func (f *fakeGameRepo) GetUpcoming(context.Context, string, time.Duration, time.Time) ([]*models.Game, error) {
	return nil, nil
}
func (f *fakeGameRepo) GetFromBoundary(context.Context, time.Time) ([]*models.Game, error) {
	return nil, nil
}
func (f *fakeGameRepo) GetPendingResults(context.Context, time.Duration, time.Time) ([]*models.Game, error) {
	return f.pending, nil
}
func (f *fakeGameRepo) UpdateStatus(_ context.Context, gameID, status string) error {
	if f.statusUpdates == nil {
		f.statusUpdates = make(map[string]string)
	}
	f.statusUpdates[gameID] = status
	return nil
}

type fakeCardRepo struct {
	settleable []*repository.SettleableCard
}

func (f *fakeCardRepo) PrepareModelAndCardWrite(context.Context, string, string, string) error {
	return nil
}
func (f *fakeCardRepo) InsertCardPayload(context.Context, *models.CardPayload) error { return nil }
func (f *fakeCardRepo) InsertModelOutput(context.Context, *models.ModelOutput) error { return nil }
func (f *fakeCardRepo) GetLatestPerGameType(context.Context, string, time.Time) ([]*models.CardPayload, error) {
	return nil, nil
}
func (f *fakeCardRepo) GetAllCards(context.Context, string) ([]*models.CardPayload, error) {
	return nil, nil
}
func (f *fakeCardRepo) GetSettleable(context.Context) ([]*repository.SettleableCard, error) {
	return f.settleable, nil
}

type markedResult struct {
	result string
	pnl    decimal.Decimal
}

type fakeResultRepo struct {
	upserts    []*models.GameResult
	marked     map[uuid.UUID]markedResult
	recomputed []string
	voided     int
}

func (f *fakeResultRepo) UpsertGameResult(_ context.Context, result *models.GameResult) error {
	f.upserts = append(f.upserts, result)
	return nil
}
func (f *fakeResultRepo) GetGameResult(context.Context, string) (*models.GameResult, error) {
	return nil, models.ErrNotFound
}
func (f *fakeResultRepo) MarkCardResult(_ context.Context, cardID uuid.UUID, result string, pnl decimal.Decimal, _ time.Time) (bool, error) {
	if f.marked == nil {
		f.marked = make(map[uuid.UUID]markedResult)
	}
	if _, already := f.marked[cardID]; already {
		return false, nil
	}
	f.marked[cardID] = markedResult{result: result, pnl: pnl}
	return true, nil
}
func (f *fakeResultRepo) VoidStalePending(context.Context, time.Duration, time.Time) (int, error) {
	return f.voided, nil
}
func (f *fakeResultRepo) UpsertTrackingStat(context.Context, *models.TrackingStat) error { return nil }
func (f *fakeResultRepo) RecomputeTrackingStat(_ context.Context, sport, category, betType string, now time.Time) (*models.TrackingStat, error) {
	f.recomputed = append(f.recomputed, sport+"/"+category+"/"+betType)
	return &models.TrackingStat{Sport: sport, CardCategory: category, RecommendedBetType: betType, LastUpdated: now}, nil
}
func (f *fakeResultRepo) GetLedger(context.Context, repository.LedgerFilter) ([]*repository.LedgerRow, error) {
	return nil, nil
}
func (f *fakeResultRepo) GetSegments(context.Context, repository.LedgerFilter) ([]*models.TrackingStat, error) {
	return nil, nil
}

type fakeSource struct {
	games []resultsapi.ScoreboardGame
	err   error
}

func (f *fakeSource) Scoreboard(context.Context, string, time.Time) ([]resultsapi.ScoreboardGame, error) {
	return f.games, f.err
}

func testEngine(games *fakeGameRepo, cardRepo *fakeCardRepo, results *fakeResultRepo, source *fakeSource) *Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cfg := config.SettlementConfig{
		CadenceMinutes:     15,
		PostGameDelayMin:   150,
		VoidAfterHours:     24,
		LookbackHours:      48,
		RecentSnapshotMins: 120,
	}
	return NewEngine(games, cardRepo, results, source, cfg, time.UTC, logger.NewPipelineLogger(log))
}

func payloadFor(t *testing.T, pd *models.PayloadData) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(pd)
	require.NoError(t, err)
	return raw
}

func settleableCard(t *testing.T, sport, recType string, oc models.OddsContext, homeScore, awayScore int) *repository.SettleableCard {
	return &repository.SettleableCard{
		Card: models.CardPayload{
			ID:           uuid.New(),
			GameID:       "game-" + sport + "-x1",
			Sport:        sport,
			CardType:     sport + "-goalie",
			CardCategory: models.CardCategoryDriver,
			PayloadData: payloadFor(t, &models.PayloadData{
				Prediction:         models.PredictionHome,
				Confidence:         0.6,
				Reasoning:          "test",
				OddsContext:        oc,
				Recommendation:     &models.Recommendation{Type: recType},
				RecommendedBetType: models.MarketMoneyline,
			}),
		},
		GameResult: models.GameResult{
			GameID:         "game-" + sport + "-x1",
			FinalScoreHome: homeScore,
			FinalScoreAway: awayScore,
			Status:         models.GameResultFinal,
		},
	}
}

func TestSettleGameResults(t *testing.T) {
	now := time.Now().UTC()
	games := &fakeGameRepo{pending: []*models.Game{
		{
			GameID: "game-nhl-done", Sport: "nhl",
			HomeTeam: "Boston Bruins", AwayTeam: "New York Rangers",
			GameTimeUTC: now.Add(-5 * time.Hour),
		},
		{
			GameID: "game-nhl-early", Sport: "nhl",
			HomeTeam: "Los Angeles Kings", AwayTeam: "San Jose Sharks",
			// Started an hour ago, inside the post-game delay
			GameTimeUTC: now.Add(-time.Hour),
		},
	}}
	source := &fakeSource{games: []resultsapi.ScoreboardGame{
		{HomeTeam: "Boston Bruins", AwayTeam: "New York Rangers", HomeScore: 4, AwayScore: 2, Completed: true},
	}}
	results := &fakeResultRepo{}
	engine := testEngine(games, &fakeCardRepo{}, results, source)

	outcome, err := engine.SettleGameResults(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.GamesChecked)
	assert.Equal(t, 1, outcome.GamesSettled)

	require.Len(t, results.upserts, 1)
	assert.Equal(t, "game-nhl-done", results.upserts[0].GameID)
	assert.Equal(t, 4, results.upserts[0].FinalScoreHome)
	assert.Equal(t, models.GameResultFinal, results.upserts[0].Status)
	assert.Equal(t, models.GameStatusFinal, games.statusUpdates["game-nhl-done"])
}

func TestSettleGameResultsIncompleteGameStaysPending(t *testing.T) {
	now := time.Now().UTC()
	games := &fakeGameRepo{pending: []*models.Game{
		{
			GameID: "game-nhl-live", Sport: "nhl",
			HomeTeam: "Boston Bruins", AwayTeam: "New York Rangers",
			GameTimeUTC: now.Add(-4 * time.Hour),
		},
	}}
	source := &fakeSource{games: []resultsapi.ScoreboardGame{
		{HomeTeam: "Boston Bruins", AwayTeam: "New York Rangers", HomeScore: 2, AwayScore: 2, Completed: false},
	}}
	results := &fakeResultRepo{}
	engine := testEngine(games, &fakeCardRepo{}, results, source)

	outcome, err := engine.SettleGameResults(context.Background(), now)

	require.NoError(t, err)
	assert.Zero(t, outcome.GamesSettled)
	assert.Empty(t, results.upserts)
}

func TestSettlePendingCards(t *testing.T) {
	oc := models.OddsContext{H2HHome: floatPtr(-110), H2HAway: floatPtr(-110)}
	winCard := settleableCard(t, "nhl", models.RecommendationMLHome, oc, 4, 2)
	lossCard := settleableCard(t, "nhl", models.RecommendationMLAway, oc, 4, 2)
	passCard := settleableCard(t, "nhl", models.RecommendationPass, oc, 4, 2)

	cardRepo := &fakeCardRepo{settleable: []*repository.SettleableCard{winCard, lossCard, passCard}}
	results := &fakeResultRepo{}
	engine := testEngine(&fakeGameRepo{}, cardRepo, results, &fakeSource{})

	outcome, err := engine.SettlePendingCards(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.CardsSettled)
	assert.Equal(t, 1, outcome.Skipped)

	win := results.marked[winCard.Card.ID]
	assert.Equal(t, models.ResultWin, win.result)
	assert.True(t, win.pnl.Equal(decimal.RequireFromString("0.909")))

	loss := results.marked[lossCard.Card.ID]
	assert.Equal(t, models.ResultLoss, loss.result)
	assert.True(t, loss.pnl.Equal(decimal.NewFromInt(-1)))

	_, passMarked := results.marked[passCard.Card.ID]
	assert.False(t, passMarked)

	require.Len(t, results.recomputed, 1)
	assert.Equal(t, "nhl/driver/moneyline", results.recomputed[0])
}

func TestSettlePendingCardsSecondRunSettlesZero(t *testing.T) {
	oc := models.OddsContext{H2HHome: floatPtr(-110), H2HAway: floatPtr(-110)}
	card := settleableCard(t, "nhl", models.RecommendationMLHome, oc, 3, 1)

	cardRepo := &fakeCardRepo{settleable: []*repository.SettleableCard{card}}
	results := &fakeResultRepo{}
	engine := testEngine(&fakeGameRepo{}, cardRepo, results, &fakeSource{})

	first, err := engine.SettlePendingCards(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, first.CardsSettled)

	second, err := engine.SettlePendingCards(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, second.CardsSettled)
}

func TestSettlePendingCardsLegacyFallback(t *testing.T) {
	card := &repository.SettleableCard{
		Card: models.CardPayload{
			ID:           uuid.New(),
			GameID:       "game-nhl-legacy",
			Sport:        "nhl",
			CardType:     "nhl-goalie",
			CardCategory: models.CardCategoryDriver,
			PayloadData: payloadFor(t, &models.PayloadData{
				Prediction:         models.PredictionHome,
				Confidence:         0.6,
				Reasoning:          "legacy card",
				OddsContext:        models.OddsContext{H2HHome: floatPtr(-150), H2HAway: floatPtr(130)},
				RecommendedBetType: models.MarketMoneyline,
			}),
		},
		GameResult: models.GameResult{FinalScoreHome: 5, FinalScoreAway: 2, Status: models.GameResultFinal},
	}

	cardRepo := &fakeCardRepo{settleable: []*repository.SettleableCard{card}}
	results := &fakeResultRepo{}
	engine := testEngine(&fakeGameRepo{}, cardRepo, results, &fakeSource{})

	outcome, err := engine.SettlePendingCards(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.CardsSettled)
	marked := results.marked[card.Card.ID]
	assert.Equal(t, models.ResultWin, marked.result)
}

func TestVoidSweep(t *testing.T) {
	results := &fakeResultRepo{voided: 2}
	engine := testEngine(&fakeGameRepo{}, &fakeCardRepo{}, results, &fakeSource{})

	voided, err := engine.VoidSweep(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, voided)
}
