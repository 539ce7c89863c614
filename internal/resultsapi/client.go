package resultsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecard/internal/config"
)

// sportPaths maps internal sport keys to the results source URL segments
var sportPaths = map[string]string{
	"nhl": "hockey/nhl",
	"nba": "basketball/nba",
	"nfl": "football/nfl",
	"mlb": "baseball/mlb",
}

// ScoreboardGame is one game row from the results source
type ScoreboardGame struct {
	ProviderID string
	HomeTeam   string
	AwayTeam   string
	HomeScore  int
	AwayScore  int
	Completed  bool
	StartTime  time.Time
}

// Client reads final scores from the external scoreboard source. Responses
// are cached per (sport, date) so the settlement cadence does not hammer
// the source.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	cache   *cache.Cache
	logger  *logrus.Logger
}

// NewClient creates a results source client
func NewClient(cfg config.ResultsConfig, logger *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	retryClient.RetryMax = 3
	retryClient.Logger = nil

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &Client{
		baseURL: cfg.BaseURL,
		http:    retryClient,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// Scoreboard returns the source's games for a sport on a calendar date.
// Cached for the configured TTL.
func (c *Client) Scoreboard(ctx context.Context, sport string, date time.Time) ([]ScoreboardGame, error) {
	path, ok := sportPaths[sport]
	if !ok {
		return nil, fmt.Errorf("no results source mapping for sport %q", sport)
	}

	cacheKey := sport + "|" + date.Format("20060102")
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.([]ScoreboardGame), nil
	}

	url := fmt.Sprintf("%s/%s/scoreboard?dates=%s", c.baseURL, path, date.Format("20060102"))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create scoreboard request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results source returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read scoreboard body: %w", err)
	}

	games, err := parseScoreboard(body)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(cacheKey, games)
	c.logger.WithFields(logrus.Fields{
		"sport": sport,
		"date":  date.Format("2006-01-02"),
		"games": len(games),
	}).Debug("Fetched scoreboard")

	return games, nil
}

type scoreboardResponse struct {
	Events []struct {
		ID     string `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Type struct {
				Completed bool   `json:"completed"`
				State     string `json:"state"`
			} `json:"type"`
		} `json:"status"`
		Competitions []struct {
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Score    string `json:"score"`
				Team     struct {
					DisplayName string `json:"displayName"`
				} `json:"team"`
			} `json:"competitors"`
		} `json:"competitions"`
	} `json:"events"`
}

func parseScoreboard(body []byte) ([]ScoreboardGame, error) {
	var resp scoreboardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse scoreboard response: %w", err)
	}

	games := make([]ScoreboardGame, 0, len(resp.Events))
	for _, event := range resp.Events {
		if len(event.Competitions) == 0 {
			continue
		}

		game := ScoreboardGame{
			ProviderID: event.ID,
			Completed:  event.Status.Type.Completed,
		}
		if startTime, err := time.Parse(time.RFC3339, event.Date); err == nil {
			game.StartTime = startTime.UTC()
		}

		for _, competitor := range event.Competitions[0].Competitors {
			score, _ := strconv.Atoi(competitor.Score)
			switch competitor.HomeAway {
			case "home":
				game.HomeTeam = competitor.Team.DisplayName
				game.HomeScore = score
			case "away":
				game.AwayTeam = competitor.Team.DisplayName
				game.AwayScore = score
			}
		}

		if game.HomeTeam == "" || game.AwayTeam == "" {
			continue
		}
		games = append(games, game)
	}

	return games, nil
}
