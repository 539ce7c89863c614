package repository

import (
	"fmt"

	"github.com/yourusername/edgecard/internal/cards"
	"github.com/yourusername/edgecard/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Game     GameRepository
	Odds     OddsRepository
	Card     CardRepository
	JobRun   JobRunRepository
	Result   ResultRepository
	Registry *cards.Registry
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB, registry *cards.Registry) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if registry == nil {
		registry = cards.NewRegistry()
	}

	return &Repositories{
		Game:     NewPostgresGameRepository(db),
		Odds:     NewPostgresOddsRepository(db),
		Card:     NewPostgresCardRepository(db, registry),
		JobRun:   NewPostgresJobRunRepository(db),
		Result:   NewPostgresResultRepository(db),
		Registry: registry,
	}, nil
}
