// Package logger provides pipeline-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for ingest and fan-out events.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogIngestSport logs the outcome of one sport's ingest pass.
func (pl *PipelineLogger) LogIngestSport(sport string, rawCount, normalized, upserted, snapshots, skipped int) {
	pl.WithFields(logrus.Fields{
		"sport":                  sport,
		"raw_count":              rawCount,
		"normalized_count":       normalized,
		"games_upserted":         upserted,
		"snapshots_inserted":     snapshots,
		"skipped_missing_fields": skipped,
	}).Info("Sport ingest completed")
}

// LogContractViolation logs a normalization contract guard trip.
func (pl *PipelineLogger) LogContractViolation(sport string, rawCount, normalized int) {
	pl.WithFields(logrus.Fields{
		"sport":            sport,
		"raw_count":        rawCount,
		"normalized_count": normalized,
	}).Error("Normalization contract violation; aborting sport ingest")
}

// LogCardWritten logs one card upsert from the fan-out.
func (pl *PipelineLogger) LogCardWritten(sport, gameID, cardType, prediction string, confidence float64) {
	pl.WithFields(logrus.Fields{
		"sport":      sport,
		"game_id":    gameID,
		"card_type":  cardType,
		"prediction": prediction,
		"confidence": confidence,
	}).Info("Card written")
}

// LogGameSkipped logs a game whose drivers were all missing inputs.
func (pl *PipelineLogger) LogGameSkipped(sport, gameID, reason string) {
	pl.WithFields(logrus.Fields{
		"sport":   sport,
		"game_id": gameID,
		"reason":  reason,
	}).Warn("Game skipped by fan-out")
}

// LogSettlement logs a settlement pass summary.
func (pl *PipelineLogger) LogSettlement(gamesSettled, cardsSettled, skipped int) {
	pl.WithFields(logrus.Fields{
		"games_settled": gamesSettled,
		"cards_settled": cardsSettled,
		"skipped":       skipped,
	}).Info("Settlement pass completed")
}
