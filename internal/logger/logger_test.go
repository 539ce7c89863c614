package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	log := NewLogger("not-a-level")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestJobLoggerStart(t *testing.T) {
	log, buf := setupTestLogger()
	jobLogger := NewJobLogger(log)

	jobLogger.LogJobStart("pull_odds_hourly", "odds|hourly|2026-02-28|15", "run-1")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "pull_odds_hourly", logEntry["job_name"])
	assert.Equal(t, "jobs", logEntry["component"])
}

func TestJobLoggerFailure(t *testing.T) {
	log, buf := setupTestLogger()
	jobLogger := NewJobLogger(log)

	jobLogger.LogJobFailure("run_nhl_model", "nhl|fixed|2026-02-28|0900", "run-2", 120*time.Millisecond, errors.New("boom"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "boom", logEntry["error"])
	assert.Equal(t, "error", logEntry["level"])
}

func TestJobLoggerSkipped(t *testing.T) {
	log, buf := setupTestLogger()
	jobLogger := NewJobLogger(log)

	jobLogger.LogJobSkipped("pull_odds_hourly", "odds|hourly|2026-02-28|15", "idempotent")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "idempotent", logEntry["reason"])
}

func TestPipelineLoggerContractViolation(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogContractViolation("NHL", 10, 3)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "NHL", logEntry["sport"])
	assert.Equal(t, float64(10), logEntry["raw_count"])
	assert.Equal(t, "pipeline", logEntry["component"])
}

func TestPipelineLoggerCardWritten(t *testing.T) {
	log, buf := setupTestLogger()
	pipelineLogger := NewPipelineLogger(log)

	pipelineLogger.LogCardWritten("NHL", "game-nhl-abc", "nhl-goalie", "HOME", 0.71)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "nhl-goalie", logEntry["card_type"])
	assert.Equal(t, 0.71, logEntry["confidence"])
}

func TestLoggerJSONFormat(t *testing.T) {
	log, buf := setupTestLogger()
	jobLogger := NewJobLogger(log)

	jobLogger.LogJobSuccess("settle_pending_cards", "", "run-3", time.Second)

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	assert.NoError(t, err)
	assert.NotEmpty(t, logEntry)
}
