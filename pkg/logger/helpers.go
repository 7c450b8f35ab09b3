package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ForComponent returns the global logger tagged with a component name
func ForComponent(component string) Logger {
	return GetLogger().WithField("component", component)
}

// LogCategoryResult logs the outcome of discovering one category
func LogCategoryResult(log Logger, category string, links int, pages int, err error) {
	fields := map[string]interface{}{
		"category": category,
		"links":    links,
		"pages":    pages,
	}
	if err != nil {
		log.WithError(err).WarnWithFields("Category discovery failed", fields)
		return
	}
	log.InfoWithFields("Category discovered", fields)
}

// LogFetchFailure logs a URL that exhausted its retry budget
func LogFetchFailure(log Logger, url string, attempts int, err error) {
	log.WithError(err).WarnWithFields("Article fetch failed", map[string]interface{}{
		"url":      url,
		"attempts": attempts,
	})
}

// LogRunSummary logs the end-of-run counters
func LogRunSummary(log Logger, runID string, discovered, fetched, failed, skipped int, took time.Duration) {
	log.InfoWithFields("Run finished", map[string]interface{}{
		"run_id":     runID,
		"discovered": discovered,
		"fetched":    fetched,
		"failed":     failed,
		"skipped":    skipped,
		"duration":   took,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
