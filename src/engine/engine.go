// Package engine ties the pager, planner, queryparser and executor
// together behind a single Execute(text) entry point — the one surface
// a caller (CLI, test, or future server front-end) needs.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dstrohschein/miniql/src/executor"
	"github.com/dstrohschein/miniql/src/helpers"
	"github.com/dstrohschein/miniql/src/pager"
	"github.com/dstrohschein/miniql/src/planner"
	"github.com/dstrohschein/miniql/src/queryparser"
	"github.com/dstrohschein/miniql/src/settings"
)

// Engine is one open database file plus the machinery that runs query
// text against it.
type Engine struct {
	pager     *pager.Accessor
	executor  *executor.Executor
	log       *zap.SugaredLogger
	sessionID string
}

// Open opens an existing database file at path. If log is nil, Open builds a
// production zap logger (grounded on the teacher's own startup
// sequence); pass a test logger in unit tests instead.
func Open(path string, log *zap.SugaredLogger) (*Engine, error) {
	return newEngine(path, log, pager.Open)
}

// Create provisions a brand new, empty database file at path.
func Create(path string, log *zap.SugaredLogger) (*Engine, error) {
	return newEngine(path, log, pager.Create)
}

func newEngine(path string, log *zap.SugaredLogger, open func(string, int, *zap.SugaredLogger) (*pager.Accessor, error)) (*Engine, error) {
	if log == nil {
		var err error
		log, err = newDefaultLogger()
		if err != nil {
			return nil, err
		}
	}
	args := settings.GetSettings()
	p, err := open(path, args.MinDegree, log)
	if err != nil {
		return nil, err
	}
	sessionID := helpers.GenerateUUID()
	log = log.With("session", sessionID)
	return &Engine{
		pager:     p,
		executor:  executor.New(p, log),
		log:       log,
		sessionID: sessionID,
	}, nil
}

func newDefaultLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if settings.GetSettings().Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Execute parses and runs one statement of query text. Each call is
// tagged with its own correlation id so its log lines can be told apart
// from a concurrent or subsequent query within the same session.
func (e *Engine) Execute(text string) (*executor.QueryResult, error) {
	queryID := helpers.GenerateUUID()
	log := e.log.With("query", queryID)

	stmt, err := queryparser.Parse(text)
	if err != nil {
		log.Debugw("query parse failed", "error", err, "text", text)
		return &executor.QueryResult{Success: false, Message: err.Error()}, nil
	}

	plan, err := planner.Build(stmt, e.pager.Schema())
	if err != nil {
		log.Debugw("plan build failed", "error", err, "text", text)
		return &executor.QueryResult{Success: false, Message: err.Error()}, nil
	}

	result, err := e.executor.Run(plan)
	if err != nil {
		// Anything surfaced here is a *status.InternalError or similar
		// programming/corruption signal, not user input — propagate it
		// verbatim rather than folding it into a failed QueryResult.
		return nil, err
	}
	return result, nil
}

// Flush persists the schema header and every dirty page to disk.
func (e *Engine) Flush() error {
	return e.pager.Flush()
}

// Close flushes and releases the underlying file handle.
func (e *Engine) Close() error {
	if err := e.pager.Flush(); err != nil {
		return err
	}
	return e.pager.Close()
}

// Remove deletes the database file at path. Used by tests and by a
// caller re-provisioning a fresh database.
func Remove(path string) error {
	return helpers.DeleteDataFile(path)
}
