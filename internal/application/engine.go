// Package application wires the command and query handlers into one
// engine facade.
package application

import (
	"github.com/cogniquest/cogniquest-engine/internal/application/command"
	"github.com/cogniquest/cogniquest-engine/internal/application/orchestrator"
	"github.com/cogniquest/cogniquest-engine/internal/application/query"
)

// Engine is the entry point a transport layer calls into. It bundles
// every command and query handler together with the live-session
// registry so the process can drain sessions on shutdown.
type Engine struct {
	StartSession  *command.StartSessionHandler
	SubmitAnswer  *command.SubmitAnswerHandler
	Control       *command.SessionControlHandler
	ResetProgress *command.ResetProgressHandler
	GetProgress   *query.GetProgressHandler
	GetSession    *query.GetSessionHandler

	registry *orchestrator.Registry
}

// NewEngine assembles the engine facade over an existing registry and
// handler set.
func NewEngine(
	registry *orchestrator.Registry,
	startSession *command.StartSessionHandler,
	submitAnswer *command.SubmitAnswerHandler,
	control *command.SessionControlHandler,
	resetProgress *command.ResetProgressHandler,
	getProgress *query.GetProgressHandler,
	getSession *query.GetSessionHandler,
) *Engine {
	return &Engine{
		StartSession:  startSession,
		SubmitAnswer:  submitAnswer,
		Control:       control,
		ResetProgress: resetProgress,
		GetProgress:   getProgress,
		GetSession:    getSession,
		registry:      registry,
	}
}

// LiveSessionCount reports how many sessions are currently running.
func (e *Engine) LiveSessionCount() int {
	return len(e.registry.Live())
}

// AbandonLiveSessions force-finishes every live session. Called on
// shutdown so each session settles its score before the process exits.
func (e *Engine) AbandonLiveSessions() int {
	live := e.registry.Live()
	for _, orch := range live {
		orch.Abandon()
	}
	return len(live)
}
