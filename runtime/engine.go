// Package runtime handles event propagation and background work. It
// orchestrates the system without containing domain rules: services produce
// events and vault jobs, the engine routes them to supervised workers.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"quantumchat/contract"
	"quantumchat/domain/event"
	"quantumchat/hub"
	"quantumchat/runtime/workers"
)

type Engine struct {
	log             *slog.Logger
	supervisor      contract.ISupervisor
	hub             *hub.Hub
	events          chan event.DomainEvent
	vaultJobs       chan workers.VaultJob
	numVaultWorkers int
}

func NewEngine(log *slog.Logger, supervisor contract.ISupervisor, h *hub.Hub,
	numVaultWorkers, bufferSize int) *Engine {
	return &Engine{
		log:             log,
		supervisor:      supervisor,
		hub:             h,
		events:          make(chan event.DomainEvent, bufferSize),
		vaultJobs:       make(chan workers.VaultJob, bufferSize),
		numVaultWorkers: numVaultWorkers,
	}
}

// Dispatch hands a domain event to the delivery pipeline. Never blocks the
// caller: when the buffer is full the event is dropped with a warning, the
// persisted message remains the source of truth.
func (e *Engine) Dispatch(evt event.DomainEvent) {
	select {
	case e.events <- evt:
	default:
		e.log.Warn(fmt.Sprintf("Event channel full, dropping %s", evt.EventName()))
	}
}

// ExecuteVault runs a compute-bound key-derivation job on the vault pool and
// waits for it to finish. Serving these jobs on a dedicated pool keeps
// Argon2id off the paths that also serve live connection fan-out.
func (e *Engine) ExecuteVault(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}

	select {
	case e.vaultJobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start registers the delivery worker and the vault pool with the supervisor
// and launches supervision. Returns immediately; Stop triggers shutdown.
func (e *Engine) Start(ctx context.Context) {
	e.supervisor.Add(workers.NewDeliveryWorker(e.hub, e.events, e.log))
	for i := 0; i < e.numVaultWorkers; i++ {
		e.supervisor.Add(workers.NewVaultWorker(e.vaultJobs, e.log))
	}

	e.log.Info("Starting engine and all supervised workers")
	go e.supervisor.Run(ctx)
}

// Stop initiates a graceful shutdown: workers observe the cancellation and
// drain out.
func (e *Engine) Stop() {
	e.log.Info("Requesting engine shutdown")
	e.supervisor.Stop()
}
