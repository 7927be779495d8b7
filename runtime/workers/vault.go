package workers

import (
	"context"
	"log/slog"
)

// VaultJob is one password-derivation task. The closure carries its own
// inputs and result channel.
type VaultJob func()

// VaultWorker executes Argon2id derivation jobs. The derivation is
// compute-bound and deliberately slow, so it runs on this dedicated pool
// instead of the path that also serves live connection fan-out.
type VaultWorker struct {
	jobs <-chan VaultJob
	log  *slog.Logger
}

func NewVaultWorker(jobs <-chan VaultJob, log *slog.Logger) VaultWorker {
	return VaultWorker{jobs: jobs, log: log}
}

func (w VaultWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping vault worker")
			return nil
		case job, ok := <-w.jobs:
			if !ok {
				return nil
			}
			job()
		}
	}
}
