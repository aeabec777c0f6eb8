package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// Dispatcher fans rehash jobs out to a fixed set of workers, sharded by
// credential id so one credential is never processed by two workers at once.
type Dispatcher struct {
	workers int
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Dispatcher{workers: numWorkers, log: log}
}

// Run processes jobs and blocks until every job is handled or ctx is done.
// Jobs never handed to process are reported as skipped.
func (d *Dispatcher) Run(ctx context.Context, jobs []ports.RehashJob, process func(context.Context, ports.RehashJob) error) ports.RunReport {
	var processed, failed atomic.Int64

	chans := make([]chan ports.RehashJob, d.workers)
	var wg sync.WaitGroup
	for i := range chans {
		chans[i] = make(chan ports.RehashJob, channelBuffer)
		wg.Add(1)
		go func(id int, ch <-chan ports.RehashJob) {
			defer wg.Done()
			d.runWorker(ctx, id, ch, process, &processed, &failed)
		}(i, chans[i])
	}

enqueue:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break enqueue
		case chans[d.shardIndex(job.CredentialID)] <- job:
		}
	}
	for _, ch := range chans {
		close(ch)
	}
	wg.Wait()

	report := ports.RunReport{
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
	}
	report.Skipped = len(jobs) - report.Processed - report.Failed
	return report
}

// shardIndex maps a credential id deterministically to a worker index.
func (d *Dispatcher) shardIndex(credentialID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(credentialID))
	return int(h.Sum32() % uint32(d.workers))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.RehashJob, process func(context.Context, ports.RehashJob) error, processed, failed *atomic.Int64) {
	for job := range ch {
		if ctx.Err() != nil {
			continue
		}
		if err := process(ctx, job); err != nil {
			failed.Add(1)
			d.log.Error().Err(err).
				Str("credential_id", job.CredentialID).
				Int("worker_id", id).
				Msg("password rehash failed")
			continue
		}
		processed.Add(1)
	}
}
