package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/ports"
)

func makeJobs(n int) []ports.RehashJob {
	jobs := make([]ports.RehashJob, n)
	for i := range jobs {
		jobs[i] = ports.RehashJob{CredentialID: fmt.Sprintf("cred-%d", i), Legacy: "pw"}
	}
	return jobs
}

func TestDispatcher_ProcessesEveryJobOnce(t *testing.T) {
	d := NewDispatcher(3, zerolog.Nop())
	jobs := makeJobs(200)

	var mu sync.Mutex
	seen := make(map[string]int)
	report := d.Run(context.Background(), jobs, func(_ context.Context, job ports.RehashJob) error {
		mu.Lock()
		seen[job.CredentialID]++
		mu.Unlock()
		return nil
	})

	if report.Processed != 200 || report.Failed != 0 || report.Skipped != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for _, j := range jobs {
		if seen[j.CredentialID] != 1 {
			t.Fatalf("job %s processed %d times", j.CredentialID, seen[j.CredentialID])
		}
	}
}

func TestDispatcher_CountsFailures(t *testing.T) {
	d := NewDispatcher(2, zerolog.Nop())

	report := d.Run(context.Background(), makeJobs(10), func(_ context.Context, job ports.RehashJob) error {
		if job.CredentialID == "cred-3" || job.CredentialID == "cred-7" {
			return errors.New("write conflict")
		}
		return nil
	})

	if report.Processed != 8 || report.Failed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestDispatcher_CancelledContextSkips(t *testing.T) {
	d := NewDispatcher(2, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := d.Run(ctx, makeJobs(5), func(context.Context, ports.RehashJob) error {
		t.Errorf("must not process after cancellation")
		return nil
	})

	if report.Processed != 0 || report.Skipped != 5 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, zerolog.Nop())
	if d.workers != defaultWorkers {
		t.Fatalf("expected default workers, got %d", d.workers)
	}
	a := d.shardIndex("cred-42")
	for i := 0; i < 10; i++ {
		if d.shardIndex("cred-42") != a {
			t.Fatalf("shard index must be deterministic")
		}
	}
	if a < 0 || a >= d.workers {
		t.Fatalf("shard index out of range: %d", a)
	}
}
