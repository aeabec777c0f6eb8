package ports

import "context"

// RehashJob is one legacy plaintext credential awaiting migration.
type RehashJob struct {
	CredentialID string
	Legacy       string
}

// RunReport summarizes a batch run.
type RunReport struct {
	Processed int
	Failed    int
	Skipped   int
}

// RehashRunner fans rehash jobs out to workers and waits for them.
type RehashRunner interface {
	Run(ctx context.Context, jobs []RehashJob, process func(context.Context, RehashJob) error) RunReport
}

// MigrationReport is the outcome of a legacy password migration.
type MigrationReport struct {
	Scanned  int `json:"scanned"`
	Legacy   int `json:"legacy"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
