package domain

import "context"

// RepairReport summarizes one repair pass.
// swagger:model RepairReport
type RepairReport struct {
	EventsFixed      int      `json:"events_fixed"`
	ConferencesFixed int      `json:"conferences_fixed"`
	ActorsFixed      int      `json:"actors_fixed"`
	FoldersFixed     int      `json:"folders_fixed"`
	FoldersCreated   int      `json:"folders_created"`
	OrphanEvents     []string `json:"orphan_events"`
	Failures         []string `json:"failures"`
}

// Changed reports whether the pass rewrote anything.
func (r *RepairReport) Changed() bool {
	return r.EventsFixed+r.ConferencesFixed+r.ActorsFixed+r.FoldersFixed+r.FoldersCreated > 0
}

// RepairService recomputes derived references from their authoritative side.
type RepairService interface {
	Run(ctx context.Context) (*RepairReport, error)
}
