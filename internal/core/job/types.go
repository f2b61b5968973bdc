package job

import (
	"time"

	"github.com/google/uuid"

	"routeplan/internal/core/extract"
	"routeplan/internal/core/route"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Origin is the optional starting point supplied at job creation.
type Origin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is the persisted representation of a job lifecycle. It is
// owned and mutated exclusively by the Service under its lock.
type Record struct {
	JobID     uuid.UUID           `json:"job_id"`
	Status    Status              `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	ImagePath string              `json:"image_path"`
	Origin    *Origin             `json:"origin,omitempty"`
	Addresses []extract.Candidate `json:"addresses"`
	Route     []route.Leg         `json:"route"`
	Errors    []string            `json:"errors"`
}

// Clone returns a deep-enough copy safe to hand out or persist while
// the original keeps being mutated under the service lock. Candidate
// and leg values are immutable after construction, so slice copies
// suffice.
func (r *Record) Clone() *Record {
	cp := *r
	if r.Origin != nil {
		origin := *r.Origin
		cp.Origin = &origin
	}
	cp.Addresses = append([]extract.Candidate(nil), r.Addresses...)
	cp.Route = append([]route.Leg(nil), r.Route...)
	cp.Errors = append([]string(nil), r.Errors...)
	return &cp
}
