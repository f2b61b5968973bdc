// Package worker adapts asynq's handler registration so services
// expose task handlers without depending on the server wiring.
package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

// Mux maps task types (e.g. job:process) to their handlers.
type Mux struct{ mux *asynq.ServeMux }

func NewMux() *Mux { return &Mux{mux: asynq.NewServeMux()} }

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

// Mux exposes the underlying ServeMux for the asynq server.
func (m *Mux) Mux() *asynq.ServeMux { return m.mux }
