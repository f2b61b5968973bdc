package job

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"routeplan/internal/core/extract"
	"routeplan/internal/core/route"
	"routeplan/internal/logger"
	"routeplan/internal/platform/storage"
	"routeplan/internal/platform/tasks"
)

const TaskTypeProcess = "job:process"

type taskPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// Scheduler hands a pending job to the background worker. Tests use a
// synchronous implementation so processing has a defined join point.
type Scheduler interface {
	Schedule(ctx context.Context, jobID uuid.UUID) error
}

// AsynqScheduler enqueues processing onto the asynq worker pool.
type AsynqScheduler struct {
	tasks      *tasks.Client
	maxRetries int
}

func NewAsynqScheduler(t *tasks.Client, maxRetries int) *AsynqScheduler {
	return &AsynqScheduler{tasks: t, maxRetries: maxRetries}
}

func (s *AsynqScheduler) Schedule(_ context.Context, jobID uuid.UUID) error {
	payload, err := json.Marshal(taskPayload{JobID: jobID})
	if err != nil {
		return err
	}
	return s.tasks.Enqueue(asynq.NewTask(TaskTypeProcess, payload), "default", s.maxRetries)
}

// Service owns the job lifecycle state machine. The in-memory map is
// the live view; every state transition is persisted to the store
// outside the map lock so slow storage never blocks other jobs.
type Service struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Record

	store    *Store
	storage  *storage.Service
	source   extract.Source
	pipeline *extract.Pipeline
	router   *route.Service
	sched    Scheduler
	log      *logger.Logger
}

func NewService(store *Store, files *storage.Service, source extract.Source, pipeline *extract.Pipeline, router *route.Service) (*Service, error) {
	s := &Service{
		jobs:     make(map[uuid.UUID]*Record),
		store:    store,
		storage:  files,
		source:   source,
		pipeline: pipeline,
		router:   router,
		log:      logger.New("JobService"),
	}
	records, err := store.List(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load persisted jobs: %w", err)
	}
	for _, record := range records {
		s.jobs[record.JobID] = record
	}
	return s, nil
}

// SetScheduler wires the background scheduler after construction to
// break the service/worker wiring cycle in main.
func (s *Service) SetScheduler(sched Scheduler) { s.sched = sched }

// Create persists the upload and a pending record, then schedules
// asynchronous processing. The pending record is returned immediately.
func (s *Service) Create(ctx context.Context, image []byte, filename string, origin *Origin) (*Record, error) {
	imagePath, err := s.storage.SaveBytes(image, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &Record{
		JobID:     uuid.New(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ImagePath: imagePath,
		Origin:    origin,
		Addresses: []extract.Candidate{},
		Route:     []route.Leg{},
		Errors:    []string{},
	}

	s.mu.Lock()
	s.jobs[record.JobID] = record
	snapshot := record.Clone()
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, snapshot); err != nil {
		// Nothing durable exists yet; drop the map entry so no
		// unprocessable pending job stays visible.
		s.evict(record.JobID)
		return nil, fmt.Errorf("persist job: %w", err)
	}

	if err := s.schedule(ctx, record.JobID); err != nil {
		// The pending row is already persisted. Nothing will ever
		// process it, so move it to its terminal state now.
		s.fail(ctx, record.JobID, fmt.Sprintf("scheduling failed: %v", err))
		return nil, fmt.Errorf("schedule job: %w", err)
	}
	s.log.LogInfof("job %s created", record.JobID)
	return snapshot, nil
}

func (s *Service) schedule(ctx context.Context, id uuid.UUID) error {
	if s.sched == nil {
		return fmt.Errorf("job service has no scheduler")
	}
	return s.sched.Schedule(ctx, id)
}

func (s *Service) evict(id uuid.UUID) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// Get returns the current record, loading from the store when the job
// is not in the live map (e.g. after a restart).
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	record, ok := s.jobs[id]
	if ok {
		snapshot := record.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.jobs[id] = stored
	snapshot := stored.Clone()
	s.mu.Unlock()
	return snapshot, nil
}

// List returns all known records ordered by creation time, most
// recent first.
func (s *Service) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	records := make([]*Record, 0, len(s.jobs))
	for _, record := range s.jobs {
		records = append(records, record.Clone())
	}
	s.mu.Unlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// HandleProcessTask is the asynq entry point for job processing.
func (s *Service) HandleProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid task payload: %w", err)
	}
	return s.Process(ctx, payload.JobID)
}

// Process drives one job through the pipeline to a terminal state. A
// processing run never panics or errors past this boundary: any stage
// failure is recorded on the job and the job transitions to failed.
// Returns an error only for an unknown job id.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	snapshot, err := s.transition(id, func(record *Record) {
		record.Status = StatusProcessing
	})
	if err != nil {
		return err
	}
	s.persist(ctx, snapshot)

	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, id, fmt.Sprintf("panic during processing: %v", r))
		}
	}()

	lines, err := s.source.Lines(ctx, snapshot.ImagePath)
	if err != nil {
		s.fail(ctx, id, err.Error())
		return nil
	}

	addresses := s.pipeline.Run(ctx, lines)

	var nodes []route.Node
	if snapshot.Origin != nil {
		nodes = append(nodes, route.Node{
			Label:     "Origin",
			Latitude:  snapshot.Origin.Latitude,
			Longitude: snapshot.Origin.Longitude,
		})
	}
	for _, candidate := range addresses {
		if candidate.Latitude == nil || candidate.Longitude == nil {
			continue
		}
		nodes = append(nodes, route.Node{
			Label:     candidate.RawText,
			Latitude:  *candidate.Latitude,
			Longitude: *candidate.Longitude,
		})
	}
	computation := s.router.ComputeRoute(ctx, nodes)

	snapshot, err = s.transition(id, func(record *Record) {
		record.Addresses = addresses
		record.Route = computation.Legs
		record.Status = StatusCompleted
	})
	if err != nil {
		return err
	}
	s.persist(ctx, snapshot)
	s.log.LogInfof("job %s completed: %d addresses, %d legs", id, len(addresses), len(computation.Legs))
	return nil
}

// transition applies a mutation under the map lock and returns a
// snapshot for persistence outside of it.
func (s *Service) transition(id uuid.UUID, mutate func(*Record)) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	mutate(record)
	record.UpdatedAt = time.Now().UTC()
	return record.Clone(), nil
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, message string) {
	s.log.LogErrorf("job %s failed: %s", id, message)
	snapshot, err := s.transition(id, func(record *Record) {
		record.Errors = append(record.Errors, message)
		record.Status = StatusFailed
	})
	if err != nil {
		return
	}
	s.persist(ctx, snapshot)
}

func (s *Service) persist(ctx context.Context, snapshot *Record) {
	if err := s.store.Upsert(ctx, snapshot); err != nil {
		s.log.LogErrorf("persist job %s: %v", snapshot.JobID, err)
	}
}
