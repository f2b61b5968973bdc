package extract

import (
	"context"
	"path/filepath"

	"routeplan/internal/logger"
	"routeplan/internal/platform/storage"
)

// Service handles one-shot address extraction without job
// orchestration. The upload only lives for the duration of the run.
type Service struct {
	storage  *storage.Service
	source   Source
	pipeline *Pipeline
	log      *logger.Logger
}

func NewService(store *storage.Service, source Source, pipeline *Pipeline) *Service {
	return &Service{
		storage:  store,
		source:   source,
		pipeline: pipeline,
		log:      logger.New("ExtractService"),
	}
}

func (s *Service) Extract(ctx context.Context, data []byte, filename string) ([]Candidate, error) {
	path, err := s.storage.SaveBytes(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.storage.Remove(path); err != nil {
			s.log.LogWarnf("failed to remove temporary image %s: %v", path, err)
		}
	}()

	lines, err := s.source.Lines(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, lines), nil
}
