package app

import (
	"context"
	"errors"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
)

// DefaultJobsLimit размер страницы истории задач.
const DefaultJobsLimit = 50

type JobService struct {
	repo port.JobRepository
}

func NewJobService(repo port.JobRepository) *JobService {
	return &JobService{repo: repo}
}

func (s *JobService) Get(ctx context.Context, id string) (*entity.Job, error) {
	job, err := s.repo.Get(ctx, id)
	if errors.Is(err, entity.ErrJobNotFound) {
		return nil, NotFoundError(MsgJobNotFound)
	}
	if err != nil {
		return nil, ProcessingError("Error reading job", err)
	}
	return job, nil
}

func (s *JobService) Save(ctx context.Context, job *entity.Job) error {
	return s.repo.Save(ctx, job)
}

func (s *JobService) UpdateState(ctx context.Context, id string, state entity.JobState) error {
	return s.repo.UpdateState(ctx, id, state)
}

func (s *JobService) Recent(ctx context.Context, limit int) ([]*entity.Job, error) {
	if limit <= 0 {
		limit = DefaultJobsLimit
	}
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, ProcessingError("Error listing jobs", err)
	}
	return jobs, nil
}
