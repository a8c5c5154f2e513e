package storage

import (
	"context"
	"sort"
	"sync"

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
)

// MemoryJobRepository in-memory хранилище задач
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*entity.Job
}

// NewMemoryJobRepository создаёт новое in-memory хранилище
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs: make(map[string]*entity.Job),
	}
}

// Get возвращает копию задачи по ID
func (r *MemoryJobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, exists := r.jobs[id]
	if !exists {
		return nil, entity.ErrJobNotFound
	}

	cp := *job
	return &cp, nil
}

// Save сохраняет копию задачи
func (r *MemoryJobRepository) Save(ctx context.Context, job *entity.Job) error {
	cp := *job

	r.mu.Lock()
	r.jobs[job.ID] = &cp
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние задачи
func (r *MemoryJobRepository) UpdateState(ctx context.Context, id string, state entity.JobState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[id]
	if !exists {
		return entity.ErrJobNotFound
	}
	job.SetState(state)

	return nil
}

// List возвращает последние задачи
func (r *MemoryJobRepository) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	r.mu.RLock()
	jobs := make([]*entity.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return jobs, nil
}

// Проверка реализации интерфейса
var _ port.JobRepository = (*MemoryJobRepository)(nil)
