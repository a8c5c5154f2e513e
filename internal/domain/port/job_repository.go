package port

import (
	"context"

	"object-detect/internal/domain/entity"
)

// JobRepository интерфейс хранилища задач
type JobRepository interface {
	// Get возвращает задачу по ID или entity.ErrJobNotFound
	Get(ctx context.Context, id string) (*entity.Job, error)

	// Save сохраняет задачу целиком
	Save(ctx context.Context, job *entity.Job) error

	// UpdateState обновляет состояние задачи
	UpdateState(ctx context.Context, id string, state entity.JobState) error

	// List возвращает последние задачи, новые первыми
	List(ctx context.Context, limit int) ([]*entity.Job, error)
}
