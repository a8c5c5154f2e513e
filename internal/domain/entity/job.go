package entity

import (
	"errors"
	"time"
)

// ErrJobNotFound задача отсутствует в хранилище.
var ErrJobNotFound = errors.New("job not found")

// JobState состояние задачи обработки загрузки
type JobState string

const (
	StateReceived  JobState = "received"  // Запрос принят
	StateValidated JobState = "validated" // Файл прошёл проверку
	StateSaved     JobState = "saved"     // Файл сохранён во временную папку
	StateProcessed JobState = "processed" // Детекция завершена
	StateResponded JobState = "responded" // Ответ сформирован, загрузка удалена
	StateErrored   JobState = "errored"   // Обработка завершилась ошибкой
)

// Job представляет одну загрузку и её обработку
type Job struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Kind        MediaKind `json:"kind,omitempty"`
	State       JobState  `json:"state"`
	UploadPath  string    `json:"-"`
	ResultFile  string    `json:"result_file,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewJob создаёт задачу в начальном состоянии
func NewJob(id, filename, contentType string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		State:       StateReceived,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetState обновляет состояние задачи
func (j *Job) SetState(state JobState) {
	j.State = state
	j.UpdatedAt = time.Now().UTC()
}

// Fail переводит задачу в состояние ошибки
func (j *Job) Fail(err error) {
	j.Error = err.Error()
	j.SetState(StateErrored)
}
