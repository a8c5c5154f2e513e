package port

import (
	"context"

	"object-detect/internal/domain/entity"
)

// ResultNotifier интерфейс отправки уведомлений о готовых результатах
type ResultNotifier interface {
	// Notify отправляет сводку и файл результата
	Notify(ctx context.Context, report *entity.Report, resultPath string) error
}
