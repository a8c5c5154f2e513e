package port

// ArtifactStore выдаёт пути временных загрузок и результатов
type ArtifactStore interface {
	// UploadPath путь временного файла задачи
	UploadPath(jobID, ext string) (string, error)

	// NewResultPath путь нового артефакта, каталог создаётся при необходимости
	NewResultPath(name string) (string, error)

	// ResultPath путь существующего артефакта по имени из ответа
	ResultPath(name string) (string, error)

	// Remove удаляет файл; отсутствие файла не ошибка
	Remove(path string) error
}
