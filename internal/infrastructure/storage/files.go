package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"object-detect/internal/domain/port"
)

// ErrInvalidName имя файла результата содержит путь.
var ErrInvalidName = errors.New("invalid file name")

// FileStore раскладывает загрузки и результаты по двум каталогам.
type FileStore struct {
	UploadDir  string
	ResultsDir string
}

func NewFileStore(uploadDir, resultsDir string) *FileStore {
	return &FileStore{UploadDir: uploadDir, ResultsDir: resultsDir}
}

// EnsureDirs создаёт оба каталога.
func (s *FileStore) EnsureDirs() error {
	if err := EnsureDir(s.UploadDir); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	if err := EnsureDir(s.ResultsDir); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	return nil
}

// UploadPath путь временной загрузки; каталог создаётся по требованию.
func (s *FileStore) UploadPath(jobID, ext string) (string, error) {
	if err := EnsureDir(s.UploadDir); err != nil {
		return "", err
	}
	return filepath.Join(s.UploadDir, "upload_"+jobID+ext), nil
}

// NewResultPath путь для нового артефакта; каталог создаётся по требованию.
func (s *FileStore) NewResultPath(name string) (string, error) {
	if err := EnsureDir(s.ResultsDir); err != nil {
		return "", err
	}
	return s.ResultPath(name)
}

// ResultPath путь существующего или будущего артефакта по имени из ответа.
func (s *FileStore) ResultPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.ResultsDir, name), nil
}

// UploadDirExists и ResultsDirExists используются в health-check.
func (s *FileStore) UploadDirExists() bool  { return dirExists(s.UploadDir) }
func (s *FileStore) ResultsDirExists() bool { return dirExists(s.ResultsDir) }

// Remove удаляет файл; отсутствие файла не считается ошибкой.
func (s *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureDir создаёт каталог со всеми родителями.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

var _ port.ArtifactStore = (*FileStore)(nil)
