package httpapi

import (
	_ "embed"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	app "object-detect/internal/application"
)

// multipartMemory часть формы, удерживаемая в памяти; остальное уходит во временные файлы.
const multipartMemory = 8 << 20

//go:embed static/index.html
var indexHTML []byte

// DirProber сообщает о наличии рабочих каталогов.
type DirProber interface {
	UploadDirExists() bool
	ResultsDirExists() bool
}

type Handler struct {
	detection *app.DetectionService
	jobs      *app.JobService
	dirs      DirProber
	log       logrus.FieldLogger
}

func NewHandler(detection *app.DetectionService, jobs *app.JobService, dirs DirProber, log logrus.FieldLogger) *Handler {
	return &Handler{
		detection: detection,
		jobs:      jobs,
		dirs:      dirs,
		log:       log,
	}
}

// IndexHandler отдаёт страницу загрузки GET /
func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// DetectHandler обрабатывает POST /detect
func (h *Handler) DetectHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, app.MsgFileTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, app.MsgNoFilePart, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// Часть с пустым filename multipart-парсер кладёт в обычные значения формы.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			respondError(w, app.MsgNoSelectedFile, http.StatusBadRequest)
			return
		}
		respondError(w, app.MsgNoFilePart, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" || header.Size == 0 {
		respondError(w, app.MsgNoSelectedFile, http.StatusBadRequest)
		return
	}

	report, err := h.detection.Detect(r.Context(), uploadFrom(file, header))
	if err != nil {
		h.respondAppError(w, err)
		return
	}

	respondJSON(w, report.Body(), http.StatusOK)
}

// ResultHandler отдаёт артефакт GET /results/{filename}
func (h *Handler) ResultHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]

	path, err := h.detection.ResultPath(name)
	if err != nil {
		h.log.WithField("file", name).Warn("result file not found")
		h.respondAppError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.log.WithError(err).WithField("file", name).Error("error serving result file")
		respondError(w, app.MsgFileNotFound, http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, app.MsgFileNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", resultContentType(name))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// HealthHandler проверка здоровья сервиса, всегда 200
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":             "healthy",
		"model_loaded":       h.detection.ModelLoaded(),
		"upload_dir_exists":  h.dirs.UploadDirExists(),
		"results_dir_exists": h.dirs.ResultsDirExists(),
		"timestamp":          time.Now().Format(time.RFC3339Nano),
	}, http.StatusOK)
}

// JobsHandler список последних задач GET /jobs?limit=N
func (h *Handler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	jobs, err := h.jobs.Recent(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("list jobs")
		h.respondAppError(w, err)
		return
	}

	respondJSON(w, map[string]any{"jobs": jobs}, http.StatusOK)
}

// JobHandler одна задача GET /jobs/{id}
func (h *Handler) JobHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	respondJSON(w, job, http.StatusOK)
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) app.Upload {
	return app.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}

func resultContentType(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".mp4") {
		return "video/mp4"
	}
	return "image/jpeg"
}

func (h *Handler) respondAppError(w http.ResponseWriter, err error) {
	var appErr *app.Error
	msg := err.Error()
	if errors.As(err, &appErr) && appErr.Kind != app.KindProcessing {
		msg = appErr.Message
	}

	switch app.KindOf(err) {
	case app.KindValidation:
		respondError(w, msg, http.StatusBadRequest)
	case app.KindNotFound:
		respondError(w, msg, http.StatusNotFound)
	default:
		respondError(w, msg, http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
