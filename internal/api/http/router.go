package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	app "object-detect/internal/application"
)

// NewRouter регистрирует маршруты сервиса.
func NewRouter(h *Handler, log logrus.FieldLogger) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware, loggingMiddleware(log))

	r.HandleFunc("/", h.IndexHandler).Methods(http.MethodGet)
	r.HandleFunc("/detect", h.DetectHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/results/{filename}", h.ResultHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/jobs", h.JobsHandler).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", h.JobHandler).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	return r
}

// notFoundHandler отвечает JSON и для путей, не попавших ни в один маршрут.
func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	msg := "Not found"
	if strings.HasPrefix(r.URL.Path, "/results/") {
		msg = app.MsgFileNotFound
	}
	respondError(w, msg, http.StatusNotFound)
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// corsMiddleware добавляет CORS заголовки
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(log logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Info("request")
		})
	}
}
