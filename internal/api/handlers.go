package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/bson"

	"testimonial-api/internal/logger"
	"testimonial-api/internal/metrics"
	"testimonial-api/internal/model"
)

const (
	testimonialCollection = "testimonial"
	maxBodyBytes          = 64 << 10
)

func (a *API) Router() http.Handler {
	a.Routers.Use(
		middleware.RequestID,
		middleware.RealIP,
		a.accessLog,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   a.Cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	a.Routers.Get("/test", a.Health)
	a.Routers.Post("/feedback", a.CreateFeedback)
	a.Routers.Get("/testimonials", a.ListTestimonials)

	a.Routers.Handle("/metrics", metrics.Handler())
	a.Routers.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return a.Routers
}

// @Summary Service and database status
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /test [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		DB:     a.Store.HealthCheck(r.Context()),
	})
}

// @Summary Submit feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param body body model.Submission true "Feedback payload"
// @Success 200 {object} CreateResponse
// @Failure 422 {object} ValidationErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /feedback [post]
func (a *API) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	sub, err := model.DecodeSubmission(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.FeedbackSubmissions.WithLabelValues("invalid").Inc()
		a.writeError(w, err)
		return
	}

	id, err := a.Store.CreateDocument(r.Context(), testimonialCollection, sub)
	if err != nil {
		metrics.FeedbackSubmissions.WithLabelValues("error").Inc()
		a.log.Errorw("Failed to store feedback", "error", err)
		a.writeError(w, err)
		return
	}
	metrics.FeedbackSubmissions.WithLabelValues("created").Inc()

	fields := []any{"id", id}
	if sub.Email != nil {
		fields = append(fields, "email", logger.MaskEmail(*sub.Email))
	}
	a.log.Infow("Feedback stored", fields...)

	a.publishCreated(id, sub)

	writeJSON(w, http.StatusOK, CreateResponse{OK: true, ID: id})
}

// @Summary List recent testimonials, newest first
// @Tags Feedback
// @Produce json
// @Param limit query int false "Maximum number of records" default(5)
// @Success 200 {array} model.Record
// @Failure 422 {object} ValidationErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /testimonials [get]
func (a *API) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	limit, err := a.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	docs, err := a.Store.GetDocuments(r.Context(), testimonialCollection, bson.D{}, int64(limit))
	if err != nil {
		a.log.Errorw("Failed to list testimonials", "error", err)
		a.writeError(w, err)
		return
	}

	records := model.RecordsFromDocuments(docs)
	model.SortNewestFirst(records)
	writeJSON(w, http.StatusOK, records)
}

// parseLimit applies the default for an empty value, rejects non-integers
// and values below 1, and clamps to the configured maximum.
func (a *API) parseLimit(raw string) (int, error) {
	if raw == "" {
		return a.Cfg.API.DefaultLimit, nil
	}
	loc := []string{"query", "limit"}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(loc, "Input should be a valid integer, unable to parse string as an integer", "int_parsing")
	}
	if n < 1 {
		return 0, model.NewValidationError(loc, "Input should be greater than or equal to 1", "greater_than_equal")
	}
	return min(n, a.Cfg.API.MaxLimit), nil
}

func (a *API) publishCreated(id string, sub *model.Submission) {
	if a.Events == nil {
		return
	}
	ev := model.CreatedEvent{
		ID:        id,
		Name:      sub.Name,
		Rating:    sub.Rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Events.PublishFeedbackCreated(ev); err != nil {
		a.log.Warnw("Failed to publish feedback event", "id", id, "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: verr.Issues})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
}
