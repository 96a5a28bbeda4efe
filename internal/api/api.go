package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"testimonial-api/internal/config"
	"testimonial-api/internal/logger"
	"testimonial-api/internal/model"
)

// DocumentStore is the persistence contract the handlers need.
type DocumentStore interface {
	CreateDocument(ctx context.Context, collection string, payload any) (string, error)
	GetDocuments(ctx context.Context, collection string, filter any, limit int64) ([]bson.M, error)
	HealthCheck(ctx context.Context) string
}

// EventPublisher announces stored testimonials. Optional.
type EventPublisher interface {
	PublishFeedbackCreated(ev model.CreatedEvent) error
}

type API struct {
	Routers *chi.Mux
	Store   DocumentStore
	Events  EventPublisher
	Cfg     *config.Config

	log *zap.SugaredLogger
}

func NewAPI(store DocumentStore, events EventPublisher, cfg *config.Config) *API {
	return &API{
		Routers: chi.NewRouter(),
		Store:   store,
		Events:  events,
		Cfg:     cfg,
		log:     logger.GetLogger(),
	}
}
