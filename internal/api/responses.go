package api

import (
	"encoding/json"
	"net/http"

	"testimonial-api/internal/model"
)

type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

type CreateResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type ValidationErrorResponse struct {
	Detail []model.Issue `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
