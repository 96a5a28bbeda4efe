// internal/model/feedback.go
package model

import (
	"time"
)

// Submission is the client payload for POST /feedback. Identity and
// timestamps are assigned on insert.
type Submission struct {
	Name    string  `json:"name" bson:"name" validate:"required,min=1,max=120"`
	Email   *string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Message string  `json:"message" bson:"message" validate:"required,min=5,max=2000"`
	Rating  *int    `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Social  *string `json:"social,omitempty" bson:"social,omitempty" validate:"omitempty,max=200"`
}

// Record is a stored testimonial as returned to clients. Rating and
// CreatedAt are nil when the stored document lacks them.
type Record struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Message   string     `json:"message"`
	Rating    *int       `json:"rating"`
	CreatedAt *time.Time `json:"created_at"`
}

// CreatedEvent is published after a submission has been stored.
type CreatedEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    *int      `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
