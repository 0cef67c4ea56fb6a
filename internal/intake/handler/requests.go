package handler

import (
	"strings"

	"medinauts/internal/intake/models"
)

// ConsentRequest carries the disclaimer checkbox. confirmed must be present;
// false is forwarded so the service can reject it.
type ConsentRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

// FieldRequest is one manual edit. A null or empty value clears the field.
type FieldRequest struct {
	Value models.Value `json:"value"`
}

type PatientRequest struct {
	Name string `json:"name" validate:"max=120"`
}

// Normalize applies business defaults and sanitizes inputs.
func (r *PatientRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

// FeedbackRequest is the rating form shown when leaving a result.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Message string `json:"message" validate:"max=2000"`
}

// Normalize applies business defaults and sanitizes inputs.
func (r *FeedbackRequest) Normalize() {
	r.Message = strings.TrimSpace(r.Message)
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Normalize applies business defaults and sanitizes inputs.
func (r *EmailRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}
