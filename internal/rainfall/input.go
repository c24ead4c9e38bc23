package rainfall

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation marks input that was refused before reaching the store.
	ErrValidation = errors.New("invalid input")

	// ErrConfirmationRequired is returned when a destructive action was not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")
)

var validate = validator.New()

// GaugeInput is the submitted form for a new gauge.
type GaugeInput struct {
	Name        string   `json:"name" validate:"required"`
	Latitude    *float64 `json:"latitude" validate:"required"`
	Longitude   *float64 `json:"longitude" validate:"required"`
	Description string   `json:"description"`
}

// RecordInput is the submitted form for a new rainfall record.
// An empty Date means today.
type RecordInput struct {
	GaugeID string   `json:"gaugeId" validate:"required"`
	Amount  *float64 `json:"amount" validate:"required,gte=0"`
	Date    string   `json:"date" validate:"required,datetime=2006-01-02"`
}

func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
