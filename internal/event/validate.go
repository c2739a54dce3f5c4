package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Validation limit constants
const (
	MaxIDLength    = 128
	MaxColorLength = 50
	MaxCoordinate  = 1000000
	MinCoordinate  = -1000000
)

// Validator: validation and sanitization of inbound event payloads
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

func NewValidator() *Validator {
	// removes all HTML/scripts from client-supplied strings
	policy := bluemonday.StrictPolicy()

	return &Validator{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: policy,
	}
}

// Sanitize strips HTML/scripts from a client-supplied string.
func (v *Validator) Sanitize(s string) string {
	return v.sanitizer.Sanitize(s)
}

// DecodeJoin parses and sanitizes a join-canvas payload.
func (v *Validator) DecodeJoin(msg []byte) (*Join, error) {
	var p Join
	if err := json.Unmarshal(msg, &p); err != nil {
		return nil, fmt.Errorf("unmarshal join payload: %w", err)
	}

	p.CanvasID = v.Sanitize(p.CanvasID)
	p.UserID = v.Sanitize(p.UserID)

	if err := v.validate.Struct(&p); err != nil {
		return nil, formatValidationError(err)
	}
	return &p, nil
}

// DecodeDrawing parses, sanitizes and bounds-checks a drawing payload.
func (v *Validator) DecodeDrawing(msg []byte) (*Drawing, error) {
	var p Drawing
	if err := json.Unmarshal(msg, &p); err != nil {
		return nil, fmt.Errorf("unmarshal drawing payload: %w", err)
	}

	p.CanvasID = v.Sanitize(p.CanvasID)
	p.UserID = v.Sanitize(p.UserID)
	p.Color = v.Sanitize(p.Color)

	if err := v.validate.Struct(&p); err != nil {
		return nil, formatValidationError(err)
	}
	return &p, nil
}

// DecodeDrawState parses and sanitizes a start-drawing/stop-drawing payload.
func (v *Validator) DecodeDrawState(msg []byte) (*DrawState, error) {
	var p DrawState
	if err := json.Unmarshal(msg, &p); err != nil {
		return nil, fmt.Errorf("unmarshal draw state payload: %w", err)
	}

	p.CanvasID = v.Sanitize(p.CanvasID)
	p.UserID = v.Sanitize(p.UserID)

	if err := v.validate.Struct(&p); err != nil {
		return nil, formatValidationError(err)
	}
	return &p, nil
}

// formatValidationError converts validator errors to a compact message
func formatValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", formatSingleError(errs[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func formatSingleError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "min", "max":
		return fmt.Sprintf("'%s' value out of allowed range", field)
	default:
		return fmt.Sprintf("'%s' is invalid", field)
	}
}
