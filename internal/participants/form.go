package participants

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hackhub/backend/internal/models"
)

var answerValidator = validator.New()

// FieldError reports a registration answer that does not satisfy the
// hackathon's form.
type FieldError struct {
	Field string
	Label string
	Issue string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Issue)
}

// CleanAnswers checks answers against the form definition and returns the
// answers to store. Keys not in the form are dropped.
func CleanAnswers(fields []models.FormField, answers map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(answers[f.ID])
		if v == "" {
			if f.Required {
				return nil, &FieldError{Field: f.ID, Label: f.Label, Issue: "required"}
			}
			continue
		}
		if err := checkType(f, v); err != nil {
			return nil, err
		}
		out[f.ID] = v
	}
	return out, nil
}

func checkType(f models.FormField, v string) error {
	bad := &FieldError{Field: f.ID, Label: f.Label, Issue: "invalid " + f.Type}
	switch f.Type {
	case "email", "url":
		if answerValidator.Var(v, f.Type) != nil {
			return bad
		}
	case "number":
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return bad
		}
	case "select":
		for _, o := range f.Options {
			if o == v {
				return nil
			}
		}
		return bad
	}
	return nil
}
