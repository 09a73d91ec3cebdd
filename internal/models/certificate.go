package models

import (
	"time"

	"github.com/google/uuid"
)

// CertificateTemplate places the participant name on a hackathon's
// certificate image. NameX and NameY are fractions of the image size.
type CertificateTemplate struct {
	HackathonID uuid.UUID `json:"hackathon_id"`
	ImageKey    string    `json:"image_key"`
	NameX       float64   `json:"name_x"`
	NameY       float64   `json:"name_y"`
	FontSize    float64   `json:"font_size"`
	Color       string    `json:"color"`
	UpdatedAt   time.Time `json:"updated_at"`
}
