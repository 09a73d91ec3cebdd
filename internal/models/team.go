package models

import (
	"time"

	"github.com/google/uuid"
)

// Team groups approved participants of one hackathon.
type Team struct {
	ID                 uuid.UUID `json:"id"`
	HackathonID        uuid.UUID `json:"hackathon_id"`
	Name               string    `json:"name"`
	ProjectName        string    `json:"project_name"`
	ProjectDescription string    `json:"project_description"`
	ProjectURL         string    `json:"project_url"`
	MemberCount        int       `json:"member_count"`
	AverageScore       *float64  `json:"average_score,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TeamScore is one judge's score for a team.
type TeamScore struct {
	TeamID      uuid.UUID `json:"team_id"`
	JudgeUserID uuid.UUID `json:"judge_user_id"`
	Score       float64   `json:"score"`
	Notes       string    `json:"notes,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
