package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackhub/backend/internal/hackathons"
	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
)

var (
	// ErrNotFound is returned for a missing or out-of-scope team.
	ErrNotFound = errors.New("team not found")
	// ErrNameTaken is returned when the hackathon already has a team with
	// the name.
	ErrNameTaken = errors.New("team name taken")
	// ErrNotEligible is returned when the participant is not an approved
	// participant of the team's hackathon.
	ErrNotEligible = errors.New("participant not eligible")
	// ErrTeamFull is returned when the team reached max_team_size.
	ErrTeamFull = errors.New("team is full")
	// ErrAlreadyInTeam is returned when the participant belongs to another team.
	ErrAlreadyInTeam = errors.New("participant already in a team")
)

const teamColumns = `t.id, t.hackathon_id, t.name, t.project_name, t.project_description, t.project_url,
	(SELECT COUNT(*) FROM participants m WHERE m.team_id = t.id),
	(SELECT AVG(s.score)::float8 FROM team_scores s WHERE s.team_id = t.id),
	t.created_at, t.updated_at`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(&t.ID, &t.HackathonID, &t.Name, &t.ProjectName, &t.ProjectDescription, &t.ProjectURL,
		&t.MemberCount, &t.AverageScore, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Repository handles team, membership and score persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a teams repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts t into its hackathon if the hackathon is visible to scope.
func (r *Repository) Create(ctx context.Context, scope tenant.Scope, t *models.Team) error {
	pred, args := scope.HackathonFilter("h", []any{t.HackathonID, t.Name, t.ProjectName, t.ProjectDescription, t.ProjectURL})
	q := `INSERT INTO teams (hackathon_id, name, project_name, project_description, project_url)
		SELECT h.id, $2, $3, $4, $5 FROM hackathons h WHERE h.id = $1 AND ` + pred + `
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, args...).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	switch {
	case database.IsNotFound(err):
		return hackathons.ErrNotFound
	case database.IsUniqueViolation(err, ""):
		return ErrNameTaken
	}
	return err
}

// List returns teams of hackathons visible to scope, best average first.
func (r *Repository) List(ctx context.Context, scope tenant.Scope, hackathonID *uuid.UUID) ([]*models.Team, error) {
	pred, args := scope.HackathonFilter("h", nil)
	q := `SELECT ` + teamColumns + ` FROM teams t INNER JOIN hackathons h ON h.id = t.hackathon_id WHERE ` + pred
	if hackathonID != nil {
		args = append(args, *hackathonID)
		q += fmt.Sprintf(" AND t.hackathon_id = $%d", len(args))
	}
	q += " ORDER BY 8 DESC NULLS LAST, t.name ASC"
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Get returns a team visible to scope.
func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*models.Team, error) {
	pred, args := scope.HackathonFilter("h", []any{id})
	t, err := scanTeam(r.db.QueryRow(ctx, `SELECT `+teamColumns+`
		FROM teams t INNER JOIN hackathons h ON h.id = t.hackathon_id
		WHERE t.id = $1 AND `+pred, args...))
	if database.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return t, err
}

// AddMember puts an approved participant of the team's hackathon into the
// team. The team row is locked so concurrent adds respect max_team_size.
func (r *Repository) AddMember(ctx context.Context, scope tenant.Scope, teamID, participantID uuid.UUID) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		pred, args := scope.HackathonFilter("h", []any{teamID})
		var hackathonID uuid.UUID
		var maxSize int
		err := tx.QueryRow(ctx, `SELECT t.hackathon_id, h.max_team_size
			FROM teams t INNER JOIN hackathons h ON h.id = t.hackathon_id
			WHERE t.id = $1 AND `+pred+` FOR UPDATE OF t`, args...).Scan(&hackathonID, &maxSize)
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var (
			pHackathon uuid.UUID
			status     string
			current    *uuid.UUID
		)
		err = tx.QueryRow(ctx, `SELECT hackathon_id, status, team_id FROM participants WHERE id = $1 FOR UPDATE`,
			participantID).Scan(&pHackathon, &status, &current)
		if database.IsNotFound(err) {
			return ErrNotEligible
		}
		if err != nil {
			return err
		}
		if pHackathon != hackathonID || models.ParticipantStatus(status) != models.ParticipantApproved {
			return ErrNotEligible
		}
		if current != nil {
			if *current == teamID {
				return nil
			}
			return ErrAlreadyInTeam
		}

		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM participants WHERE team_id = $1`, teamID).Scan(&n); err != nil {
			return err
		}
		if maxSize > 0 && n >= maxSize {
			return ErrTeamFull
		}
		_, err = tx.Exec(ctx, `UPDATE participants SET team_id = $2, updated_at = NOW() WHERE id = $1`, participantID, teamID)
		return err
	})
}

// RemoveMember takes a participant out of a team visible to scope.
func (r *Repository) RemoveMember(ctx context.Context, scope tenant.Scope, teamID, participantID uuid.UUID) error {
	pred, args := scope.HackathonFilter("h", []any{teamID, participantID})
	tag, err := r.db.Exec(ctx, `UPDATE participants p SET team_id = NULL, updated_at = NOW()
		FROM teams t INNER JOIN hackathons h ON h.id = t.hackathon_id
		WHERE t.id = $1 AND p.id = $2 AND p.team_id = t.id AND `+pred, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Members returns the participants of a team.
func (r *Repository) Members(ctx context.Context, teamID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.db.Query(ctx, `SELECT id, full_name, email FROM participants WHERE team_id = $1 ORDER BY full_name`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Score records judgeID's score for a team visible to scope, replacing any
// earlier score by the same judge.
func (r *Repository) Score(ctx context.Context, scope tenant.Scope, s *models.TeamScore) error {
	pred, args := scope.HackathonFilter("h", []any{s.TeamID, s.JudgeUserID, s.Score, s.Notes})
	q := `INSERT INTO team_scores (team_id, judge_user_id, score, notes)
		SELECT t.id, $2, $3, $4 FROM teams t INNER JOIN hackathons h ON h.id = t.hackathon_id
		WHERE t.id = $1 AND ` + pred + `
		ON CONFLICT (team_id, judge_user_id) DO UPDATE SET score = EXCLUDED.score, notes = EXCLUDED.notes, updated_at = NOW()
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, args...).Scan(&s.UpdatedAt)
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// ScoreRow is one line of a team export.
type ScoreRow struct {
	Team    models.Team
	Members []string
}

// ExportRows returns every team of a hackathon with member names.
func (r *Repository) ExportRows(ctx context.Context, scope tenant.Scope, hackathonID uuid.UUID) ([]ScoreRow, error) {
	list, err := r.List(ctx, scope, &hackathonID)
	if err != nil {
		return nil, err
	}
	out := make([]ScoreRow, 0, len(list))
	for _, t := range list {
		members, err := r.Members(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		row := ScoreRow{Team: *t}
		for _, m := range members {
			row.Members = append(row.Members, m.FullName)
		}
		out = append(out, row)
	}
	return out, nil
}

