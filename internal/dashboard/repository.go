package dashboard

import (
	"context"
	"time"

	"github.com/hackhub/backend/internal/tenant"
	"github.com/hackhub/backend/pkg/database"
	"github.com/hackhub/backend/pkg/metrics"
)

// Stats is the dashboard summary. Every figure is limited to the caller's
// scope.
type Stats struct {
	Hackathons           int `json:"hackathons"`
	ActiveHackathons     int `json:"active_hackathons"`
	Participants         int `json:"participants"`
	PendingParticipants  int `json:"pending_participants"`
	ApprovedParticipants int `json:"approved_participants"`
	RejectedParticipants int `json:"rejected_participants"`
	Teams                int `json:"teams"`
	Judges               int `json:"judges"`
	Supervisors          int `json:"supervisors"`
	PendingInvitations   int `json:"pending_invitations"`
}

// Repository computes dashboard aggregates.
type Repository struct {
	db database.DB
}

// NewRepository creates a dashboard repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Stats returns the summary for scope in a single round trip.
func (r *Repository) Stats(ctx context.Context, scope tenant.Scope) (*Stats, error) {
	defer metrics.TrackDBOperation("dashboard_stats")(time.Now())
	hkPred, args := scope.HackathonFilter("h", nil)
	judgePred, args := scope.OrganizationFilter("j.organization_id", args)
	supPred, args := scope.OrganizationFilter("s.organization_id", args)
	invPred, args := scope.OrganizationFilter("i.organization_id", args)

	q := `WITH hk AS (SELECT h.id, h.status FROM hackathons h WHERE ` + hkPred + `),
		pc AS (
			SELECT COUNT(*) AS total,
				COUNT(*) FILTER (WHERE p.status = 'pending') AS pending,
				COUNT(*) FILTER (WHERE p.status = 'approved') AS approved,
				COUNT(*) FILTER (WHERE p.status = 'rejected') AS rejected
			FROM participants p WHERE p.hackathon_id IN (SELECT id FROM hk)
		)
		SELECT
			(SELECT COUNT(*) FROM hk),
			(SELECT COUNT(*) FROM hk WHERE status IN ('published', 'open')),
			pc.total, pc.pending, pc.approved, pc.rejected,
			(SELECT COUNT(*) FROM teams t WHERE t.hackathon_id IN (SELECT id FROM hk)),
			(SELECT COUNT(DISTINCT j.user_id) FROM judges j WHERE j.is_active AND ` + judgePred + `),
			(SELECT COUNT(DISTINCT s.user_id) FROM supervisors s WHERE s.is_active AND ` + supPred + `),
			(SELECT COUNT(*) FROM invitations i WHERE i.status = 'pending' AND i.expires_at > NOW() AND ` + invPred + `)
		FROM pc`

	var s Stats
	err := r.db.QueryRow(ctx, q, args...).Scan(&s.Hackathons, &s.ActiveHackathons,
		&s.Participants, &s.PendingParticipants, &s.ApprovedParticipants, &s.RejectedParticipants,
		&s.Teams, &s.Judges, &s.Supervisors, &s.PendingInvitations)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
