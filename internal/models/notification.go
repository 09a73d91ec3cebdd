package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification templates.
const (
	TemplateWelcomeAdmin         = "welcome_admin"
	TemplateWelcomeParticipant   = "welcome_participant"
	TemplateSupervisorInvitation = "supervisor_invitation"
	TemplateJudgeInvitation      = "judge_invitation"
	TemplateRegistrationReceived = "registration_received"
	TemplateParticipantApproved  = "participant_approved"
	TemplateParticipantRejected  = "participant_rejected"
)

// NotificationStatus for delivery.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox row: written with the core change, delivered
// later by the dispatcher.
type Notification struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID *uuid.UUID        `json:"organization_id,omitempty"`
	Template       string            `json:"template"`
	RecipientEmail string            `json:"recipient_email"`
	Subject        string            `json:"subject"`
	Variables      map[string]string `json:"variables,omitempty"`
	Status         string            `json:"status"`
	Attempts       int               `json:"attempts"`
	LastError      string            `json:"last_error,omitempty"`
	Mocked         bool              `json:"mocked"`
	SentAt         *time.Time        `json:"sent_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
