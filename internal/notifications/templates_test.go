package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

func TestEveryTemplateHasABody(t *testing.T) {
	for name := range subjects {
		body, err := Render(name, map[string]string{"name": "سارة"})
		require.NoError(t, err, name)
		assert.Contains(t, body, "سارة", name)
		assert.NotContains(t, body, "{{", name)
	}
}

func TestRenderEscapesValues(t *testing.T) {
	body, err := Render(models.TemplateWelcomeParticipant, map[string]string{"name": `<script>alert(1)</script>`})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("nope", nil)
	assert.Error(t, err)
}

func TestSubjectSubstitutes(t *testing.T) {
	s := Subject(models.TemplateJudgeInvitation, map[string]string{"organization_name": "نادي البرمجة"})
	assert.Equal(t, "دعوة للانضمام كمحكّم في نادي البرمجة", s)
}

func TestNewRendersSubjectAndStartsPending(t *testing.T) {
	n := New(models.TemplateRegistrationReceived, "p@example.com", map[string]string{"hackathon_title": "هاك الرياض"}, nil)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, "تم استلام طلب تسجيلك في هاك الرياض", n.Subject)
}
