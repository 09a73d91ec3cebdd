package notifications

import (
	"embed"
	"fmt"
	"html"
	"regexp"

	"github.com/hackhub/backend/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// subjects holds the subject line per template. Subjects accept the same
// {{variable}} placeholders as bodies.
var subjects = map[string]string{
	models.TemplateWelcomeAdmin:         "مرحباً بك في {{organization_name}}",
	models.TemplateWelcomeParticipant:   "تم إنشاء حسابك بنجاح",
	models.TemplateSupervisorInvitation: "دعوة للانضمام كمشرف في {{organization_name}}",
	models.TemplateJudgeInvitation:      "دعوة للانضمام كمحكّم في {{organization_name}}",
	models.TemplateRegistrationReceived: "تم استلام طلب تسجيلك في {{hackathon_title}}",
	models.TemplateParticipantApproved:  "تم قبول مشاركتك في {{hackathon_title}}",
	models.TemplateParticipantRejected:  "تحديث بخصوص طلبك في {{hackathon_title}}",
}

var placeholder = regexp.MustCompile(`{{\s*([a-zA-Z0-9_]+)\s*}}`)

// Known reports whether name is a registered template.
func Known(name string) bool {
	_, ok := subjects[name]
	return ok
}

// Subject renders the subject line of template name.
func Subject(name string, vars map[string]string) string {
	return substitute(subjects[name], vars, false)
}

// Render renders the HTML body of template name. Variable values are
// HTML-escaped; unknown placeholders render empty.
func Render(name string, vars map[string]string) (string, error) {
	if !Known(name) {
		return "", fmt.Errorf("unknown template %q", name)
	}
	raw, err := templateFS.ReadFile("templates/" + name + ".html")
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	return substitute(string(raw), vars, true), nil
}

func substitute(s string, vars map[string]string, escape bool) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v := vars[key]
		if escape {
			return html.EscapeString(v)
		}
		return v
	})
}
