package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("GMAIL_USER", "")
	t.Setenv("GMAIL_PASS", "")
	t.Setenv("JWT_EXPIRE_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 168, cfg.JWT.ExpireHours)
	assert.Equal(t, 168, cfg.Invitation.TTLHours)
	assert.True(t, cfg.Email.Mocked())
}

func TestLoadGmailFallback(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("EMAIL_FROM_ADDRESS", "")
	t.Setenv("GMAIL_USER", "events@gmail.com")
	t.Setenv("GMAIL_PASS", "app-password")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPHost)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "events@gmail.com", cfg.Email.FromAddress)
	assert.False(t, cfg.Email.Mocked())
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/db"
	assert.Equal(t, "postgres://elsewhere/db", c.DSN())
}
