package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/backend/internal/models"
)

func testUser(role models.Role) *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com", Role: role}
}

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", 168)
	org := uuid.New()
	user := testUser(models.RoleAdmin)

	token, err := svc.Generate(user, &org)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.OrganizationID)
	assert.Equal(t, org, *claims.OrganizationID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateOmitsOrganizationForNonAdmins(t *testing.T) {
	svc := NewJWTService("secret", 1)
	org := uuid.New()

	token, err := svc.Generate(testUser(models.RoleJudge), &org)
	require.NoError(t, err)
	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Nil(t, claims.OrganizationID)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewJWTService("secret", 1)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Generate(testUser(models.RoleParticipant), nil)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(testUser(models.RoleParticipant), nil)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsTamperedAndMalformed(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(testUser(models.RoleParticipant), nil)
	require.NoError(t, err)

	other, err := svc.Generate(testUser(models.RoleMaster), nil)
	require.NoError(t, err)
	parts, otherParts := strings.Split(token, "."), strings.Split(other, ".")
	tampered := parts[0] + "." + otherParts[1] + "." + parts[2]
	for _, tok := range []string{tampered, "not-a-token", ""} {
		_, err := svc.Validate(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		UserID: uuid.New(),
		Role:   "master",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRequiresExpiry(t *testing.T) {
	claims := Claims{UserID: uuid.New(), Role: "participant"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMapsClaims(t *testing.T) {
	svc := NewJWTService("secret", 1)
	user := testUser(models.RoleSupervisor)
	token, err := svc.Generate(user, nil)
	require.NoError(t, err)

	p, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, models.RoleSupervisor, p.Role)
}
