package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/haimph/transfer-approval-api/internal/models"
	appErrors "github.com/haimph/transfer-approval-api/pkg/errors"
)

type authRepoStub struct {
	users         map[string]*models.User
	tokens        map[string]*models.RefreshToken
	revokedAll    []string
	revokedIDs    []string
	lastLoginSet  bool
	auditActions  []string
	createdTokens []*models.RefreshToken
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
}

func (r *authRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	r.lastLoginSet = true
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revokedAll = append(r.revokedAll, userID)
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.createdTokens = append(r.createdTokens, token)
	r.tokens[token.Token] = token
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := r.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	r.revokedIDs = append(r.revokedIDs, id)
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.auditActions = append(r.auditActions, log.Action)
	return nil
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             "transfer-approval-api",
		SingleSession:      true,
	})
}

func seedUser(repo *authRepoStub, t *testing.T) *models.User {
	t.Helper()
	msnv := "10001"
	user := &models.User{
		ID:           "user-1",
		Username:     "supervisor1",
		PasswordHash: hashPassword(t, "s3cret"),
		Role:         models.RoleSupervisor,
		MSNV:         &msnv,
		Active:       true,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newAuthRepoStub()
	seedUser(repo, t)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "s3cret", IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(900), res.ExpiresIn)
	assert.Equal(t, "supervisor1", res.User.Username)
	assert.Equal(t, models.RoleSupervisor, res.User.Role)
	assert.Equal(t, "10001", res.User.MSNV)

	assert.True(t, repo.lastLoginSet)
	assert.Equal(t, []string{"user-1"}, repo.revokedAll)
	require.Len(t, repo.createdTokens, 1)
	assert.Equal(t, "10.0.0.1", repo.createdTokens[0].IPAddress)
	assert.Contains(t, repo.auditActions, models.AuditActionLogin)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	seedUser(repo, t)
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.createdTokens)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	repo := newAuthRepoStub()
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(repo, t)
	user.Active = false
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginValidatesPayload(t *testing.T) {
	svc := newTestAuthService(newAuthRepoStub())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	repo := newAuthRepoStub()
	seedUser(repo, t)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "s3cret"})
	require.NoError(t, err)

	parsed, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.UserID)
	assert.Equal(t, models.RoleSupervisor, parsed.Role)
	assert.Equal(t, "supervisor1", parsed.Username)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := newAuthRepoStub()
	seedUser(repo, t)
	issuer := newTestAuthService(repo)

	res, err := issuer.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "s3cret"})
	require.NoError(t, err)

	other := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Minute,
	})
	_, err = other.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newAuthRepoStub()
	seedUser(repo, t)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "s3cret"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), res.RefreshToken, "user-1", models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	require.Len(t, repo.revokedIDs, 1)
	assert.Contains(t, repo.auditActions, models.AuditActionLogout)
}

func TestAuthServiceLogoutForeignToken(t *testing.T) {
	repo := newAuthRepoStub()
	seedUser(repo, t)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "supervisor1", Password: "s3cret"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), res.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.revokedIDs)
}

func TestAuthServiceLogoutUnknownToken(t *testing.T) {
	svc := newTestAuthService(newAuthRepoStub())

	err := svc.Logout(context.Background(), "missing", "user-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
