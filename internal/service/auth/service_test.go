package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinica-valencia/clinic-api/internal/model"
	"github.com/clinica-valencia/clinic-api/internal/repository"
	jwtauth "github.com/clinica-valencia/clinic-api/pkg/auth"
	"github.com/clinica-valencia/clinic-api/pkg/hash"
	"github.com/clinica-valencia/clinic-api/pkg/logger"
)

// Low iteration count keeps the hashing in these tests fast.
const testIterations = 1000

type fakeAccountRepo struct {
	repository.AccountRepository

	byIdentifier map[string]*model.Account
	byID         map[uuid.UUID]*model.Account

	credentialUpdates []string
	lastLoginTouched  int
}

func newFakeAccountRepo(accounts ...*model.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{
		byIdentifier: make(map[string]*model.Account),
		byID:         make(map[uuid.UUID]*model.Account),
	}
	for _, a := range accounts {
		r.byIdentifier[a.Username] = a
		r.byIdentifier[a.Email] = a
		r.byID[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*model.Account, error) {
	a, ok := r.byIdentifier[identifier]
	if !ok || !a.Active {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) Get(_ context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) UpdateCredential(_ context.Context, id uuid.UUID, credential string) error {
	r.credentialUpdates = append(r.credentialUpdates, credential)
	if a, ok := r.byID[id]; ok {
		a.Credential = credential
	}
	return nil
}

func (r *fakeAccountRepo) TouchLastLogin(_ context.Context, _ uuid.UUID) error {
	r.lastLoginTouched++
	return nil
}

type fakeTokenRepo struct {
	revoked map[string]time.Duration
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{revoked: make(map[string]time.Duration)}
}

func (r *fakeTokenRepo) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl > 0 {
		r.revoked[token] = ttl
	}
	return nil
}

func (r *fakeTokenRepo) IsRevoked(_ context.Context, token string) (bool, error) {
	_, ok := r.revoked[token]
	return ok, nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func testJWT() jwtauth.JWTService {
	return jwtauth.NewJWTService(jwtauth.Config{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
}

func newTestService(accounts *fakeAccountRepo, tokens *fakeTokenRepo, suffixMatch bool) Service {
	return NewService(accounts, tokens, testJWT(), hash.New(testIterations), suffixMatch, testLogger())
}

func hashedAccount(t *testing.T, username, password string) *model.Account {
	t.Helper()
	encoded, err := hash.New(testIterations).Hash(password)
	require.NoError(t, err)
	return &model.Account{
		Base:       model.Base{ID: uuid.New()},
		Username:   username,
		Email:      username + "@clinic.test",
		Credential: encoded,
		Role:       model.RolePractitioner,
		Active:     true,
	}
}

func plaintextAccount(username, password string) *model.Account {
	return &model.Account{
		Base:       model.Base{ID: uuid.New()},
		Username:   username,
		Email:      username + "@clinic.test",
		Credential: password,
		Role:       model.RolePatient,
		Active:     true,
	}
}

func TestLoginRejectsEmptyFields(t *testing.T) {
	svc := newTestService(newFakeAccountRepo(), newFakeTokenRepo(), false)

	for _, req := range []*model.LoginRequest{
		{Identifier: "", Password: "whatever"},
		{Identifier: "someone", Password: ""},
		{Identifier: "", Password: ""},
	} {
		_, _, err := svc.Login(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestLoginUnknownIdentifierIsOpaque(t *testing.T) {
	svc := newTestService(newFakeAccountRepo(), newFakeTokenRepo(), false)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "ghost", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWithHashedCredential(t *testing.T) {
	account := hashedAccount(t, "drsmith", "secret123")
	repo := newFakeAccountRepo(account)
	svc := newTestService(repo, newFakeTokenRepo(), false)

	tokens, logged, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "drsmith", Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, account.ID, logged.ID)

	// A hashed credential is never rewritten by a login.
	assert.Empty(t, repo.credentialUpdates)
	assert.Equal(t, 1, repo.lastLoginTouched)
}

func TestLoginWithHashedCredentialWrongPassword(t *testing.T) {
	repo := newFakeAccountRepo(hashedAccount(t, "drsmith", "secret123"))
	svc := newTestService(repo, newFakeTokenRepo(), false)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "drsmith", Password: "secret124",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, repo.credentialUpdates)
	assert.Zero(t, repo.lastLoginTouched)
}

func TestLoginUpgradesPlaintextCredential(t *testing.T) {
	account := plaintextAccount("maria", "secret123")
	repo := newFakeAccountRepo(account)
	svc := newTestService(repo, newFakeTokenRepo(), false)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "maria", Password: "secret123",
	})
	require.NoError(t, err)

	require.Len(t, repo.credentialUpdates, 1)
	upgraded := repo.credentialUpdates[0]
	assert.True(t, hash.IsEncoded(upgraded))
	assert.True(t, hash.New(testIterations).Verify("secret123", upgraded))

	// The second login verifies against the hash and migrates nothing.
	_, _, err = svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "maria", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Len(t, repo.credentialUpdates, 1)
}

func TestLoginPlaintextWrongPassword(t *testing.T) {
	repo := newFakeAccountRepo(plaintextAccount("maria", "secret123"))
	svc := newTestService(repo, newFakeTokenRepo(), false)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "maria", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, repo.credentialUpdates)
}

func TestLoginSuffixMatchDisabledByDefault(t *testing.T) {
	repo := newFakeAccountRepo(plaintextAccount("maria", "secret123"))
	svc := newTestService(repo, newFakeTokenRepo(), false)

	// "123" is a suffix of the stored plaintext but not the full password.
	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "maria", Password: "123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSuffixMatchWhenEnabled(t *testing.T) {
	repo := newFakeAccountRepo(plaintextAccount("maria", "secret123"))
	svc := newTestService(repo, newFakeTokenRepo(), true)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "maria", Password: "123",
	})
	require.NoError(t, err)

	// The accepted password is what gets hashed, so the next login must use
	// the suffix, not the original plaintext.
	require.Len(t, repo.credentialUpdates, 1)
	assert.True(t, hash.New(testIterations).Verify("123", repo.credentialUpdates[0]))
}

func TestLoginByEmail(t *testing.T) {
	repo := newFakeAccountRepo(hashedAccount(t, "drsmith", "secret123"))
	svc := newTestService(repo, newFakeTokenRepo(), false)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "drsmith@clinic.test", Password: "secret123",
	})
	assert.NoError(t, err)
}

func TestLogoutRevokesToken(t *testing.T) {
	account := hashedAccount(t, "drsmith", "secret123")
	repo := newFakeAccountRepo(account)
	tokens := newFakeTokenRepo()
	svc := newTestService(repo, tokens, false)

	issued, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "drsmith", Password: "secret123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)

	require.NoError(t, svc.Logout(context.Background(), issued.AccessToken))

	_, err = svc.ValidateToken(context.Background(), issued.AccessToken)
	assert.Error(t, err)
}

func TestLogoutGarbageToken(t *testing.T) {
	svc := newTestService(newFakeAccountRepo(), newFakeTokenRepo(), false)
	assert.Error(t, svc.Logout(context.Background(), "not-a-jwt"))
}

func TestRefreshIssuesNewTokens(t *testing.T) {
	account := hashedAccount(t, "drsmith", "secret123")
	repo := newFakeAccountRepo(account)
	svc := newTestService(repo, newFakeTokenRepo(), false)

	issued, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "drsmith", Password: "secret123",
	})
	require.NoError(t, err)

	fresh, err := svc.Refresh(context.Background(), issued.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	// An access token is signed with a different secret and must not pass as
	// a refresh token.
	_, err = svc.Refresh(context.Background(), issued.AccessToken)
	assert.Error(t, err)
}

func TestRefreshInactiveAccount(t *testing.T) {
	account := hashedAccount(t, "drsmith", "secret123")
	repo := newFakeAccountRepo(account)
	svc := newTestService(repo, newFakeTokenRepo(), false)

	issued, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Identifier: "drsmith", Password: "secret123",
	})
	require.NoError(t, err)

	account.Active = false
	_, err = svc.Refresh(context.Background(), issued.RefreshToken)
	assert.Error(t, err)
}
