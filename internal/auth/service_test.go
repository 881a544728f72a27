package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/tokens"
)

// fakeRepo is an in-memory accounts.Repository for service tests.
type fakeRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) Insert(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeRepo) StoreSession(_ context.Context, id primitive.ObjectID, sessionToken, refreshHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return errors.New("no such user")
	}
	u.SessionToken = sessionToken
	u.RefreshTokenHash = refreshHash
	return nil
}

func (f *fakeRepo) ClearSession(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.SessionToken = ""
		u.RefreshTokenHash = ""
	}
	return nil
}

func (f *fakeRepo) AddEnrolledCourse(_ context.Context, id, courseID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.EnrolledCourses = append(u.EnrolledCourses, courseID)
	}
	return nil
}

func (f *fakeRepo) SetSubscription(_ context.Context, id primitive.ObjectID, sub models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.Subscription = sub
	}
	return nil
}

func (f *fakeRepo) ListStudents(_ context.Context, _ string, _, _ int64) ([]models.User, int64, error) {
	return nil, 0, nil
}

func (f *fakeRepo) DeleteByID(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	delete(f.users, id)
	return ok, nil
}

func (f *fakeRepo) CountByRole(_ context.Context, role string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:    "test-access",
			RefreshSecret:   "test-refresh",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}
}

func seedUser(t *testing.T, repo *fakeRepo, email, password, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Name: "Test User", Email: email, Password: string(hash), Role: role}
	require.NoError(t, repo.Insert(context.Background(), u))
	return u
}

func TestLoginSuccess(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	res, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.NotEmpty(t, res.User.SessionToken)

	claims, err := tokens.ParseAccessToken(testConfig(), res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.SessionToken, claims.SessionToken)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewService(testConfig(), newFakeRepo())
	_, err := svc.Login(context.Background(), "nobody@example.com", "x", models.RoleStudent)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "s@example.com", "correct", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	_, err := svc.Login(context.Background(), "s@example.com", "wrong", models.RoleStudent)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

// Role is checked before the password, so a student hitting the admin portal
// gets the wrong-portal answer even with valid credentials, and also with
// invalid ones.
func TestLoginWrongPortal(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	_, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleAdmin)
	require.ErrorIs(t, err, ErrWrongPortal)

	_, err = svc.Login(context.Background(), "s@example.com", "wrong", models.RoleAdmin)
	require.ErrorIs(t, err, ErrWrongPortal)
}

// A second login replaces the session marker, so tokens from the first
// session no longer match the stored marker.
func TestSecondLoginSupersedesFirst(t *testing.T) {
	repo := newFakeRepo()
	u := seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	first, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)
	require.NotEqual(t, first.User.SessionToken, second.User.SessionToken)

	stored, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, second.User.SessionToken, stored.SessionToken)

	firstClaims, err := tokens.ParseAccessToken(testConfig(), first.AccessToken)
	require.NoError(t, err)
	require.NotEqual(t, stored.SessionToken, firstClaims.SessionToken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "taken@example.com", "pw123456", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	_, err := svc.Register(context.Background(), "New", "taken@example.com", "pw123456")
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestRegisterLogsIn(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(testConfig(), repo)

	res, err := svc.Register(context.Background(), "New", "new@example.com", "pw123456")
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, res.User.Role)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.User.SessionToken)
}

func TestRefreshMintsTokenForCurrentSession(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	cfg := testConfig()
	svc := NewService(cfg, repo)

	res, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)

	access, err := svc.Refresh(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	claims, err := tokens.ParseAccessToken(cfg, access)
	require.NoError(t, err)
	require.Equal(t, res.User.SessionToken, claims.SessionToken)
}

// An old refresh token stops working once a newer login replaces the stored
// hash. The token is signed correctly, so the failure is the hash mismatch.
func TestRefreshRevokedBySecondLogin(t *testing.T) {
	repo := newFakeRepo()
	seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	first, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshMismatch)
}

func TestRefreshAfterLogout(t *testing.T) {
	repo := newFakeRepo()
	u := seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	svc := NewService(testConfig(), repo)

	res, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), u.ID))

	_, err = svc.Refresh(context.Background(), res.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

// A token signed with the access secret must not pass as a refresh token.
func TestRefreshRejectsWrongSecret(t *testing.T) {
	repo := newFakeRepo()
	u := seedUser(t, repo, "s@example.com", "hunter22", models.RoleStudent)
	cfg := testConfig()
	svc := NewService(cfg, repo)

	_, err := svc.Login(context.Background(), "s@example.com", "hunter22", models.RoleStudent)
	require.NoError(t, err)

	forged, err := tokens.GenerateAccessToken(cfg, u.ID.Hex(), "whatever")
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), forged)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefreshGarbageToken(t *testing.T) {
	svc := NewService(testConfig(), newFakeRepo())
	_, err := svc.Refresh(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}
