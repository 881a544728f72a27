package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/tokens"
)

type stubRepo struct {
	user *models.User
}

func (s *stubRepo) FindByEmail(context.Context, string) (*models.User, error) { return nil, nil }
func (s *stubRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		cp := *s.user
		return &cp, nil
	}
	return nil, nil
}
func (s *stubRepo) Insert(context.Context, *models.User) error { return nil }
func (s *stubRepo) StoreSession(context.Context, primitive.ObjectID, string, string) error {
	return nil
}
func (s *stubRepo) ClearSession(context.Context, primitive.ObjectID) error { return nil }
func (s *stubRepo) AddEnrolledCourse(context.Context, primitive.ObjectID, primitive.ObjectID) error {
	return nil
}
func (s *stubRepo) SetSubscription(context.Context, primitive.ObjectID, models.Subscription) error {
	return nil
}
func (s *stubRepo) ListStudents(context.Context, string, int64, int64) ([]models.User, int64, error) {
	return nil, 0, nil
}
func (s *stubRepo) DeleteByID(context.Context, primitive.ObjectID) (bool, error) {
	return false, nil
}
func (s *stubRepo) CountByRole(context.Context, string) (int64, error) { return 0, nil }

func authTestConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:    "mw-access",
			RefreshSecret:   "mw-refresh",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

func authRouter(cfg *config.Config, repo *stubRepo) *gin.Engine {
	r := gin.New()
	r.GET("/p", RequireAuth(cfg, repo), func(c *gin.Context) {
		u := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "id": u.ID.Hex()})
	})
	return r
}

func doAuthRequest(r *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/p", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func responseCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	r := authRouter(authTestConfig(), &stubRepo{})
	w := doAuthRequest(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, responseCode(t, w))
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	cfg := authTestConfig()
	cfg.JWT.AccessTokenTTL = -time.Minute
	id := primitive.NewObjectID()
	raw, err := tokens.GenerateAccessToken(cfg, id.Hex(), "s1")
	require.NoError(t, err)

	r := authRouter(cfg, &stubRepo{user: &models.User{ID: id, SessionToken: "s1"}})
	w := doAuthRequest(r, raw)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, CodeTokenExpired, responseCode(t, w))
}

func TestRequireAuth_BadSignature(t *testing.T) {
	cfg := authTestConfig()
	other := authTestConfig()
	other.JWT.AccessSecret = "different"
	id := primitive.NewObjectID()
	raw, err := tokens.GenerateAccessToken(other, id.Hex(), "s1")
	require.NoError(t, err)

	r := authRouter(cfg, &stubRepo{user: &models.User{ID: id, SessionToken: "s1"}})
	w := doAuthRequest(r, raw)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, responseCode(t, w))
}

// Expired and superseded must be distinguishable: only the former should
// prompt a silent refresh on the client.
func TestRequireAuth_SupersededSession(t *testing.T) {
	cfg := authTestConfig()
	id := primitive.NewObjectID()
	raw, err := tokens.GenerateAccessToken(cfg, id.Hex(), "old-session")
	require.NoError(t, err)

	r := authRouter(cfg, &stubRepo{user: &models.User{ID: id, SessionToken: "new-session"}})
	w := doAuthRequest(r, raw)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, CodeSessionInvalidated, responseCode(t, w))
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	cfg := authTestConfig()
	raw, err := tokens.GenerateAccessToken(cfg, primitive.NewObjectID().Hex(), "s1")
	require.NoError(t, err)

	r := authRouter(cfg, &stubRepo{})
	w := doAuthRequest(r, raw)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_Valid(t *testing.T) {
	cfg := authTestConfig()
	id := primitive.NewObjectID()
	raw, err := tokens.GenerateAccessToken(cfg, id.Hex(), "live")
	require.NoError(t, err)

	r := authRouter(cfg, &stubRepo{user: &models.User{ID: id, SessionToken: "live", Role: models.RoleStudent}})
	w := doAuthRequest(r, raw)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, id.Hex(), body["id"])
}

func TestRequireAdmin(t *testing.T) {
	r := gin.New()
	r.GET("/a", func(c *gin.Context) {
		SetCurrentUser(c, &models.User{ID: primitive.NewObjectID(), Role: models.RoleStudent})
		c.Next()
	}, RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	req := httptest.NewRequest("GET", "/a", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	r2 := gin.New()
	r2.GET("/a", func(c *gin.Context) {
		SetCurrentUser(c, &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
		c.Next()
	}, RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	w2 := httptest.NewRecorder()
	r2.ServeHTTP(w2, httptest.NewRequest("GET", "/a", nil))
	require.Equal(t, http.StatusOK, w2.Code)
}
