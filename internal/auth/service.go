package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/tokens"
)

// Service is the session authority: the single writer of the session token
// and refresh hash stored on an account. At most one (session token, refresh
// hash) pair is valid per account; every successful login replaces both.
type Service struct {
	cfg  *config.Config
	repo accounts.Repository
}

func NewService(cfg *config.Config, repo accounts.Repository) *Service {
	return &Service{cfg: cfg, repo: repo}
}

// LoginResult carries the tokens for cookie transport plus the account.
type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

// Login authenticates email/password for the given portal role and issues a
// fresh session. Checks run existence -> role -> password: an unknown email
// never reveals whether the role would have matched, while a valid student
// credential on the admin portal gets an explicit wrong-portal answer
// instead of a generic failure.
func (s *Service) Login(ctx context.Context, email, password, requiredRole string) (*LoginResult, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if u.Role != requiredRole {
		return nil, ErrWrongPortal
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, u)
}

// Register creates a student account and logs it in immediately.
func (s *Service) Register(ctx context.Context, name, email, password string) (*LoginResult, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleStudent,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.issueSession(ctx, u)
}

// Refresh validates a raw refresh token against both its signature and the
// hash stored on the account, then mints a new access token bound to the
// account's current session token. The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (string, error) {
	claims, err := tokens.ParseRefreshToken(s.cfg, rawRefresh)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("find account: %w", err)
	}
	if u == nil || u.RefreshTokenHash == "" {
		return "", ErrSessionNotFound
	}
	if !matchRefreshHash(u.RefreshTokenHash, rawRefresh) {
		return "", ErrRefreshMismatch
	}
	access, err := tokens.GenerateAccessToken(s.cfg, u.ID.Hex(), u.SessionToken)
	if err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}
	return access, nil
}

// Logout clears the session token and refresh hash. Best-effort: callers
// treat it as successful from the client's point of view regardless.
func (s *Service) Logout(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.ClearSession(ctx, id)
}

// issueSession generates a new session token, mints both tokens and stores
// the (session token, refresh hash) pair in a single update. Any previous
// session for the account is silently terminated.
func (s *Service) issueSession(ctx context.Context, u *models.User) (*LoginResult, error) {
	session, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	access, err := tokens.GenerateAccessToken(s.cfg, u.ID.Hex(), session)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := tokens.GenerateRefreshToken(s.cfg, u.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}
	if err := s.repo.StoreSession(ctx, u.ID, session, hashRefreshToken(refresh)); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	u.SessionToken = session
	u.RefreshTokenHash = hashRefreshToken(refresh)
	return &LoginResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

// newSessionToken returns 32 random bytes hex-encoded.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func matchRefreshHash(stored, raw string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(hashRefreshToken(raw))) == 1
}
