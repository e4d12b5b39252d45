package auth

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Session struct {
	Token    string          `json:"token"`
	Identity domain.Identity `json:"identity"`
}

type Service struct {
	users   UserStore
	revoked Revocations
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewService(users UserStore, revoked Revocations, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, revoked: revoked, secret: []byte(secret), ttl: ttl, now: time.Now}
}

type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	DisplayName     string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (Session, error) {
	if req.Password != req.ConfirmPassword {
		return Session{}, domain.Prompt(domain.ErrInvalidInput, domain.PromptPasswordMismatch)
	}
	if len(req.Password) < minPasswordLen {
		return Session{}, domain.Prompt(domain.ErrInvalidInput, "Password should be at least 6 characters")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return Session{}, domain.Prompt(domain.ErrInvalidInput, "Email is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, errors.Wrap(err, "hash password")
	}
	u := domain.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return Session{}, domain.Prompt(domain.ErrConflict, "An account with this email already exists")
		}
		return Session{}, errors.Wrap(err, "create user")
	}
	return s.issue(u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, domain.ErrUnauthenticated
		}
		return Session{}, errors.Wrap(err, "load user")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return Session{}, domain.ErrUnauthenticated
	}
	return s.issue(*u)
}

func (s *Service) issue(u domain.User) (Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, errors.Wrap(err, "sign token")
	}
	return Session{
		Token: token,
		Identity: domain.Identity{
			UserID:    u.ID,
			Email:     u.Email,
			TokenID:   claims.ID,
			ExpiresAt: exp.UTC(),
		},
	}, nil
}

// Observe resolves a bearer token to the signed-in identity. Every failure is
// reported as domain.ErrUnauthenticated.
func (s *Service) Observe(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(s.now),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return domain.Identity{}, errors.Wrapf(domain.ErrUnauthenticated, "parse token: %v", err)
	}
	if !parsed.Valid {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Identity{}, errors.Wrap(err, "check revocation")
		}
		if revoked {
			return domain.Identity{}, domain.ErrUnauthenticated
		}
	}

	id := domain.Identity{UserID: userID, Email: claims.Email, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return id, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, id domain.Identity) error {
	if id.TokenID == "" || s.revoked == nil {
		return nil
	}
	ttl := id.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, id.TokenID, ttl)
}
