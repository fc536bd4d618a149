package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/entity"
	"github.com/faucetdb/touchline/internal/query"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 30 * time.Minute

// Claims is the payload of an access token.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}

// Token is a signed access token and what it asserts.
type Token struct {
	Raw       string
	UserID    int64
	Name      string
	Role      string
	ExpiresAt time.Time
}

// AuthOptions configures token issuance.
type AuthOptions struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
}

// AuthService checks user credentials and issues and verifies HS256
// tokens. Tokens are never stored; each request re-verifies them.
type AuthService struct {
	exec     *database.Executor
	users    *entity.Entity
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(exec *database.Executor, users *entity.Entity, opts AuthOptions, logger *slog.Logger) *AuthService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		exec:     exec,
		users:    users,
		key:      opts.SigningKey,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		ttl:      opts.TTL,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source used for issuing and verifying.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login checks secret against the stored secret of user id and mints a
// token on success. Every credential failure is ErrAuthFailure.
func (s *AuthService) Login(ctx context.Context, id int64, secret string) (*Token, error) {
	d := s.exec.Dialect()
	stmt, err := query.NewSelect(d.QuoteIdentifier, s.users.Table).
		Columns(colPassword, colRight, colName).
		Where(s.users.Key, keyParam).
		SQL()
	if err != nil {
		return nil, err
	}

	records, err := s.exec.Select(ctx, stmt, query.Params{keyParam: id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		burnCompare(secret)
		s.logger.Info("login failed", "user_id", id)
		return nil, ErrAuthFailure
	}

	rec := records[0]
	stored, _ := rec.Get(colPassword)
	if !ConfirmSecret(asString(stored), secret) {
		s.logger.Info("login failed", "user_id", id)
		return nil, ErrAuthFailure
	}

	name, _ := rec.Get(colName)
	role, _ := rec.Get(colRight)
	tok, err := s.Mint(id, asString(name), asString(role))
	if err != nil {
		return nil, err
	}
	s.logger.Info("login succeeded", "user_id", id, "role", tok.Role)
	return tok, nil
}

// Mint issues a token for subject that expires after the configured TTL.
func (s *AuthService) Mint(subject int64, name, role string) (*Token, error) {
	jti, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("token id: %w", err)
	}
	now := s.now()
	exp := now.Add(s.ttl)

	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject, 10),
			ID:        jti.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Raw: raw, UserID: subject, Name: name, Role: role, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Verify checks the token's signature, algorithm, issuer, audience and
// expiry and returns its claims.
func (s *AuthService) Verify(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
