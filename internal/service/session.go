package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"noizlabs/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	redis "github.com/redis/go-redis/v9"
)

const (
	LoginTokenTTL         = 10 * time.Minute
	VerificationMagicLink = "magiclink"
)

// LoginLink is what the client exchanges for a session.
type LoginLink struct {
	Email            string `json:"email"`
	Token            string `json:"token"`
	VerificationType string `json:"verificationType"`
}

// Session is an issued access token.
type Session struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	UserID      int64     `json:"userId"`
}

// LoginTokens stores one-time login tokens. Consume must be atomic so a
// token can be exchanged once.
type LoginTokens interface {
	Save(ctx context.Context, token, email string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, token string) (userID int64, email string, err error)
}

// RedisLoginTokens keeps only a sha256 of each token, as key.
type RedisLoginTokens struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisLoginTokens(rdb redis.UniversalClient) *RedisLoginTokens {
	return &RedisLoginTokens{rdb: rdb, prefix: "login_token"}
}

func (r *RedisLoginTokens) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + ":" + hex.EncodeToString(sum[:])
}

func (r *RedisLoginTokens) Save(ctx context.Context, token, email string, userID int64, ttl time.Duration) error {
	val := strconv.FormatInt(userID, 10) + "|" + email
	return r.rdb.Set(ctx, r.key(token), val, ttl).Err()
}

func (r *RedisLoginTokens) Consume(ctx context.Context, token string) (int64, string, error) {
	val, err := r.rdb.GetDel(ctx, r.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, "", ErrInvalidLoginToken
		}
		return 0, "", err
	}
	id, email, ok := strings.Cut(val, "|")
	if !ok {
		return 0, "", ErrInvalidLoginToken
	}
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidLoginToken
	}
	return userID, email, nil
}

type sessionClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Sessions mints login tokens and the HS256 access tokens they turn into.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	tokens LoginTokens
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, tokens LoginTokens) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, tokens: tokens, now: time.Now}
}

// SetClock replaces the time source.
func (s *Sessions) SetClock(now func() time.Time) {
	s.now = now
}

// NewLoginLink mints a one-time token bound to the profile's email alias.
func (s *Sessions) NewLoginLink(ctx context.Context, p *domain.Profile) (*LoginLink, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("login token: %w", err)
	}
	token := base58.Encode(raw)
	email := p.EmailAlias()
	if err := s.tokens.Save(ctx, token, email, p.ID, LoginTokenTTL); err != nil {
		return nil, fmt.Errorf("save login token: %w", err)
	}
	return &LoginLink{Email: email, Token: token, VerificationType: VerificationMagicLink}, nil
}

// Exchange consumes a login token and issues an access token.
func (s *Sessions) Exchange(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidLoginToken
	}
	userID, email, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.Issue(userID, email)
}

func (s *Sessions) Issue(userID int64, email string) (*Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: signed, ExpiresAt: exp, UserID: userID}, nil
}

// Parse validates an access token and returns its user id.
func (s *Sessions) Parse(tokenString string) (int64, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrUnauthorized
	}
	if claims.UserID <= 0 {
		return 0, ErrUnauthorized
	}
	return claims.UserID, nil
}
