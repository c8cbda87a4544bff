package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"quizbuzz-service/internal/domain"
)

// DefaultTokenTTL is how long join tokens stay valid when no TTL is configured.
const DefaultTokenTTL = 2 * time.Hour

// JoinClaims is the JWT body of a room join token.
type JoinClaims struct {
	SessionID string `json:"sessionId"`
	RoomID    string `json:"roomId"`
	jwt.RegisteredClaims
}

// Tokens signs and validates HS256 room join tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of t that reads time from now.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	cp := *t
	cp.now = now
	return &cp
}

// Issue mints a join token for a login session and a room.
func (t *Tokens) Issue(sessionID, roomID string) (string, error) {
	now := t.now()
	claims := JoinClaims{
		SessionID: sessionID,
		RoomID:    roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Validate checks format, signature and expiry. Every failure is reported as
// domain.ErrTokenExpiredOrInvalid; room matching is left to the caller.
func (t *Tokens) Validate(token string) (domain.JoinClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &JoinClaims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return domain.JoinClaims{}, domain.ErrTokenExpiredOrInvalid
	}
	claims, ok := parsed.Claims.(*JoinClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" || claims.RoomID == "" {
		return domain.JoinClaims{}, domain.ErrTokenExpiredOrInvalid
	}
	return domain.JoinClaims{SessionID: claims.SessionID, RoomID: claims.RoomID}, nil
}
