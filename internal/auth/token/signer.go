// Package token signs and verifies the access and refresh JWTs.
//
// Access and refresh tokens are signed with independent HS256 keys so that a
// leaked key for one class cannot mint tokens of the other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/taskflow/backend/internal/common/crypto"
	"github.com/AlibekovAA/taskflow/backend/internal/observability/metrics"
)

type KeyClass int

const (
	AccessKey KeyClass = iota
	RefreshKey
)

func (k KeyClass) String() string {
	switch k {
	case AccessKey:
		return "access"
	case RefreshKey:
		return "refresh"
	default:
		return "unknown"
	}
}

// ErrInvalidToken is the only error Verify returns. Bad signatures, wrong
// algorithms, malformed input and expiry are deliberately indistinguishable.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrWeakKey      = errors.New("signing key must be at least 32 bytes")
	ErrSharedKey    = errors.New("access and refresh keys must differ")
	ErrInvalidTTL   = errors.New("token ttl must be positive")
	ErrEmptySubject = errors.New("subject id is required")
)

type Claims struct {
	SubjectID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Config struct {
	AccessKey  string
	RefreshKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Signer struct {
	keys        map[KeyClass][]byte
	ttls        map[KeyClass]time.Duration
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
}

func NewSigner(cfg Config, idGenerator commoncrypto.IDGenerator, clk clock.Clock) (*Signer, error) {
	if len(cfg.AccessKey) < constants.JWTSecretMinLength || len(cfg.RefreshKey) < constants.JWTSecretMinLength {
		return nil, ErrWeakKey
	}
	if cfg.AccessKey == cfg.RefreshKey {
		return nil, ErrSharedKey
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}

	return &Signer{
		keys: map[KeyClass][]byte{
			AccessKey:  []byte(cfg.AccessKey),
			RefreshKey: []byte(cfg.RefreshKey),
		},
		ttls: map[KeyClass]time.Duration{
			AccessKey:  cfg.AccessTTL,
			RefreshKey: cfg.RefreshTTL,
		},
		idGenerator: idGenerator,
		clock:       clk,
	}, nil
}

func (s *Signer) IssueAccess(subjectID string) (string, Claims, error) {
	token, claims, err := s.issue(AccessKey, subjectID)
	if err == nil {
		metrics.AccessTokensIssued.Inc()
	}
	return token, claims, err
}

func (s *Signer) IssueRefresh(subjectID string) (string, Claims, error) {
	token, claims, err := s.issue(RefreshKey, subjectID)
	if err == nil {
		metrics.RefreshTokensIssued.Inc()
	}
	return token, claims, err
}

func (s *Signer) TTL(class KeyClass) time.Duration {
	return s.ttls[class]
}

func (s *Signer) issue(class KeyClass, subjectID string) (string, Claims, error) {
	if subjectID == "" {
		return "", Claims{}, ErrEmptySubject
	}

	jti, err := s.idGenerator.NewID()
	if err != nil {
		return "", Claims{}, fmt.Errorf("generate token id: %w", err)
	}

	// JWT timestamps have second precision; truncate so Claims match what
	// Verify will later decode.
	now := s.clock.Now().Truncate(time.Second)
	claims := Claims{
		SubjectID: subjectID,
		TokenID:   jti,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttls[class]),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.SubjectID,
		ID:        claims.TokenID,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})

	signed, err := t.SignedString(s.keys[class])
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign %s token: %w", class, err)
	}

	return signed, claims, nil
}

func (s *Signer) Verify(tokenString string, class KeyClass) (Claims, error) {
	metrics.JWTValidationsTotal.WithLabelValues(class.String()).Inc()

	claims, ok := s.verify(tokenString, class)
	if !ok {
		metrics.JWTValidationsFailed.WithLabelValues(class.String()).Inc()
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) verify(tokenString string, class KeyClass) (Claims, bool) {
	key, ok := s.keys[class]
	if !ok || tokenString == "" {
		return Claims{}, false
	}

	var registered jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&registered,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, false
	}

	if registered.Subject == "" || registered.ExpiresAt == nil {
		return Claims{}, false
	}

	claims := Claims{
		SubjectID: registered.Subject,
		TokenID:   registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, true
}

// VerifyAccess returns the subject of a valid access token.
func (s *Signer) VerifyAccess(tokenString string) (string, error) {
	claims, err := s.Verify(tokenString, AccessKey)
	if err != nil {
		return "", err
	}
	return claims.SubjectID, nil
}
