package token

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
)

const (
	testAccessKey  = "access-key-access-key-access-key-0123"
	testRefreshKey = "refresh-key-refresh-key-refresh-key-0123"
)

type seqIDGenerator struct {
	n atomic.Int64
}

func (g *seqIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("jti-%d", g.n.Add(1)), nil
}

type failingIDGenerator struct{}

func (failingIDGenerator) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

func setupSigner(t *testing.T) (*Signer, *clock.MockClock) {
	t.Helper()
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s, err := NewSigner(Config{
		AccessKey:  testAccessKey,
		RefreshKey: testRefreshKey,
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}, &seqIDGenerator{}, mockClock)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s, mockClock
}

func TestSigner_IssueAccess_VerifiesWithSubject(t *testing.T) {
	s, mockClock := setupSigner(t)

	tok, issued, err := s.IssueAccess("u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims, err := s.Verify(tok, AccessKey)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.SubjectID != "u1" {
		t.Errorf("expected subject u1, got %s", claims.SubjectID)
	}
	if !claims.ExpiresAt.Equal(mockClock.Now().Add(24 * time.Hour)) {
		t.Errorf("expected 1 day validity, got %v", claims.ExpiresAt)
	}
	if claims.TokenID != issued.TokenID {
		t.Errorf("expected jti %s, got %s", issued.TokenID, claims.TokenID)
	}
}

func TestSigner_IssueRefresh_SevenDayWindow(t *testing.T) {
	s, mockClock := setupSigner(t)

	tok, _, err := s.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims, err := s.Verify(tok, RefreshKey)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if got := claims.ExpiresAt.Sub(mockClock.Now()); got != 7*24*time.Hour {
		t.Errorf("expected 7 day validity, got %v", got)
	}
}

func TestSigner_Verify_RejectsOtherKeyClass(t *testing.T) {
	s, _ := setupSigner(t)

	access, _, _ := s.IssueAccess("u1")
	refresh, _, _ := s.IssueRefresh("u1")

	if _, err := s.Verify(access, RefreshKey); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
	if _, err := s.Verify(refresh, AccessKey); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access: %v", err)
	}
}

func TestSigner_Verify_ExpiredAccessToken(t *testing.T) {
	s, mockClock := setupSigner(t)

	tok, _, _ := s.IssueAccess("u1")

	mockClock.Advance(24*time.Hour - time.Second)
	if _, err := s.Verify(tok, AccessKey); err != nil {
		t.Fatalf("expected token valid just before expiry, got %v", err)
	}

	mockClock.Advance(2 * time.Second)
	if _, err := s.Verify(tok, AccessKey); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestSigner_Verify_FailuresAreIndistinguishable(t *testing.T) {
	s, mockClock := setupSigner(t)

	valid, _, _ := s.IssueAccess("u1")
	tampered := valid[:len(valid)-2] + "xx"

	noneToken := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(mockClock.Now().Add(time.Hour)),
	})
	unsigned, _ := noneToken.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(mockClock.Now().Add(time.Hour)),
	})
	missingSub, _ := noSubject.SignedString([]byte(testAccessKey))

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"})
	missingExp, _ := noExpiry.SignedString([]byte(testAccessKey))

	cases := map[string]string{
		"empty":       "",
		"garbage":     "not.a.jwt",
		"tampered":    tampered,
		"alg none":    unsigned,
		"missing sub": missingSub,
		"missing exp": missingExp,
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(tok, AccessKey)
			if err != ErrInvalidToken {
				t.Errorf("expected exactly ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestSigner_SameSecondTokensDiffer(t *testing.T) {
	s, _ := setupSigner(t)

	a, _, _ := s.IssueRefresh("u1")
	b, _, _ := s.IssueRefresh("u1")

	if a == b {
		t.Error("expected distinct refresh tokens within the same second")
	}
}

func TestSigner_IssuedAtFollowsClock(t *testing.T) {
	s, mockClock := setupSigner(t)

	_, first, _ := s.IssueAccess("u1")
	mockClock.Advance(time.Minute)
	_, second, _ := s.IssueAccess("u1")

	if !second.IssuedAt.After(first.IssuedAt) {
		t.Errorf("expected later issued-at, got %v then %v", first.IssuedAt, second.IssuedAt)
	}
}

func TestNewSigner_RejectsBadConfig(t *testing.T) {
	gen := &seqIDGenerator{}

	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"short key", Config{AccessKey: "short", RefreshKey: testRefreshKey, AccessTTL: time.Hour, RefreshTTL: time.Hour}, ErrWeakKey},
		{"shared key", Config{AccessKey: testAccessKey, RefreshKey: testAccessKey, AccessTTL: time.Hour, RefreshTTL: time.Hour}, ErrSharedKey},
		{"zero ttl", Config{AccessKey: testAccessKey, RefreshKey: testRefreshKey, RefreshTTL: time.Hour}, ErrInvalidTTL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSigner(tc.cfg, gen, nil); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSigner_Issue_Errors(t *testing.T) {
	s, _ := setupSigner(t)
	if _, _, err := s.IssueAccess(""); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("expected ErrEmptySubject, got %v", err)
	}

	failing, err := NewSigner(Config{
		AccessKey:  testAccessKey,
		RefreshKey: testRefreshKey,
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour,
	}, failingIDGenerator{}, nil)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if _, _, err := failing.IssueRefresh("u1"); err == nil || !strings.Contains(err.Error(), "entropy") {
		t.Errorf("expected id generation error, got %v", err)
	}
}
