package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hrbooteh/internal/domain"
)

var jwtTestUser = domain.User{ID: "u1", Email: "sara@example.com", FullName: "Sara"}

func newTestJWTService(now *time.Time) *JWTService {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, NewMemoryRefreshTokenStore())
	if now != nil {
		svc.now = func() time.Time { return *now }
		svc.store.(*memoryRefreshTokenStore).now = svc.now
	}
	return svc
}

func signRaw(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestJWTService_GenerateAndParseAccess(t *testing.T) {
	svc := newTestJWTService(nil)
	pair, err := svc.GeneratePair(context.Background(), jwtTestUser)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.TokenType != "bearer" || pair.ExpiresIn != 900 {
		t.Fatalf("unexpected pair metadata: %+v", pair)
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "sara@example.com" || claims.FullName != "Sara" || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_RefreshIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(nil)
	pair, err := svc.GeneratePair(ctx, jwtTestUser)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	rotated, err := svc.RefreshPair(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh pair: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if _, err := svc.RefreshPair(ctx, pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected reused refresh token to fail, got %v", err)
	}
	claims, err := svc.ParseAccessToken(rotated.AccessToken)
	if err != nil || claims.FullName != "Sara" {
		t.Fatalf("expected rotated access token to carry the user, got %+v (%v)", claims, err)
	}
}

func TestJWTService_RevokeRefresh(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(nil)
	pair, _ := svc.GeneratePair(ctx, jwtTestUser)

	if err := svc.RevokeRefresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.RefreshPair(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("expected refresh to fail after revoke")
	}
	if err := svc.RevokeRefresh(ctx, pair.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected access token to be rejected on logout, got %v", err)
	}
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	ctx := context.Background()
	svc := newTestJWTService(nil)
	pair, _ := svc.GeneratePair(ctx, jwtTestUser)

	if _, err := svc.RefreshPair(ctx, pair.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected access token to fail as refresh, got %v", err)
	}
	if _, err := svc.ParseAccessToken(pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected refresh token to fail as access, got %v", err)
	}
}

func TestJWTService_ExpiryFollowsClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestJWTService(&now)
	pair, err := svc.GeneratePair(context.Background(), jwtTestUser)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	now = now.Add(14 * time.Minute)
	if _, err := svc.ParseAccessToken(pair.AccessToken); err != nil {
		t.Fatalf("expected access token still valid, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := svc.ParseAccessToken(pair.AccessToken); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
	now = now.Add(time.Hour)
	if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected expired refresh token, got %v", err)
	}
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := newTestJWTService(nil)
	now := time.Now().UTC()
	valid := Claims{
		UserID:    "u1",
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Issuer:    jwtIssuer,
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	if _, err := svc.ParseAccessToken(signRaw(t, "secret", valid)); err != nil {
		t.Fatalf("expected hand-built token to be valid, got %v", err)
	}

	wrongIssuer := valid
	wrongIssuer.Issuer = "other"
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	subjectMismatch := valid
	subjectMismatch.Subject = "u2"
	noJTI := valid
	noJTI.ID = ""

	cases := map[string]string{
		"wrong secret":     signRaw(t, "other-secret", valid),
		"wrong issuer":     signRaw(t, "secret", wrongIssuer),
		"no expiry":        signRaw(t, "secret", noExpiry),
		"subject mismatch": signRaw(t, "secret", subjectMismatch),
		"no jti":           signRaw(t, "secret", noJTI),
		"garbage":          "not-a-jwt",
		"blank":            "   ",
	}
	for name, token := range cases {
		if _, err := svc.ParseAccessToken(token); !errors.Is(err, ErrJWTInvalid) {
			t.Errorf("%s: expected ErrJWTInvalid, got %v", name, err)
		}
	}
}

func TestJWTService_RejectsEmptySecretAndUser(t *testing.T) {
	ctx := context.Background()
	if _, err := NewJWTService("", 0, 0).GeneratePair(ctx, jwtTestUser); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
	if _, err := newTestJWTService(nil).GeneratePair(ctx, domain.User{}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty user, got %v", err)
	}
}
