package auth

import (
	"testing"
	"time"
)

func testService(accessExp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "unit-test-secret",
		AccessTokenExp:  accessExp,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(time.Hour)

	access, refresh, expiresIn, _, err := svc.GenerateTokenPair("u1", "ana@sistempim.app", "STUDENT")
	if err != nil {
		t.Fatal(err)
	}
	if access == "" || refresh == "" {
		t.Fatal("empty tokens")
	}
	if expiresIn != 3600 {
		t.Errorf("expiresIn = %d, want 3600", expiresIn)
	}

	claims, err := svc.ValidateAndExtractClaims(access)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UID != "u1" || claims.Email != "ana@sistempim.app" || claims.Role != "STUDENT" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := testService(-time.Minute)

	access, _, _, _, err := svc.GenerateTokenPair("u1", "ana@sistempim.app", "STUDENT")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ValidateToken(access); err != ErrExpiredToken {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	issuer := testService(time.Hour)
	verifier := NewJWTService(JWTConfig{SecretKey: "other-secret", AccessTokenExp: time.Hour, RefreshTokenExp: time.Hour, TokenIssuer: "test"})

	access, _, _, _, err := issuer.GenerateTokenPair("u1", "ana@sistempim.app", "STUDENT")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.ValidateToken(access); err == nil {
		t.Error("token with wrong signature accepted")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer prefix", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"raw token", "abc.def.ghi", "abc.def.ghi", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}
