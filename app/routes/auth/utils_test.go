package auth

import (
	"testing"
	"time"
)

func TestJWT_RoundTripPreservesClaims(t *testing.T) {
	token, err := GenerateJWT("u1", "nurse@shifa.example", "Amina", "Yusuf",
		[]string{"inspector"}, []string{"d1", "d2"}, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "nurse@shifa.example" {
		t.Errorf("identity claims lost: %+v", claims)
	}
	if len(claims.Departments) != 2 || claims.Departments[0] != "d1" {
		t.Errorf("department claims lost: %v", claims.Departments)
	}
	if claims.Superuser {
		t.Error("superuser flag set for non-admin")
	}
}

func TestJWT_SuperuserFlagSurvives(t *testing.T) {
	token, err := GenerateJWT("u2", "admin@shifa.example", "Hassan", "Kato",
		[]string{"admin"}, nil, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !claims.Superuser {
		t.Error("superuser flag lost")
	}
}

func TestValidateJWT_RejectsGarbage(t *testing.T) {
	if _, err := ValidateJWT("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestGetSessionExpiry_IsADayOut(t *testing.T) {
	expiry := GetSessionExpiry()
	delta := time.Until(expiry)
	if delta < 23*time.Hour || delta > 25*time.Hour {
		t.Errorf("session expiry %v from now, want ~24h", delta)
	}
}

func TestGenerateSessionID_Unique(t *testing.T) {
	if GenerateSessionID() == GenerateSessionID() {
		t.Error("session IDs collided")
	}
}
