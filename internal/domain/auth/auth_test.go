package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: 42, Role: string(RoleManager)}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	caller, err := CallerFromClaims(parsed)
	if err != nil {
		t.Fatalf("caller error: %v", err)
	}
	if caller.UserID != 42 || caller.Role != RoleManager {
		t.Fatalf("unexpected caller: %+v", caller)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("one", Claims{UserID: 1, Role: string(RoleEmployee)}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("two", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: 1, Role: string(RoleEmployee)}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestCallerFromClaimsRejectsUnknownRole(t *testing.T) {
	if _, err := CallerFromClaims(&Claims{UserID: 1, Role: "HR"}); err == nil {
		t.Fatal("expected unknown role error")
	}
	if _, err := CallerFromClaims(&Claims{Role: string(RoleAdmin)}); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestRolePermissions(t *testing.T) {
	cases := []struct {
		role Role
		perm string
		want bool
	}{
		{RoleEmployee, PermGoalsWrite, true},
		{RoleEmployee, PermGoalsManage, false},
		{RoleEmployee, PermCyclesAdmin, false},
		{RoleManager, PermReviewsManage, true},
		{RoleManager, PermDirectoryAdmin, false},
		{RoleAdmin, PermAuditRead, true},
		{Role("Unknown"), PermGoalsRead, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+tc.perm, func(t *testing.T) {
			if got := HasPermission(tc.role, tc.perm); got != tc.want {
				t.Fatalf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
			}
		})
	}
}
