package auth

import (
	"context"
	"testing"

	"chorebank/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID: "u1",
		Email:  "dad@example.com",
		Role:   model.RoleGuardian,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "u1")
	}
	if got.Email != "dad@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "dad@example.com")
	}
	if got.Role != model.RoleGuardian {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleGuardian)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: "u7"})
	if UserID(ctx) != "u7" {
		t.Errorf("UserID = %q, want %q", UserID(ctx), "u7")
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != "" {
		t.Error("expected empty id for missing context")
	}
}

func TestIsGuardian(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: model.RoleGuardian})
	if !IsGuardian(ctx) {
		t.Error("expected IsGuardian = true for guardian role")
	}
	if IsDependent(ctx) {
		t.Error("expected IsDependent = false for guardian role")
	}
}

func TestIsDependent(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: model.RoleDependent})
	if !IsDependent(ctx) {
		t.Error("expected IsDependent = true for dependent role")
	}
	if IsGuardian(ctx) {
		t.Error("expected IsGuardian = false for dependent role")
	}
}

func TestRoleMissing(t *testing.T) {
	if IsGuardian(context.Background()) || IsDependent(context.Background()) {
		t.Error("expected no role for missing context")
	}
}
