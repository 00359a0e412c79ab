package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"chorebank/internal/auth"
	"chorebank/internal/model"
)

func testTokens() *auth.Tokens {
	return auth.NewTokens("middleware-test-secret")
}

func TestRequireAuthNoToken(t *testing.T) {
	handler := RequireAuth(testTokens())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthGarbageToken(t *testing.T) {
	handler := RequireAuth(testTokens())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.Issue(model.User{ID: "u-1", Email: "kid@example.com", Role: model.RoleDependent})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotAC auth.AuthContext
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != "u-1" {
		t.Errorf("UserID = %q, want u-1", gotAC.UserID)
	}
	if gotAC.Role != model.RoleDependent {
		t.Errorf("Role = %q, want dependent", gotAC.Role)
	}
}

func TestRequireAuthQueryParamFallback(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.Issue(model.User{ID: "u-1", Email: "kid@example.com", Role: model.RoleDependent})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/ws?access_token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireGuardian(t *testing.T) {
	for _, tc := range []struct {
		role model.Role
		want int
	}{
		{model.RoleGuardian, http.StatusOK},
		{model.RoleDependent, http.StatusForbidden},
	} {
		ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: "u-1", Role: tc.role})
		req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		RequireGuardian(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("role %s: status = %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}

func TestRequireDependent(t *testing.T) {
	for _, tc := range []struct {
		role model.Role
		want int
	}{
		{model.RoleDependent, http.StatusOK},
		{model.RoleGuardian, http.StatusForbidden},
	} {
		ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: "u-1", Role: tc.role})
		req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		RequireDependent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Errorf("role %s: status = %d, want %d", tc.role, rec.Code, tc.want)
		}
	}
}
