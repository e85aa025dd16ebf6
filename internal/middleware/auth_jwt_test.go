package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignAndVerifyJWT(t *testing.T) {
	t.Parallel()
	token, err := SignJWT("secret", "acct-1", "student", "en")
	if err != nil {
		t.Fatalf("SignJWT returned error: %v", err)
	}
	claims, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT returned error: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Fatalf("Subject = %q, want %q", claims.Subject, "acct-1")
	}
	if claims.Plan != "student" {
		t.Fatalf("Plan = %q, want %q", claims.Plan, "student")
	}
}

func TestVerifyJWTRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	token, err := SignJWT("secret", "acct-1", "student", "en")
	if err != nil {
		t.Fatalf("SignJWT returned error: %v", err)
	}
	if _, err := VerifyJWT("other-secret", token); err == nil {
		t.Fatal("VerifyJWT accepted token signed with different secret")
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	t.Parallel()
	token, err := SignJWT("secret", "acct-1", "student", "fr")
	if err != nil {
		t.Fatalf("SignJWT returned error: %v", err)
	}

	var gotAccountID, gotLocale string
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccountID = AccountIDFromContext(r.Context())
		gotLocale = LocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotAccountID != "acct-1" {
		t.Fatalf("account id = %q, want %q", gotAccountID, "acct-1")
	}
	if gotLocale != "fr" {
		t.Fatalf("locale = %q, want %q", gotLocale, "fr")
	}
}

func TestAuthJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	t.Parallel()
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without authorization")
	}))
	req := httptest.NewRequest("GET", "/me", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
