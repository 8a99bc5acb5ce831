package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func protectedHandler(t *testing.T) (http.Handler, *string, *string) {
	t.Helper()
	var gotUID, gotTZ string
	auth := NewJWTAuth(testSecret)
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = GetUserID(r.Context())
		gotTZ = GetTimezone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &gotUID, &gotTZ
}

func TestMiddleware_ValidToken(t *testing.T) {
	h, gotUID, gotTZ := protectedHandler(t)

	token := mintToken(t, testSecret, jwt.MapClaims{
		"uid":      "u1",
		"timezone": "Asia/Tokyo",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if *gotUID != "u1" || *gotTZ != "Asia/Tokyo" {
		t.Errorf("Expected claims in context, got uid=%q tz=%q", *gotUID, *gotTZ)
	}
}

func TestMiddleware_Rejections(t *testing.T) {
	h, _, _ := protectedHandler(t)

	expired := mintToken(t, testSecret, jwt.MapClaims{
		"uid": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongSecret := mintToken(t, "other-secret", jwt.MapClaims{"uid": "u1"})
	noUID := mintToken(t, testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"no uid claim", "Bearer " + noUID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestParseToken(t *testing.T) {
	auth := NewJWTAuth(testSecret)

	token := mintToken(t, testSecret, jwt.MapClaims{
		"uid": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	uid, ok := auth.ParseToken(token)
	if !ok || uid != "u1" {
		t.Errorf("Expected uid u1, got %q ok=%v", uid, ok)
	}

	if _, ok := auth.ParseToken("garbage"); ok {
		t.Error("Expected garbage token rejected")
	}
}
