package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey   contextKey = "uid"
	TimezoneKey contextKey = "timezone"
)

type JWTAuth struct {
	Secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

// Middleware validates the bearer token minted by the account service and
// attaches uid/timezone to the request context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		// Must be Bearer format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		uid, timezone, ok := j.parse(parts[1], w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, uid)
		ctx = context.WithValue(ctx, TimezoneKey, timezone)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseToken verifies a raw token string (used by the WebSocket handshake,
// which carries the token as a query param).
func (j *JWTAuth) ParseToken(tokenStr string) (uid string, ok bool) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	claims, ok2 := token.Claims.(jwt.MapClaims)
	if !ok2 {
		return "", false
	}
	uid, _ = claims["uid"].(string)
	return uid, uid != ""
}

func (j *JWTAuth) parse(tokenStr string, w http.ResponseWriter, r *http.Request) (uid, timezone string, ok bool) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})

	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
		} else {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
		}
		return "", "", false
	}

	claims, claimsOK := token.Claims.(jwt.MapClaims)
	if !claimsOK || !token.Valid {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token claims", r)
		return "", "", false
	}

	uid, _ = claims["uid"].(string)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user ID in token", r)
		return "", "", false
	}
	timezone, _ = claims["timezone"].(string)
	return uid, timezone, true
}

// GetUserID extracts the uid from request context.
func GetUserID(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// GetTimezone extracts the caller's IANA timezone, if the token carried one.
func GetTimezone(ctx context.Context) string {
	tz, _ := ctx.Value(TimezoneKey).(string)
	return tz
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
