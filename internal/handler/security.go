package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/lunch-orders/internal/domain/auth"
)

// APIKeyHeader carries the operator API key.
const APIKeyHeader = "api_key"

// SecurityHandler authenticates operator requests via HMAC-SHA256 hashed
// API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// HashKey returns the hex HMAC-SHA256 of key under pepper, as stored in the
// api_keys table.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate resolves the key to an active API key record.
func (s *SecurityHandler) Authenticate(r *http.Request, key string) (*auth.APIKeyInfo, bool) {
	if key == "" {
		return nil, false
	}
	hexHash := HashKey(s.pepper, key)

	info, err := s.apikeys.FindByHash(r.Context(), hexHash)
	if err != nil {
		return nil, false
	}

	// The stored hash is compared in constant time as well.
	computed, _ := hex.DecodeString(hexHash)
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, false
	}
	return info, true
}

// RequireScope rejects requests without a valid key (401) or whose key
// lacks scope (403).
func (s *SecurityHandler) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, ok := s.Authenticate(r, r.Header.Get(APIKeyHeader))
			if !ok {
				writeStatus(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !info.HasScope(scope) {
				zctx.From(r.Context()).Warn("API key lacks scope",
					zap.String("key_id", info.ID),
					zap.String("scope", scope),
				)
				writeStatus(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}
