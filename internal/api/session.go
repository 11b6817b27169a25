package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session/CSRF operations.
var (
	ErrCSRFRequired  = errors.New("csrf token required")
	ErrCSRFInvalid   = errors.New("csrf token invalid")
	ErrCSRFExpired   = errors.New("csrf token expired")
	ErrCSRFMalformed = errors.New("csrf token malformed")
)

// Pre-session CSRF token prefix to distinguish from user-bound tokens.
const preSessionPrefix = "pre:"

// Cookie and CSRF configuration.
const (
	userCookieName = "uid"
	csrfTokenTTL   = 1 * time.Hour
	cookieMaxAge   = 30 * 24 * 3600 // 30 days in seconds
	csrfClockSkew  = 5 * time.Minute
)

// sessionManager handles the signed login cookie and CSRF tokens.
type sessionManager struct {
	hmacSecret []byte
	isDev      bool
	logger     *slog.Logger
}

// UserID extracts the authenticated user ID from the uid cookie.
// Returns 0 when no cookie is present, the HMAC signature does not
// verify, or the value is not a positive integer.
func (sm *sessionManager) UserID(r *http.Request) int64 {
	cookie, err := r.Cookie(userCookieName)
	if err != nil {
		return 0
	}
	raw, ok := verifySignedUID(cookie.Value, sm.hmacSecret)
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func (sm *sessionManager) setUserCookie(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    signUID(strconv.FormatInt(userID, 10), sm.hmacSecret),
		Path:     "/",
		Secure:   !sm.isDev,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cookieMaxAge,
	})
}

func (sm *sessionManager) clearUserCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    "",
		Path:     "/",
		Secure:   !sm.isDev,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// NewCSRFToken creates an HMAC-based token bound to the user ID.
// Format: "timestamp:signature"
func (sm *sessionManager) NewCSRFToken(userID int64) string {
	timestamp := time.Now().Unix()
	message := fmt.Sprintf("%d:%d", userID, timestamp)

	h := hmac.New(sha256.New, sm.hmacSecret)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%d:%s", timestamp, signature)
}

// CheckCSRF verifies a user-bound CSRF token.
func (sm *sessionManager) CheckCSRF(userID int64, token string) error {
	if token == "" {
		return ErrCSRFRequired
	}

	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return ErrCSRFMalformed
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrCSRFMalformed
	}

	// Verify the HMAC before the timestamp checks so response timing
	// cannot distinguish expired tokens from forged ones.
	message := fmt.Sprintf("%d:%d", userID, timestamp)
	h := hmac.New(sha256.New, sm.hmacSecret)
	h.Write([]byte(message))
	expectedSig := h.Sum(nil)

	actualSig, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrCSRFMalformed
	}

	if subtle.ConstantTimeCompare(actualSig, expectedSig) != 1 {
		return ErrCSRFInvalid
	}

	age := time.Since(time.Unix(timestamp, 0))
	if age > csrfTokenTTL {
		return ErrCSRFExpired
	}
	if age < -csrfClockSkew {
		return ErrCSRFInvalid
	}

	return nil
}

// NewPreSessionCSRFToken creates an HMAC-based token for anonymous
// callers. Format: "pre:nonce:timestamp:signature"
func (sm *sessionManager) NewPreSessionCSRFToken() string {
	nonce := uuid.New().String()
	timestamp := time.Now().Unix()
	message := fmt.Sprintf("%s:%d", nonce, timestamp)

	h := hmac.New(sha256.New, sm.hmacSecret)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s%s:%d:%s", preSessionPrefix, nonce, timestamp, signature)
}

// CheckPreSessionCSRF verifies a pre-session CSRF token.
func (sm *sessionManager) CheckPreSessionCSRF(token string) error {
	if token == "" {
		return ErrCSRFRequired
	}

	if !strings.HasPrefix(token, preSessionPrefix) {
		return ErrCSRFMalformed
	}

	tokenBody := strings.TrimPrefix(token, preSessionPrefix)
	parts := strings.SplitN(tokenBody, ":", 3)
	if len(parts) != 3 {
		return ErrCSRFMalformed
	}

	nonce := parts[0]
	timestamp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ErrCSRFMalformed
	}

	// Same ordering as CheckCSRF: HMAC first, timestamps second.
	message := fmt.Sprintf("%s:%d", nonce, timestamp)
	h := hmac.New(sha256.New, sm.hmacSecret)
	h.Write([]byte(message))
	expectedSig := h.Sum(nil)

	actualSig, err := base64.URLEncoding.DecodeString(parts[2])
	if err != nil {
		return ErrCSRFMalformed
	}

	if subtle.ConstantTimeCompare(actualSig, expectedSig) != 1 {
		return ErrCSRFInvalid
	}

	age := time.Since(time.Unix(timestamp, 0))
	if age > csrfTokenTTL {
		return ErrCSRFExpired
	}
	if age < -csrfClockSkew {
		return ErrCSRFInvalid
	}

	return nil
}

// signUID creates a tamper-evident cookie value:
// "uid.base64url(HMAC-SHA256(secret, uid))".
func signUID(uid string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(uid))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))
	return uid + "." + sig
}

// verifySignedUID splits a signed cookie value and verifies the HMAC
// signature. Returns the extracted UID and true on success.
func verifySignedUID(value string, secret []byte) (string, bool) {
	idx := strings.LastIndex(value, ".")
	if idx < 1 {
		return "", false
	}

	uid := value[:idx]
	sig, err := base64.URLEncoding.DecodeString(value[idx+1:])
	if err != nil {
		return "", false
	}

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(uid))
	expected := h.Sum(nil)

	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}

	return uid, true
}

// csrfToken handles GET /api/v1/csrf-token.
// Returns a user-bound token for authenticated callers, otherwise a
// pre-session token.
func (sm *sessionManager) csrfToken(w http.ResponseWriter, r *http.Request) {
	if userID, ok := userIDFromContext(r.Context()); ok {
		WriteJSON(w, http.StatusOK, map[string]string{
			"csrfToken": sm.NewCSRFToken(userID),
		}, sm.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"csrfToken": sm.NewPreSessionCSRFToken(),
	}, sm.logger)
}
