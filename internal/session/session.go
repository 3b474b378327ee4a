// Package session keeps the visitor's display name across requests.
//
// The name is the only identity the service has, so it is stored in a
// cookie signed with the service HMAC key. A cookie with a bad signature
// reads the same as no cookie at all.
package session

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/adityawarman/citralab/internal/hmac"
)

const (
	nameCookie  = "citralab_name"
	flashCookie = "citralab_flash"
)

// Session reads and writes the signed identity cookie
type Session struct {
	HMAC *hmac.HMAC
}

// Set stores the display name in a signed cookie
func (s *Session) Set(w http.ResponseWriter, name string) error {
	mac, err := s.HMAC.Create(name)
	if err != nil {
		return err
	}

	value := base64.RawURLEncoding.EncodeToString([]byte(name)) + "." + mac

	http.SetCookie(w, &http.Cookie{
		Name:     nameCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Name returns the display name from the cookie, if present and
// correctly signed
func (s *Session) Name(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(nameCookie)
	if err != nil {
		return "", false
	}

	encoded, mac, found := strings.Cut(cookie.Value, ".")
	if !found {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}

	name := string(decoded)
	valid, err := s.HMAC.Validate(name, mac)
	if err != nil || !valid {
		return "", false
	}

	return name, true
}

// Clear removes the identity and any pending flash message
func (s *Session) Clear(w http.ResponseWriter) {
	expire(w, nameCookie)
	expire(w, flashCookie)
}

// Flash stores a one-shot message to show on the next page load
func (s *Session) Flash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TakeFlash returns the pending flash message, if any, and clears it
func (s *Session) TakeFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}

	expire(w, flashCookie)

	decoded, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}

	return string(decoded)
}

func expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
