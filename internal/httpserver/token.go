// internal/httpserver/token.go
//
// Per-game session tokens. Starting a game signs an HS256 JWT carrying the
// game id; subsequent flip/state/stream requests must present it via the
// Authorization header, the game cookie, or (for EventSource, which cannot
// set headers) a token query parameter.

package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const gameCookieName = "memomatch_game"

// tokenTTL bounds how long an abandoned game token stays valid.
const tokenTTL = 12 * time.Hour

// signGameToken creates an HS256 JWT binding the client to gameID.
func (s *Server) signGameToken(gameID string) (string, time.Time, error) {
	exp := time.Now().Add(tokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"gid": gameID,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.secret))
	return ss, exp, err
}

// gameIDFromToken verifies tok and extracts the game id, or "".
func (s *Server) gameIDFromToken(tok string) string {
	if tok == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.secret), nil
	})
	if err != nil || !t.Valid {
		return ""
	}
	gid, _ := claims["gid"].(string)
	return gid
}

// setGameCookie writes the game token cookie.
func (s *Server) setGameCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// tokenFromRequest extracts a game token from the Authorization header,
// the game cookie, or the token query parameter.
func tokenFromRequest(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(gameCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}
