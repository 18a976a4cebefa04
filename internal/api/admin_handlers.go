package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/abdul34602/novaaipro1/internal/config"
)

// adminAuthMiddleware gates the admin surface behind a bearer token. The
// presented token is hashed and compared in constant time against the
// configured digest; the plain credential is never stored or compared
// literally.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminTokenSHA256 == "" {
			s.writeError(w, "Admin access is not configured", http.StatusForbidden)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || !verifyToken(token, s.config.AdminTokenSHA256) {
			s.writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// verifyToken hashes the presented token and compares digests in constant
// time.
func verifyToken(token, wantHex string) bool {
	sum := sha256.Sum256([]byte(token))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(wantHex))) == 1
}

// handleAdminSettings reads or updates the runtime settings. Key material is
// masked on read; the maintenance flag takes effect immediately for video
// submissions.
func (s *Server) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.writeJSON(w, maskSettings(s.settings.Get()))

	case "PUT":
		var update config.SettingsUpdate
		if err := decodeBody(r, &update); err != nil {
			s.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		updated := s.settings.Apply(update)
		s.writeJSON(w, maskSettings(updated))
	}
}

// handleAdminLogs returns the activity log, newest first.
func (s *Server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.activity.Entries())
}

// maskSettings hides key material from responses.
func maskSettings(settings config.Settings) config.Settings {
	settings.GeminiAPIKey = mask(settings.GeminiAPIKey)
	settings.VeoAPIKey = mask(settings.VeoAPIKey)
	return settings
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	return "••••••••"
}
