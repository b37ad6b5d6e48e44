package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths bypass authentication so probes and scrapers need no key.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// keyring holds digests of the accepted API keys. Comparing fixed-size
// digests keeps the check independent of key length.
type keyring [][sha256.Size]byte

func newKeyring(apiKeys []string) keyring {
	ring := make(keyring, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			ring = append(ring, sha256.Sum256([]byte(k)))
		}
	}
	return ring
}

// accepts checks token against every key without short-circuiting.
func (ring keyring) accepts(token string) bool {
	sum := sha256.Sum256([]byte(token))
	match := 0
	for i := range ring {
		match |= subtle.ConstantTimeCompare(ring[i][:], sum[:])
	}
	return match == 1
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerAuthMiddleware rejects /v1 requests without a valid API key.
// With no non-blank keys configured authentication is off.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	ring := newKeyring(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(ring) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := bearerToken(header)
			switch {
			case header == "":
				unauthorized(w, "missing authorization header")
			case !ok:
				unauthorized(w, "authorization header must use Bearer scheme")
			case !ring.accepts(token):
				unauthorized(w, "invalid api key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="rescuedex"`)
	writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, msg)
}
