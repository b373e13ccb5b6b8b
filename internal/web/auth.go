package web

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenCookie holds the API token once a browser has presented it.
const TokenCookie = "physiodesk_token"

// TokenAuth requires the configured token on every page route. It is
// accepted as a Bearer header or the TokenCookie cookie. A GET may carry it
// as ?access_token=, which sets the cookie so the forms, fragments and
// event stream that follow are authenticated too.
func TokenAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	valid := func(got string) bool {
		return got != "" && subtle.ConstantTimeCompare([]byte(got), want) == 1
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && valid(got) {
				next.ServeHTTP(w, r)
				return
			}
			if c, err := r.Cookie(TokenCookie); err == nil && valid(c.Value) {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method == http.MethodGet && valid(r.URL.Query().Get("access_token")) {
				http.SetCookie(w, &http.Cookie{
					Name:     TokenCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteStrictMode,
				})
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="physiodesk"`)
			http.Error(w, "unauthorized: open the page with ?access_token=<token>", http.StatusUnauthorized)
		})
	}
}
