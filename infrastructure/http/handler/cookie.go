package handler

import (
	"net/http"
)

const RefreshCookieName = "refreshToken"

// CookieConfig controls how the refresh token cookie is written.
type CookieConfig struct {
	Secure bool
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (c CookieConfig) set(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
		MaxAge:   maxAge,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
		MaxAge:   -1,
	})
}

func refreshTokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
