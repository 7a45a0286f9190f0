package session

import (
	"net/http"
	"strings"
	"time"
)

func (b *Broker) setSessionCookie(w http.ResponseWriter, value string, exp time.Time) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     b.cfg.CookieName,
		Value:    value,
		Path:     b.cfg.CookiePath,
		Domain:   b.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   b.cfg.CookieSecure,
		SameSite: b.cfg.CookieSameSite,
	})
}

func (b *Broker) expireSessionCookie(w http.ResponseWriter) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     b.cfg.CookieName,
		Value:    "",
		Path:     b.cfg.CookiePath,
		Domain:   b.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   b.cfg.CookieSecure,
		SameSite: b.cfg.CookieSameSite,
	})
}

func (b *Broker) tokenFromCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(b.cfg.CookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}
