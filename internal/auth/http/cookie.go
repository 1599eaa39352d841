package http

import (
	"net/http"
	"time"

	"github.com/AlibekovAA/taskflow/backend/internal/common/constants"
)

type cookiePolicy struct {
	maxAge     time.Duration
	production bool
}

func (p cookiePolicy) base() *http.Cookie {
	c := &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if p.production {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func (p cookiePolicy) set(w http.ResponseWriter, token string) {
	c := p.base()
	c.Value = token
	c.MaxAge = int(p.maxAge / time.Second)
	http.SetCookie(w, c)
}

func (p cookiePolicy) clear(w http.ResponseWriter) {
	c := p.base()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func refreshTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(constants.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
