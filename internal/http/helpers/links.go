package helpers

import (
	"net/url"
	"strings"
)

// Links construye las URLs públicas que viajan en los emails
// transaccionales. BaseURL es la URL externa del servidor (detrás del
// proxy), sin slash final.
type Links struct {
	BaseURL string
}

func (l Links) join(path, token string) string {
	base := strings.TrimRight(l.BaseURL, "/")
	return base + path + "?token=" + url.QueryEscape(token)
}

// VerifyEmail arma el link de confirmación de email.
func (l Links) VerifyEmail(token string) string {
	return l.join("/emails/verify", token)
}

// ResetPassword arma el link del formulario de reset de password.
func (l Links) ResetPassword(token string) string {
	return l.join("/passwords/reset", token)
}
