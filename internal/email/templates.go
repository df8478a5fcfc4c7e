package email

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// Vars comunes de los templates.
type VerifyVars struct {
	TenantName string
	Link       string
}

type ResetVars struct {
	TenantName string
	Link       string
}

const verifyHTML = `<html><body>
<p>Hola,</p>
<p>Creaste una cuenta en <b>{{.TenantName}}</b>. Confirmá tu email haciendo click en el siguiente link:</p>
<p><a href="{{.Link}}">Verificar email</a></p>
<p>Si no creaste esta cuenta, ignorá este mensaje.</p>
</body></html>`

const verifyText = `Hola,

Creaste una cuenta en {{.TenantName}}. Confirmá tu email abriendo este link:

{{.Link}}

Si no creaste esta cuenta, ignorá este mensaje.`

const resetHTML = `<html><body>
<p>Hola,</p>
<p>Pediste restablecer tu password en <b>{{.TenantName}}</b>:</p>
<p><a href="{{.Link}}">Restablecer password</a></p>
<p>El link expira pronto. Si no fuiste vos, ignorá este mensaje: tu password actual sigue vigente.</p>
</body></html>`

const resetText = `Hola,

Pediste restablecer tu password en {{.TenantName}}:

{{.Link}}

El link expira pronto. Si no fuiste vos, ignorá este mensaje.`

var (
	verifyHTMLTpl = template.Must(template.New("verify_html").Parse(verifyHTML))
	verifyTextTpl = texttemplate.Must(texttemplate.New("verify_text").Parse(verifyText))
	resetHTMLTpl  = template.Must(template.New("reset_html").Parse(resetHTML))
	resetTextTpl  = texttemplate.Must(texttemplate.New("reset_text").Parse(resetText))
)

// RenderVerify renderiza el email de verificación.
func RenderVerify(v VerifyVars) (html, text string, err error) {
	return render(verifyHTMLTpl, verifyTextTpl, v)
}

// RenderReset renderiza el email de recuperación de password.
func RenderReset(v ResetVars) (html, text string, err error) {
	return render(resetHTMLTpl, resetTextTpl, v)
}

func render(htmlTpl *template.Template, textTpl *texttemplate.Template, data any) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := htmlTpl.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("email: render html: %w", err)
	}
	if err := textTpl.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("email: render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}
