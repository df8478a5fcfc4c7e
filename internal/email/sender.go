// Package email envía las notificaciones transaccionales del sistema:
// verificación de email al crear una identity y links de recuperación
// de password.
package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// Sender es la interfaz para enviar emails.
// Implementada por SMTPSender.
type Sender interface {
	// Send envía un email con contenido HTML y texto plano.
	// El destinatario recibe ambas versiones como multipart/alternative.
	Send(to string, subject string, htmlBody string, textBody string) error
}

// SMTPConfig es la configuración de conexión SMTP.
type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	From               string `yaml:"from"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	TLSMode            string `yaml:"tls_mode"` // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender crea un SMTPSender desde SMTPConfig.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	return &SMTPSender{cfg: cfg}
}

// Send envía un email con contenido HTML y texto plano.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("email.smtp"),
		logger.String("host", s.cfg.Host),
		logger.Int("port", s.cfg.Port),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Preferimos multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, // solo dev
	}

	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.cfg.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Debug("email sent")
	return nil
}

// NopSender descarta los emails. Se usa cuando SMTP no está configurado
// (desarrollo) y en tests.
type NopSender struct{}

func (NopSender) Send(to, subject, htmlBody, textBody string) error {
	logger.L().Info("email suppressed (no smtp configured)",
		logger.Component("email.nop"),
		logger.String("subject", subject),
	)
	return nil
}
