package email

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/iridium/internal/events"
	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// Notifier consume eventos de dominio y manda los emails transaccionales
// correspondientes. Corre dentro de los workers del bus; un fallo de SMTP
// se loggea y no afecta al request original.
type Notifier struct {
	Sender Sender
}

// Register suscribe el notifier a los eventos que le interesan.
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.IdentityCreated, n.handleIdentityCreated)
	bus.Subscribe(events.PasswordResetInitiated, n.handlePasswordReset)
}

func (n *Notifier) handleIdentityCreated(ctx context.Context, ev events.Event) error {
	to := ev.Meta[events.MetaEmail]
	link := ev.Meta[events.MetaLink]
	if to == "" || link == "" {
		// Cuenta externa (provider) o evento sin datos de envío.
		return nil
	}

	html, text, err := RenderVerify(VerifyVars{
		TenantName: tenantNameOr(ev.Meta, "tu cuenta"),
		Link:       link,
	})
	if err != nil {
		return err
	}
	if err := n.Sender.Send(to, "Verificá tu email", html, text); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	logger.From(ctx).Debug("verification email queued",
		logger.Component("email.notifier"),
		logger.TenantID(ev.TenantID),
	)
	return nil
}

func (n *Notifier) handlePasswordReset(ctx context.Context, ev events.Event) error {
	to := ev.Meta[events.MetaEmail]
	link := ev.Meta[events.MetaLink]
	if to == "" || link == "" {
		return nil
	}

	html, text, err := RenderReset(ResetVars{
		TenantName: tenantNameOr(ev.Meta, "tu cuenta"),
		Link:       link,
	})
	if err != nil {
		return err
	}
	if err := n.Sender.Send(to, "Restablecé tu password", html, text); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func tenantNameOr(meta map[string]string, fallback string) string {
	if v := meta[events.MetaTenantName]; v != "" {
		return v
	}
	return fallback
}
