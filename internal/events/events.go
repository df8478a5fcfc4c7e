// Package events implementa el bus de eventos de dominio in-process.
//
// Los emisores publican después de persistir; los handlers corren
// asíncronos y nunca bloquean ni fallan el request que originó el
// evento. Entrega at-least-once dentro del proceso: un handler que
// falla se loggea y se descarta, no hay reintentos cross-restart.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/iridium/internal/observability/logger"
)

// Tipos de evento emitidos por los services.
const (
	IdentityCreated        = "identity.created"
	IdentityAuthenticated  = "identity.authenticated"
	IdentityLocked         = "identity.locked"
	PasswordResetInitiated = "password.reset.initiated"
	PasswordChanged        = "password.changed"
	EmailVerified          = "email.verified"
	ProviderLinked         = "provider.linked"
)

// Claves bien conocidas de Meta.
const (
	MetaEmail      = "email"
	MetaLink       = "link"
	MetaTenantName = "tenant_name"
	MetaClientID   = "client_id"
	MetaProvider   = "provider"
)

// Event es un hecho de dominio ya ocurrido.
type Event struct {
	Type       string
	TenantID   string
	IdentityID string
	At         time.Time
	// Metadata arbitraria del evento (email destino, link de acción,
	// provider). Nunca incluye passwords ni access tokens.
	Meta map[string]string
}

// Handler procesa un evento. Un error se loggea; no detiene el bus.
type Handler func(ctx context.Context, ev Event) error

// Emitter publica eventos de dominio.
type Emitter interface {
	Emit(ev Event)
}

// Bus es un Emitter in-process con workers propios.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	queueMu sync.RWMutex
	closed  bool
	queue   chan Event

	wg   sync.WaitGroup
	once sync.Once
}

// NewBus crea un bus con la cantidad de workers dada (mínimo 1).
func NewBus(workers, buffer int) *Bus {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 64
	}
	b := &Bus{
		handlers: make(map[string][]Handler),
		queue:    make(chan Event, buffer),
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// Subscribe registra un handler para un tipo de evento.
// Llamar durante el wiring, antes de emitir.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Emit encola el evento. Si la cola está llena el evento se descarta
// con un log de warning: los eventos son notificaciones, no estado.
func (b *Bus) Emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.queueMu.RLock()
	defer b.queueMu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- ev:
	default:
		logger.L().Warn("event queue full, dropping event",
			logger.String("event", ev.Type),
			logger.TenantID(ev.TenantID),
		)
	}
}

// Close drena la cola y espera a los workers.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.queueMu.Lock()
		b.closed = true
		close(b.queue)
		b.queueMu.Unlock()
		b.wg.Wait()
	})
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for ev := range b.queue {
		b.dispatch(ev)
	}
}

func (b *Bus) dispatch(ev Event) {
	b.mu.RLock()
	hs := b.handlers[ev.Type]
	b.mu.RUnlock()

	if len(hs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := logger.L().With(
		logger.Layer("events"),
		logger.String("event", ev.Type),
		logger.TenantID(ev.TenantID),
		logger.IdentityID(ev.IdentityID),
	)
	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			log.Error("event handler failed", logger.Err(err))
			continue
		}
	}
	log.Debug("event dispatched", logger.Count(len(hs)))
}

// NopEmitter descarta todos los eventos. Para tests.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}
