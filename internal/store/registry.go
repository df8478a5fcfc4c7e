// Package store provee el registry de adaptadores de persistencia.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dropDatabas3/iridium/internal/domain/repository"
)

// Adapter representa un adaptador de persistencia capaz de crear repositorios.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "postgres", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
// Provee acceso a los repositorios implementados por el adapter.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// ─── Repositorios ───

	Tenants() repository.TenantRepository
	Applications() repository.ApplicationRepository
	Identities() repository.IdentityRepository
	AccessTokens() repository.AccessTokenRepository
	PasswordResetTokens() repository.PasswordResetTokenRepository
	EmailVerificationTokens() repository.EmailVerificationTokenRepository
	Providers() repository.ProviderRepository
}

// MigratableConnection interfaz opcional para conexiones que pueden
// ejecutar migraciones de schema (postgres).
type MigratableConnection interface {
	Migrate(ctx context.Context) error
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "memory".
	Name string

	// DSN connection string (para DBs).
	DSN string

	// Pool settings (para DBs).
	MaxOpenConns int
	MaxIdleConns int
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (registered: %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}

// Migrate ejecuta migraciones si la conexión las soporta; no-op si no.
func Migrate(ctx context.Context, conn AdapterConnection) error {
	m, ok := conn.(MigratableConnection)
	if !ok {
		return nil
	}
	return m.Migrate(ctx)
}
