package pg

// schemaDDL es el schema completo, idempotente. Se aplica entero en
// Migrate; ALTERs incrementales van al final con IF NOT EXISTS.
const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS tenant (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name        TEXT NOT NULL,
    subdomain   TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS application (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    client_id   TEXT NOT NULL UNIQUE,
    tenant_id   UUID NOT NULL REFERENCES tenant(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    type        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS identity (
    id                        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_id                 UUID NOT NULL REFERENCES tenant(id) ON DELETE CASCADE,
    encoded_password          TEXT,
    external_id               TEXT,
    provider_id               UUID,
    failed_login_attempts     INT NOT NULL DEFAULT 0,
    locked                    BOOLEAN NOT NULL DEFAULT FALSE,
    requires_password_change  BOOLEAN NOT NULL DEFAULT FALSE,
    last_successful_login     TIMESTAMPTZ,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_identity_external
    ON identity (provider_id, external_id)
    WHERE external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS identity_email (
    id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    identity_id  UUID NOT NULL REFERENCES identity(id) ON DELETE CASCADE,
    tenant_id    UUID NOT NULL REFERENCES tenant(id) ON DELETE CASCADE,
    address      TEXT NOT NULL,
    is_primary   BOOLEAN NOT NULL DEFAULT TRUE,
    verified     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_identity_email_tenant
    ON identity_email (tenant_id, address);

CREATE TABLE IF NOT EXISTS identity_property (
    identity_id  UUID NOT NULL REFERENCES identity(id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    value        TEXT NOT NULL,
    PRIMARY KEY (identity_id, name)
);

CREATE TABLE IF NOT EXISTS access_token (
    token        TEXT PRIMARY KEY,
    identity_id  UUID NOT NULL REFERENCES identity(id) ON DELETE CASCADE,
    expiration   TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_access_token_expiration ON access_token (expiration);

CREATE TABLE IF NOT EXISTS password_reset_token (
    identity_id  UUID PRIMARY KEY REFERENCES identity(id) ON DELETE CASCADE,
    token        TEXT NOT NULL UNIQUE,
    expiration   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS email_verification_token (
    email_id     UUID PRIMARY KEY REFERENCES identity_email(id) ON DELETE CASCADE,
    token        TEXT NOT NULL UNIQUE,
    identity_id  UUID NOT NULL REFERENCES identity(id) ON DELETE CASCADE,
    expiration   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS external_provider (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_id   UUID NOT NULL REFERENCES tenant(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    kind        TEXT NOT NULL,
    properties  JSONB NOT NULL DEFAULT '{}'::jsonb,
    enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    UNIQUE (tenant_id, name)
);
`
