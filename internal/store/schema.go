package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);
`

// Logical keys. The names follow the web client's storage keys. Profile, cards and auth
// share its value shapes; accounts hold a bcrypt passwordHash where the web client keeps
// the plain password, so the registry is not interchangeable.
const (
	keyProfile   = "smartpay_user"
	keyCards     = "smartpay_cards"
	keyAuth      = "smartpay_auth"
	keyAccounts  = "smartpay_accounts"
	keyRemoteIDs = "smartpay_remote_ids"
)
