package model

import "time"

// SessionTokenTTL is the lifetime of an issued session token and of the
// cookie that carries it.
const SessionTokenTTL = 7 * 24 * time.Hour

// Credential holds the single operator's login material. It is loaded from
// configuration at process start and never changes afterwards; pagescan has
// exactly one account.
type Credential struct {
	Username      string
	PasswordHash  string // bcrypt
	SigningSecret []byte
}

// SessionToken is the decoded payload of a signed session token. There is no
// server-side session table, so validity depends only on the signature and
// ExpiresAt.
type SessionToken struct {
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
