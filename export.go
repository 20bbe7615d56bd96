package vaultsandbox

import "time"

// ExportedInbox is the portable identity of an inbox: its address, the
// pinned server signing key and the client KEM key pair. SecretKeyB64
// grants full read access; treat an export like a credential.
type ExportedInbox struct {
	EmailAddress string    `json:"emailAddress"`
	InboxHash    string    `json:"inboxHash"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ServerSigPk  string    `json:"serverSigPk"`
	PublicKeyB64 string    `json:"publicKeyB64"`
	SecretKeyB64 string    `json:"secretKeyB64"`
	ExportedAt   time.Time `json:"exportedAt"`
}
