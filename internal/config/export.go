package config

import (
	"time"

	vaultsandbox "github.com/vaultsandbox/client-go"
)

// ExportFile is the portable file format written by 'vsb export' and
// read by 'vsb import'. It contains the inbox's private key.
type ExportFile struct {
	Version      int          `json:"version"`
	EmailAddress string       `json:"emailAddress"`
	InboxHash    string       `json:"inboxHash"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	ExportedAt   time.Time    `json:"exportedAt"`
	Keys         ExportedKeys `json:"keys"`
}

type ExportedKeys struct {
	KEMPrivate  string `json:"kemPrivate"`
	KEMPublic   string `json:"kemPublic"`
	ServerSigPK string `json:"serverSigPk"`
}

const ExportVersion = 1

// ToExportFile renders a stored inbox in the file format.
func (s *StoredInbox) ToExportFile() *ExportFile {
	return &ExportFile{
		Version:      ExportVersion,
		EmailAddress: s.Email,
		InboxHash:    s.ID,
		ExpiresAt:    s.ExpiresAt,
		ExportedAt:   time.Now().UTC(),
		Keys: ExportedKeys{
			KEMPrivate:  s.Keys.KEMPrivate,
			KEMPublic:   s.Keys.KEMPublic,
			ServerSigPK: s.Keys.ServerSigPK,
		},
	}
}

// ToStoredInbox converts an import file into the keystore format.
func (f *ExportFile) ToStoredInbox() StoredInbox {
	return StoredInbox{
		Email:     f.EmailAddress,
		ID:        f.InboxHash,
		CreatedAt: f.ExportedAt,
		ExpiresAt: f.ExpiresAt,
		Keys: InboxKeys{
			KEMPrivate:  f.Keys.KEMPrivate,
			KEMPublic:   f.Keys.KEMPublic,
			ServerSigPK: f.Keys.ServerSigPK,
		},
	}
}

// ToExport converts an import file directly into the SDK's format.
func (f *ExportFile) ToExport() *vaultsandbox.ExportedInbox {
	s := f.ToStoredInbox()
	return s.ToExport()
}
