package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	vaultsandbox "github.com/vaultsandbox/client-go"
)

var (
	ErrNoActiveInbox = errors.New("no active inbox set")
	ErrInboxNotFound = errors.New("inbox not found in keystore")
)

// StoredInbox is one persisted inbox identity. The private key grants
// full read access to the inbox, which is why the keystore is written
// with owner-only permissions.
type StoredInbox struct {
	Email     string    `json:"email"`
	ID        string    `json:"id"` // inbox hash
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Keys      InboxKeys `json:"keys"`
}

// InboxKeys holds the base64-encoded key material for an inbox.
type InboxKeys struct {
	KEMPrivate  string `json:"kem_private"`
	KEMPublic   string `json:"kem_public"`
	ServerSigPK string `json:"server_sig_pk"`
}

func (s *StoredInbox) Expired() bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(time.Now())
}

// ToExport converts to the SDK's import format.
func (s *StoredInbox) ToExport() *vaultsandbox.ExportedInbox {
	return &vaultsandbox.ExportedInbox{
		EmailAddress: s.Email,
		InboxHash:    s.ID,
		ExpiresAt:    s.ExpiresAt,
		ServerSigPk:  s.Keys.ServerSigPK,
		PublicKeyB64: s.Keys.KEMPublic,
		SecretKeyB64: s.Keys.KEMPrivate,
		ExportedAt:   s.CreatedAt,
	}
}

// FromExport converts an SDK export into the keystore format.
func FromExport(exp *vaultsandbox.ExportedInbox) StoredInbox {
	return StoredInbox{
		Email:     exp.EmailAddress,
		ID:        exp.InboxHash,
		CreatedAt: exp.ExportedAt,
		ExpiresAt: exp.ExpiresAt,
		Keys: InboxKeys{
			KEMPrivate:  exp.SecretKeyB64,
			KEMPublic:   exp.PublicKeyB64,
			ServerSigPK: exp.ServerSigPk,
		},
	}
}

// Keystore is the JSON-backed store of inbox identities under the
// config directory.
type Keystore struct {
	Inboxes     []StoredInbox `json:"inboxes"`
	ActiveInbox string        `json:"active_inbox"` // email address

	mu   sync.RWMutex
	path string
}

func keystorePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "keystore.json"), nil
}

// LoadKeystore reads the keystore, returning an empty one when the file
// does not exist yet.
func LoadKeystore() (*Keystore, error) {
	path, err := keystorePath()
	if err != nil {
		return nil, err
	}

	ks := &Keystore{Inboxes: []StoredInbox{}, path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ks, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ks); err != nil {
		return nil, fmt.Errorf("corrupt keystore %s: %w", path, err)
	}
	ks.path = path
	return ks, nil
}

// Add stores an inbox, replacing any entry with the same address, and
// makes it active.
func (ks *Keystore) Add(inbox StoredInbox) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.removeLocked(inbox.Email)
	ks.Inboxes = append(ks.Inboxes, inbox)
	ks.ActiveInbox = inbox.Email
	return ks.saveLocked()
}

// Find resolves an inbox by exact address, or by unambiguous substring
// match when no exact entry exists.
func (ks *Keystore) Find(query string) (*StoredInbox, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	for i := range ks.Inboxes {
		if ks.Inboxes[i].Email == query {
			return &ks.Inboxes[i], nil
		}
	}

	var matches []*StoredInbox
	for i := range ks.Inboxes {
		if strings.Contains(ks.Inboxes[i].Email, query) {
			matches = append(matches, &ks.Inboxes[i])
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, ErrInboxNotFound
	default:
		return nil, fmt.Errorf("ambiguous inbox %q matches %d entries", query, len(matches))
	}
}

// Active returns the currently active inbox.
func (ks *Keystore) Active() (*StoredInbox, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.ActiveInbox == "" {
		return nil, ErrNoActiveInbox
	}
	for i := range ks.Inboxes {
		if ks.Inboxes[i].Email == ks.ActiveInbox {
			return &ks.Inboxes[i], nil
		}
	}
	return nil, ErrNoActiveInbox
}

// SetActive switches the active inbox to an existing entry.
func (ks *Keystore) SetActive(email string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	for _, inbox := range ks.Inboxes {
		if inbox.Email == email {
			ks.ActiveInbox = email
			return ks.saveLocked()
		}
	}
	return ErrInboxNotFound
}

// Remove deletes an inbox entry. If it was active, the first remaining
// entry becomes active.
func (ks *Keystore) Remove(email string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if !ks.removeLocked(email) {
		return ErrInboxNotFound
	}
	if ks.ActiveInbox == email {
		ks.ActiveInbox = ""
		if len(ks.Inboxes) > 0 {
			ks.ActiveInbox = ks.Inboxes[0].Email
		}
	}
	return ks.saveLocked()
}

// List returns a copy of all stored inboxes.
func (ks *Keystore) List() []StoredInbox {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	out := make([]StoredInbox, len(ks.Inboxes))
	copy(out, ks.Inboxes)
	return out
}

// PruneExpired drops entries past their expiry and reports how many
// were removed.
func (ks *Keystore) PruneExpired() (int, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	kept := ks.Inboxes[:0]
	removed := 0
	for _, inbox := range ks.Inboxes {
		if inbox.Expired() {
			removed++
			continue
		}
		kept = append(kept, inbox)
	}
	if removed == 0 {
		return 0, nil
	}
	ks.Inboxes = kept

	stillActive := false
	for _, inbox := range ks.Inboxes {
		if inbox.Email == ks.ActiveInbox {
			stillActive = true
			break
		}
	}
	if !stillActive {
		ks.ActiveInbox = ""
		if len(ks.Inboxes) > 0 {
			ks.ActiveInbox = ks.Inboxes[0].Email
		}
	}
	return removed, ks.saveLocked()
}

func (ks *Keystore) removeLocked(email string) bool {
	for i, inbox := range ks.Inboxes {
		if inbox.Email == email {
			ks.Inboxes = append(ks.Inboxes[:i], ks.Inboxes[i+1:]...)
			return true
		}
	}
	return false
}

func (ks *Keystore) saveLocked() error {
	if err := EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ks.path, data, 0600)
}
