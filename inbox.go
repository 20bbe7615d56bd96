package vaultsandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vaultsandbox/client-go/internal/api"
	"github.com/vaultsandbox/client-go/internal/crypto"
	"github.com/vaultsandbox/client-go/internal/delivery"
	"github.com/vaultsandbox/client-go/internal/queue"
	"github.com/vaultsandbox/client-go/internal/synchash"
)

// Inbox is one temporary mailbox and the client's live mirror of its
// server-side state. Direct calls (GetEmails, GetEmail, ...) hit the
// gateway; the wait/watch API reads from an internal stream fed by the
// client's delivery strategy, on which every email appears exactly once.
type Inbox struct {
	client       *Client
	emailAddress string
	inboxHash    string
	expiresAt    time.Time
	keys         *crypto.KeyPair
	serverSigPk  string
	cryptoCtx    string

	// subMu guards the subscribe-once transition and disposal.
	subMu      sync.Mutex
	subscribed bool
	disposed   bool
	subCtx     context.Context
	subCancel  context.CancelFunc

	// knownIDs is the de-duplication gate: an email id enters it
	// exactly once before the email is queued.
	knownIDs sync.Map // email id -> struct{}

	events *queue.Queue[*Email]
}

func (c *Client) newInbox(emailAddress, inboxHash string, expiresAt time.Time, keys *crypto.KeyPair, serverSigPk, cryptoCtx string) *Inbox {
	subCtx, subCancel := context.WithCancel(context.Background())
	return &Inbox{
		client:       c,
		emailAddress: emailAddress,
		inboxHash:    inboxHash,
		expiresAt:    expiresAt,
		keys:         keys,
		serverSigPk:  serverSigPk,
		cryptoCtx:    cryptoCtx,
		subCtx:       subCtx,
		subCancel:    subCancel,
		events:       queue.New[*Email](),
	}
}

// EmailAddress returns the inbox's address.
func (i *Inbox) EmailAddress() string { return i.emailAddress }

// InboxHash returns the opaque hash identifying the inbox's
// cryptographic identity.
func (i *Inbox) InboxHash() string { return i.inboxHash }

// ExpiresAt returns when the gateway will delete the inbox.
func (i *Inbox) ExpiresAt() time.Time { return i.expiresAt }

// Connected reports whether live delivery (push connection or poll loop)
// is currently running. A false result after use means emails arrive
// only through explicit fetches.
func (i *Inbox) Connected() bool {
	return i.client.strategy().Connected(i.inboxHash)
}

// GetEmails fetches and decrypts all emails. This is a point-in-time
// read straight from the gateway; it does not consume or affect the
// wait/watch stream.
func (i *Inbox) GetEmails(ctx context.Context) ([]*Email, error) {
	if err := i.ensureSubscribed(); err != nil {
		return nil, err
	}
	raws, err := i.client.api.GetEmails(ctx, i.emailAddress, true)
	if err != nil {
		return nil, i.mapInboxErr(err)
	}
	emails := make([]*Email, 0, len(raws))
	for _, raw := range raws {
		email, err := decodeEmail(raw, i.keys, i.serverSigPk, i.cryptoCtx)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// GetEmailMetadata fetches metadata for all emails without bodies or
// attachments, which is much cheaper for list displays.
func (i *Inbox) GetEmailMetadata(ctx context.Context) ([]*EmailMetadata, error) {
	if err := i.ensureSubscribed(); err != nil {
		return nil, err
	}
	raws, err := i.client.api.GetEmails(ctx, i.emailAddress, false)
	if err != nil {
		return nil, i.mapInboxErr(err)
	}
	metas := make([]*EmailMetadata, 0, len(raws))
	for _, raw := range raws {
		meta, err := decodeEmailMetadata(raw, i.keys, i.serverSigPk, i.cryptoCtx)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// GetEmail fetches and decrypts a single email.
func (i *Inbox) GetEmail(ctx context.Context, id string) (*Email, error) {
	if err := i.checkDisposed(); err != nil {
		return nil, err
	}
	raw, err := i.client.api.GetEmail(ctx, i.emailAddress, id)
	if err != nil {
		return nil, i.mapErr(err)
	}
	return decodeEmail(raw, i.keys, i.serverSigPk, i.cryptoCtx)
}

// GetRawEmail fetches the original RFC 822 source of an email.
func (i *Inbox) GetRawEmail(ctx context.Context, id string) (string, error) {
	if err := i.checkDisposed(); err != nil {
		return "", err
	}
	src, err := i.client.api.GetRawEmail(ctx, i.emailAddress, id)
	if err != nil {
		return "", i.mapErr(err)
	}
	return decodeRawSource(src, i.keys, i.serverSigPk, i.cryptoCtx)
}

// MarkEmailAsRead flips the email's read flag on the gateway.
func (i *Inbox) MarkEmailAsRead(ctx context.Context, id string) error {
	if err := i.checkDisposed(); err != nil {
		return err
	}
	if err := i.client.api.MarkEmailAsRead(ctx, i.emailAddress, id); err != nil {
		return i.mapErr(err)
	}
	return nil
}

// DeleteEmail removes an email from the gateway. The id is also dropped
// from the local de-duplication state, mirroring what the next
// reconciliation would do.
func (i *Inbox) DeleteEmail(ctx context.Context, id string) error {
	if err := i.checkDisposed(); err != nil {
		return err
	}
	if err := i.client.api.DeleteEmail(ctx, i.emailAddress, id); err != nil {
		return i.mapErr(err)
	}
	i.knownIDs.Delete(id)
	return nil
}

// SyncStatus is the gateway's summary of an inbox: how many emails it
// holds and the order-independent fingerprint over their ids.
type SyncStatus struct {
	EmailCount int
	EmailsHash string
}

// GetSyncStatus fetches the inbox's email count and fingerprint without
// transferring any email content.
func (i *Inbox) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	if err := i.checkDisposed(); err != nil {
		return nil, err
	}
	status, err := i.client.api.GetSyncStatus(ctx, i.emailAddress)
	if err != nil {
		return nil, i.mapInboxErr(err)
	}
	return &SyncStatus{EmailCount: status.EmailCount, EmailsHash: status.EmailsHash}, nil
}

// Export returns the inbox's identity for persistence and later
// ImportInbox. The secret key grants full read access to the inbox;
// store it accordingly.
func (i *Inbox) Export() *ExportedInbox {
	pub, _ := i.keys.PublicBase64()
	sec, _ := i.keys.PrivateBase64()
	return &ExportedInbox{
		EmailAddress: i.emailAddress,
		InboxHash:    i.inboxHash,
		ExpiresAt:    i.expiresAt,
		ServerSigPk:  i.serverSigPk,
		PublicKeyB64: pub,
		SecretKeyB64: sec,
		ExportedAt:   time.Now().UTC(),
	}
}

// Dispose tears the inbox down: delivery stops and the wait/watch stream
// ends. Every later operation fails with ErrInboxDisposed. Idempotent.
func (i *Inbox) Dispose() {
	i.subMu.Lock()
	if i.disposed {
		i.subMu.Unlock()
		return
	}
	i.disposed = true
	subscribed := i.subscribed
	i.subMu.Unlock()

	if subscribed {
		i.client.strategy().Unsubscribe(i.inboxHash)
	}
	i.subCancel()
	i.events.Close()
}

func (i *Inbox) checkDisposed() error {
	i.subMu.Lock()
	defer i.subMu.Unlock()
	if i.disposed {
		return ErrInboxDisposed
	}
	return nil
}

// ensureSubscribed lazily starts delivery on first use. Concurrent
// callers collapse into a single subscription.
func (i *Inbox) ensureSubscribed() error {
	i.subMu.Lock()
	defer i.subMu.Unlock()

	if i.disposed {
		return ErrInboxDisposed
	}
	if i.subscribed {
		return nil
	}

	i.client.strategy().Subscribe(i.subCtx, delivery.Subscription{
		EmailAddress: i.emailAddress,
		InboxHash:    i.inboxHash,
		Interval:     i.client.opts.pollInterval,
		OnEvent:      i.onPushEvent,
		OnReconcile:  i.reconcile,
	})
	i.subscribed = true
	return nil
}

// onPushEvent handles one pushed notification. The knownIDs insert is
// the sole de-duplication boundary: the gateway may push an id more than
// once, and reconciliation may discover it independently, but it is
// queued at most once. A failed fetch/decode releases the id again so a
// later push or reconciliation can retry it.
func (i *Inbox) onPushEvent(ev delivery.Event) {
	if _, dup := i.knownIDs.LoadOrStore(ev.EmailID, struct{}{}); dup {
		return
	}
	if err := i.fetchAndEnqueue(ev.EmailID); err != nil {
		i.knownIDs.Delete(ev.EmailID)
		i.client.logger.Warn("email delivery failed, will retry on next event",
			"inbox", i.emailAddress, "email", ev.EmailID, "error", err)
	}
}

// reconcile compares local and server state and catches up. It runs on
// every (re)connect of the push channel and on every polling tick, and
// never lets one bad email abort the pass. Ids the server no longer
// reports are dropped silently; no deletion events reach the stream.
func (i *Inbox) reconcile() {
	status, err := i.client.api.GetSyncStatus(i.subCtx, i.emailAddress)
	if err != nil {
		i.client.logger.Warn("sync status fetch failed", "inbox", i.emailAddress, "error", err)
		return
	}

	local := i.knownIDSnapshot()
	if synchash.Compute(local) == status.EmailsHash {
		// Fingerprints agree, no listing needed.
		return
	}

	raws, err := i.client.api.GetEmails(i.subCtx, i.emailAddress, false)
	if err != nil {
		i.client.logger.Warn("email listing failed", "inbox", i.emailAddress, "error", err)
		return
	}

	serverIDs := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		serverIDs[raw.ID] = struct{}{}
	}

	for _, id := range local {
		if _, ok := serverIDs[id]; !ok {
			i.knownIDs.Delete(id)
		}
	}

	for _, raw := range raws {
		if _, dup := i.knownIDs.LoadOrStore(raw.ID, struct{}{}); dup {
			continue
		}
		if err := i.fetchAndEnqueue(raw.ID); err != nil {
			i.knownIDs.Delete(raw.ID)
			i.client.logger.Warn("reconciliation delivery failed, will retry",
				"inbox", i.emailAddress, "email", raw.ID, "error", err)
		}
	}
}

// fetchAndEnqueue pulls one email's full content and puts it on the
// stream. The caller owns the knownIDs slot and releases it on error.
func (i *Inbox) fetchAndEnqueue(id string) error {
	raw, err := i.client.api.GetEmail(i.subCtx, i.emailAddress, id)
	if err != nil {
		return err
	}
	email, err := decodeEmail(raw, i.keys, i.serverSigPk, i.cryptoCtx)
	if err != nil {
		return err
	}
	i.events.Push(email)
	return nil
}

func (i *Inbox) knownIDSnapshot() []string {
	var ids []string
	i.knownIDs.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	return ids
}

// mapErr translates transport sentinels into the public taxonomy for
// email-scoped endpoints.
func (i *Inbox) mapErr(err error) error {
	if errors.Is(err, api.ErrNotFound) {
		return ErrEmailNotFound
	}
	return err
}

// mapInboxErr is mapErr for inbox-scoped endpoints, where a 404 means
// the inbox itself is gone.
func (i *Inbox) mapInboxErr(err error) error {
	if errors.Is(err, api.ErrNotFound) {
		return ErrInboxNotFound
	}
	return err
}
