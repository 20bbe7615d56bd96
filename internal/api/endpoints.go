package api

import (
	"context"
	"net/http"
	"net/url"
)

// GetServerInfo fetches the gateway's capabilities and pinned signing key.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, "/api/server-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateInbox registers a new inbox for the given KEM public key.
func (c *Client) CreateInbox(ctx context.Context, req *CreateInboxRequest) (*CreateInboxResponse, error) {
	var resp CreateInboxResponse
	if err := c.do(ctx, http.MethodPost, "/api/inboxes", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteInbox removes an inbox and all of its emails.
func (c *Client) DeleteInbox(ctx context.Context, emailAddress string) error {
	return c.do(ctx, http.MethodDelete, "/api/inboxes/"+url.PathEscape(emailAddress), nil, nil)
}

// GetEmails lists an inbox's emails. With includeBody false the gateway
// omits the parsed body payloads, which is much cheaper for large
// inboxes and is all reconciliation needs.
func (c *Client) GetEmails(ctx context.Context, emailAddress string, includeBody bool) ([]*RawEmail, error) {
	path := "/api/inboxes/" + url.PathEscape(emailAddress) + "/emails"
	if !includeBody {
		path += "?metadataOnly=true"
	}
	var resp GetEmailsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Emails, nil
}

// GetEmail fetches a single email with its full body.
func (c *Client) GetEmail(ctx context.Context, emailAddress, id string) (*RawEmail, error) {
	var raw RawEmail
	path := "/api/inboxes/" + url.PathEscape(emailAddress) + "/emails/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// GetRawEmail fetches the original RFC 822 source of an email.
func (c *Client) GetRawEmail(ctx context.Context, emailAddress, id string) (*RawEmailSource, error) {
	var src RawEmailSource
	path := "/api/inboxes/" + url.PathEscape(emailAddress) + "/emails/" + url.PathEscape(id) + "/raw"
	if err := c.do(ctx, http.MethodGet, path, nil, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

// GetSyncStatus fetches the authoritative email count and fingerprint.
func (c *Client) GetSyncStatus(ctx context.Context, emailAddress string) (*SyncStatus, error) {
	var status SyncStatus
	path := "/api/inboxes/" + url.PathEscape(emailAddress) + "/sync"
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// MarkEmailAsRead flips an email's read flag on the server.
func (c *Client) MarkEmailAsRead(ctx context.Context, emailAddress, id string) error {
	path := "/api/inboxes/" + url.PathEscape(emailAddress) + "/emails/" + url.PathEscape(id) + "/read"
	return c.do(ctx, http.MethodPatch, path, nil, nil)
}

// DeleteEmail removes a single email.
func (c *Client) DeleteEmail(ctx context.Context, emailAddress, id string) error {
	path := "/api/inboxes/" + url.PathEscape(emailAddress) + "/emails/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
