package vaultsandbox

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/vaultsandbox/client-go/authresults"
	"github.com/vaultsandbox/client-go/internal/api"
	"github.com/vaultsandbox/client-go/internal/crypto"
	"github.com/vaultsandbox/client-go/spamanalysis"
)

// emailMetadataJSON is the decrypted shape of a record's metadata field.
type emailMetadataJSON struct {
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// emailParsedJSON is the decrypted shape of a record's parsed body.
type emailParsedJSON struct {
	Text         string                     `json:"text"`
	HTML         string                     `json:"html"`
	Headers      map[string]any             `json:"headers"`
	Attachments  []attachmentJSON           `json:"attachments"`
	Links        []string                   `json:"links"`
	AuthResults  *authresults.AuthResults   `json:"authResults"`
	SpamAnalysis *spamanalysis.SpamAnalysis `json:"spamAnalysis"`
}

type attachmentJSON struct {
	Filename           string `json:"filename"`
	ContentType        string `json:"contentType"`
	Size               int    `json:"size"`
	ContentID          string `json:"contentId"`
	ContentDisposition string `json:"contentDisposition"`
	Content            string `json:"content"` // base64
	Checksum           string `json:"checksum"`
}

// decodeEmail turns a wire record into an Email. The record's field
// shape, not caller knowledge, selects the encrypted or plaintext path:
// encrypted records carry structured payloads, plaintext records carry
// base64 JSON. The parsed body is optional; metadata-only records yield
// an Email without body fields.
func decodeEmail(raw *api.RawEmail, keys *crypto.KeyPair, serverSigPk, cryptoCtx string) (*Email, error) {
	metaBytes, err := fieldBytes(raw.EncryptedMetadata, raw.Metadata, keys, serverSigPk, cryptoCtx)
	if err != nil {
		return nil, err
	}
	if metaBytes == nil {
		return nil, decodeError(errors.New("record carries no metadata"))
	}

	var meta emailMetadataJSON
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, decodeError(err)
	}

	email := &Email{
		ID:         raw.ID,
		From:       meta.From,
		To:         meta.To,
		Subject:    meta.Subject,
		ReceivedAt: raw.ReceivedAt,
		IsRead:     raw.IsRead,
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = meta.ReceivedAt
	}

	parsedBytes, err := fieldBytes(raw.EncryptedParsed, raw.Parsed, keys, serverSigPk, cryptoCtx)
	if err != nil {
		return nil, err
	}
	if parsedBytes == nil {
		return email, nil
	}

	var parsed emailParsedJSON
	if err := json.Unmarshal(parsedBytes, &parsed); err != nil {
		return nil, decodeError(err)
	}

	email.Text = parsed.Text
	email.HTML = parsed.HTML
	email.Links = parsed.Links
	email.AuthResults = parsed.AuthResults
	email.SpamAnalysis = parsed.SpamAnalysis
	email.Headers = stringHeaders(parsed.Headers)

	for _, att := range parsed.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, decodeError(err)
		}
		size := att.Size
		if size == 0 {
			size = len(content)
		}
		email.Attachments = append(email.Attachments, Attachment{
			Filename:           att.Filename,
			ContentType:        att.ContentType,
			Size:               size,
			ContentID:          att.ContentID,
			ContentDisposition: att.ContentDisposition,
			Content:            content,
			Checksum:           att.Checksum,
		})
	}
	return email, nil
}

// decodeEmailMetadata decodes only the metadata phase, for list views.
func decodeEmailMetadata(raw *api.RawEmail, keys *crypto.KeyPair, serverSigPk, cryptoCtx string) (*EmailMetadata, error) {
	metaBytes, err := fieldBytes(raw.EncryptedMetadata, raw.Metadata, keys, serverSigPk, cryptoCtx)
	if err != nil {
		return nil, err
	}
	if metaBytes == nil {
		return nil, decodeError(errors.New("record carries no metadata"))
	}

	var meta emailMetadataJSON
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, decodeError(err)
	}

	m := &EmailMetadata{
		ID:         raw.ID,
		From:       meta.From,
		Subject:    meta.Subject,
		ReceivedAt: raw.ReceivedAt,
		IsRead:     raw.IsRead,
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = meta.ReceivedAt
	}
	return m, nil
}

// decodeRawSource decodes a raw-source record into the original RFC 822
// message text.
func decodeRawSource(src *api.RawEmailSource, keys *crypto.KeyPair, serverSigPk, cryptoCtx string) (string, error) {
	if src.EncryptedRaw != nil {
		data, err := src.EncryptedRaw.Decrypt(keys, serverSigPk, cryptoCtx)
		if err != nil {
			return "", decodeError(err)
		}
		return string(data), nil
	}
	if src.Raw != "" {
		data, err := base64.StdEncoding.DecodeString(src.Raw)
		if err != nil {
			return "", decodeError(err)
		}
		return string(data), nil
	}
	return "", decodeError(errors.New("record carries no raw source"))
}

// fieldBytes resolves one record field to plaintext bytes. Returns nil
// without error when the field is absent.
func fieldBytes(payload *crypto.EncryptedPayload, plain string, keys *crypto.KeyPair, serverSigPk, cryptoCtx string) ([]byte, error) {
	if payload != nil {
		data, err := payload.Decrypt(keys, serverSigPk, cryptoCtx)
		if err != nil {
			return nil, decodeError(err)
		}
		return data, nil
	}
	if plain != "" {
		data, err := base64.StdEncoding.DecodeString(plain)
		if err != nil {
			return nil, decodeError(err)
		}
		return data, nil
	}
	return nil, nil
}

// stringHeaders keeps only string-valued headers.
func stringHeaders(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
