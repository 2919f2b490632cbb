package methods

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/vldm/tgbot/types"
)

// GetUpdates fetches incoming updates using long polling.
// Result: []types.Update (item-level decode errors are the caller's concern).
// See https://core.telegram.org/bots/api#getupdates
type GetUpdates struct {
	// Offset is the identifier of the first update to be returned; one
	// greater than the highest id already confirmed.
	Offset int64 `json:"offset,omitempty"`
	// Limit bounds the number of updates per batch, 1-100.
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	// Timeout is the server-side long-poll wait in seconds.
	Timeout int `json:"timeout,omitempty" validate:"min=0,max=60"`
	// AllowedUpdates filters the kinds of updates to receive.
	AllowedUpdates []types.AllowedUpdate `json:"allowed_updates,omitempty"`
}

// BuildRequest implements Call.
func (m GetUpdates) BuildRequest() (*Request, error) {
	if err := validateCall("getUpdates", m); err != nil {
		return nil, err
	}
	req, err := NewJSONRequest("getUpdates", m)
	if err != nil {
		return nil, err
	}
	req.Timeout = time.Duration(m.Timeout) * time.Second
	return req, nil
}

// SetWebhook registers an HTTPS URL to receive incoming updates on.
// Encodes as multipart when a certificate is attached, JSON otherwise.
// Result: bool.
// See https://core.telegram.org/bots/api#setwebhook
type SetWebhook struct {
	URL                string                `json:"url" validate:"required,url"`
	Certificate        *InputFile            `json:"-"`
	SecretToken        string                `json:"secret_token,omitempty"`
	MaxConnections     int                   `json:"max_connections,omitempty" validate:"omitempty,min=1,max=100"`
	AllowedUpdates     []types.AllowedUpdate `json:"allowed_updates,omitempty"`
	DropPendingUpdates bool                  `json:"drop_pending_updates,omitempty"`
}

// BuildRequest implements Call.
func (m SetWebhook) BuildRequest() (*Request, error) {
	if err := validateCall("setWebhook", m); err != nil {
		return nil, err
	}
	if m.Certificate == nil {
		return NewJSONRequest("setWebhook", m)
	}

	parts := []Part{TextPart("url", m.URL)}
	if m.SecretToken != "" {
		parts = append(parts, TextPart("secret_token", m.SecretToken))
	}
	if m.MaxConnections != 0 {
		parts = append(parts, TextPart("max_connections", strconv.Itoa(m.MaxConnections)))
	}
	if len(m.AllowedUpdates) > 0 {
		encoded, err := json.Marshal(m.AllowedUpdates)
		if err != nil {
			return nil, &RequestError{Path: "setWebhook", Err: err}
		}
		parts = append(parts, TextPart("allowed_updates", string(encoded)))
	}
	if m.DropPendingUpdates {
		parts = append(parts, TextPart("drop_pending_updates", "true"))
	}
	parts = append(parts, FilePart("certificate", *m.Certificate))
	return NewUploadRequest("setWebhook", parts)
}

// DeleteWebhook removes the current webhook integration.
// Result: bool.
// See https://core.telegram.org/bots/api#deletewebhook
type DeleteWebhook struct {
	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

// BuildRequest implements Call.
func (m DeleteWebhook) BuildRequest() (*Request, error) {
	return NewJSONRequest("deleteWebhook", m)
}

// GetWebhookInfo returns the current webhook status.
// Result: types.WebhookInfo.
// See https://core.telegram.org/bots/api#getwebhookinfo
type GetWebhookInfo struct{}

// BuildRequest implements Call.
func (GetWebhookInfo) BuildRequest() (*Request, error) {
	return NewGetRequest("getWebhookInfo")
}
