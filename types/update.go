package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decoder sentinel errors.
var (
	// ErrMissingUpdateID is returned when an update payload has no update_id.
	ErrMissingUpdateID = errors.New("missing update_id")
	// ErrNoUpdateKind is returned when none of the known kind fields is present.
	ErrNoUpdateKind = errors.New("no known update kind")
)

// Update is one incoming event delivered by Telegram.
//
// Update identifiers start from a certain positive number and increase
// sequentially. If there are no new updates for at least a week, the
// identifier of the next update may be chosen randomly instead of
// sequentially, so monotonicity is not enforced here.
type Update struct {
	ID   int64
	Kind UpdateKind
}

// UpdateKind is the tagged union of the nine possible update payloads.
// Concrete kinds: *MessageUpdate, *EditedMessageUpdate, *ChannelPostUpdate,
// *EditedChannelPostUpdate, *InlineQuery, *ChosenInlineResult,
// *CallbackQuery, *ShippingQuery, *PreCheckoutQuery.
type UpdateKind interface {
	updateType() AllowedUpdate
}

// MessageUpdate is a new incoming message of any kind.
type MessageUpdate struct{ Message }

// EditedMessageUpdate is a new version of a message that was edited.
type EditedMessageUpdate struct{ Message }

// ChannelPostUpdate is a new incoming channel post of any kind.
type ChannelPostUpdate struct{ Message }

// EditedChannelPostUpdate is a new version of a channel post that was edited.
type EditedChannelPostUpdate struct{ Message }

func (*MessageUpdate) updateType() AllowedUpdate           { return AllowedMessage }
func (*EditedMessageUpdate) updateType() AllowedUpdate     { return AllowedEditedMessage }
func (*ChannelPostUpdate) updateType() AllowedUpdate       { return AllowedChannelPost }
func (*EditedChannelPostUpdate) updateType() AllowedUpdate { return AllowedEditedChannelPost }
func (*InlineQuery) updateType() AllowedUpdate             { return AllowedInlineQuery }
func (*ChosenInlineResult) updateType() AllowedUpdate      { return AllowedChosenInlineResult }
func (*CallbackQuery) updateType() AllowedUpdate           { return AllowedCallbackQuery }
func (*ShippingQuery) updateType() AllowedUpdate           { return AllowedShippingQuery }
func (*PreCheckoutQuery) updateType() AllowedUpdate        { return AllowedPreCheckoutQuery }

// Type returns the wire name of the update kind ("message", "callback_query", ...).
func (u *Update) Type() AllowedUpdate {
	if u.Kind == nil {
		return ""
	}
	return u.Kind.updateType()
}

// rawUpdate mirrors the wire shape: update_id plus up to nine optional kind fields.
type rawUpdate struct {
	UpdateID           *int64              `json:"update_id"`
	Message            *Message            `json:"message"`
	EditedMessage      *Message            `json:"edited_message"`
	ChannelPost        *Message            `json:"channel_post"`
	EditedChannelPost  *Message            `json:"edited_channel_post"`
	InlineQuery        *InlineQuery        `json:"inline_query"`
	ChosenInlineResult *ChosenInlineResult `json:"chosen_inline_result"`
	CallbackQuery      *CallbackQuery      `json:"callback_query"`
	ShippingQuery      *ShippingQuery      `json:"shipping_query"`
	PreCheckoutQuery   *PreCheckoutQuery   `json:"pre_checkout_query"`
}

// UnmarshalJSON resolves the raw "one of nine optional fields" payload into
// a single kind. The fields are checked in a fixed precedence order (message,
// edited_message, channel_post, edited_channel_post, inline_query,
// chosen_inline_result, callback_query, shipping_query, pre_checkout_query)
// and the first one present wins; extra kind fields are ignored.
func (u *Update) UnmarshalJSON(data []byte) error {
	var raw rawUpdate
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding update: %w", err)
	}
	if raw.UpdateID == nil {
		return ErrMissingUpdateID
	}
	u.ID = *raw.UpdateID

	switch {
	case raw.Message != nil:
		u.Kind = &MessageUpdate{*raw.Message}
	case raw.EditedMessage != nil:
		u.Kind = &EditedMessageUpdate{*raw.EditedMessage}
	case raw.ChannelPost != nil:
		u.Kind = &ChannelPostUpdate{*raw.ChannelPost}
	case raw.EditedChannelPost != nil:
		u.Kind = &EditedChannelPostUpdate{*raw.EditedChannelPost}
	case raw.InlineQuery != nil:
		u.Kind = raw.InlineQuery
	case raw.ChosenInlineResult != nil:
		u.Kind = raw.ChosenInlineResult
	case raw.CallbackQuery != nil:
		u.Kind = raw.CallbackQuery
	case raw.ShippingQuery != nil:
		u.Kind = raw.ShippingQuery
	case raw.PreCheckoutQuery != nil:
		u.Kind = raw.PreCheckoutQuery
	default:
		return ErrNoUpdateKind
	}
	return nil
}

// message returns the embedded message for message-bearing kinds.
func (u *Update) message() *Message {
	switch k := u.Kind.(type) {
	case *MessageUpdate:
		return &k.Message
	case *EditedMessageUpdate:
		return &k.Message
	case *ChannelPostUpdate:
		return &k.Message
	case *EditedChannelPostUpdate:
		return &k.Message
	}
	return nil
}

// ChatID returns the chat ID for message-bearing kinds.
func (u *Update) ChatID() (int64, bool) {
	if msg := u.message(); msg != nil {
		return msg.Chat.ID, true
	}
	return 0, false
}

// ChatUsername returns the chat username for message-bearing kinds.
func (u *Update) ChatUsername() (string, bool) {
	if msg := u.message(); msg != nil && msg.Chat.Username != "" {
		return msg.Chat.Username, true
	}
	return "", false
}

// From returns the user that produced the update, or nil when the kind
// carries no sender (e.g. channel posts).
func (u *Update) From() *User {
	switch k := u.Kind.(type) {
	case *InlineQuery:
		return &k.From
	case *ChosenInlineResult:
		return &k.From
	case *CallbackQuery:
		return &k.From
	case *ShippingQuery:
		return &k.From
	case *PreCheckoutQuery:
		return &k.From
	}
	if msg := u.message(); msg != nil {
		return msg.From
	}
	return nil
}

// AllowedUpdate names a type of update to receive.
type AllowedUpdate string

// Update types accepted by the allowed_updates filter.
const (
	AllowedMessage            AllowedUpdate = "message"
	AllowedEditedMessage      AllowedUpdate = "edited_message"
	AllowedChannelPost        AllowedUpdate = "channel_post"
	AllowedEditedChannelPost  AllowedUpdate = "edited_channel_post"
	AllowedInlineQuery        AllowedUpdate = "inline_query"
	AllowedChosenInlineResult AllowedUpdate = "chosen_inline_result"
	AllowedCallbackQuery      AllowedUpdate = "callback_query"
	AllowedShippingQuery      AllowedUpdate = "shipping_query"
	AllowedPreCheckoutQuery   AllowedUpdate = "pre_checkout_query"
)

// WebhookInfo contains information about the current webhook status.
// See https://core.telegram.org/bots/api#webhookinfo
type WebhookInfo struct {
	URL                  string          `json:"url"`
	HasCustomCertificate bool            `json:"has_custom_certificate"`
	PendingUpdateCount   int             `json:"pending_update_count"`
	IPAddress            string          `json:"ip_address,omitempty"`
	LastErrorDate        int64           `json:"last_error_date,omitempty"`
	LastErrorMessage     string          `json:"last_error_message,omitempty"`
	MaxConnections       int             `json:"max_connections,omitempty"`
	AllowedUpdates       []AllowedUpdate `json:"allowed_updates,omitempty"`
}
