package methods

import "strconv"

// SendMessage sends a text message.
// Result: types.Message.
// See https://core.telegram.org/bots/api#sendmessage
type SendMessage struct {
	ChatID                int64  `json:"chat_id" validate:"required"`
	Text                  string `json:"text" validate:"required"`
	ParseMode             string `json:"parse_mode,omitempty" validate:"omitempty,oneof=Markdown MarkdownV2 HTML"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

// BuildRequest implements Call.
func (m SendMessage) BuildRequest() (*Request, error) {
	if err := validateCall("sendMessage", m); err != nil {
		return nil, err
	}
	return NewJSONRequest("sendMessage", m)
}

// SendDocument sends a general file. Always encodes as multipart since the
// parameter set carries the file itself.
// Result: types.Message.
// See https://core.telegram.org/bots/api#senddocument
type SendDocument struct {
	ChatID              int64      `json:"chat_id" validate:"required"`
	Document            *InputFile `json:"-" validate:"required"`
	Caption             string     `json:"caption,omitempty"`
	DisableNotification bool       `json:"disable_notification,omitempty"`
	ReplyToMessageID    int64      `json:"reply_to_message_id,omitempty"`
}

// BuildRequest implements Call.
func (m SendDocument) BuildRequest() (*Request, error) {
	if err := validateCall("sendDocument", m); err != nil {
		return nil, err
	}
	parts := []Part{TextPart("chat_id", strconv.FormatInt(m.ChatID, 10))}
	if m.Caption != "" {
		parts = append(parts, TextPart("caption", m.Caption))
	}
	if m.DisableNotification {
		parts = append(parts, TextPart("disable_notification", "true"))
	}
	if m.ReplyToMessageID != 0 {
		parts = append(parts, TextPart("reply_to_message_id", strconv.FormatInt(m.ReplyToMessageID, 10)))
	}
	parts = append(parts, FilePart("document", *m.Document))
	return NewUploadRequest("sendDocument", parts)
}
