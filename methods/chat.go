package methods

// DeleteChatPhoto deletes a chat photo. Photos can't be changed for private
// chats; the bot must be an administrator with the appropriate rights.
// Result: bool.
// See https://core.telegram.org/bots/api#deletechatphoto
type DeleteChatPhoto struct {
	ChatID int64 `json:"chat_id" validate:"required"`
}

// BuildRequest implements Call.
func (m DeleteChatPhoto) BuildRequest() (*Request, error) {
	if err := validateCall("deleteChatPhoto", m); err != nil {
		return nil, err
	}
	return NewJSONRequest("deleteChatPhoto", m)
}
