package methods

// GetMe returns basic information about the bot.
// Result: types.User.
// See https://core.telegram.org/bots/api#getme
type GetMe struct{}

// BuildRequest implements Call.
func (GetMe) BuildRequest() (*Request, error) {
	return NewGetRequest("getMe")
}
