package methods

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vldm/tgbot/types"
)

func decodeJSONBody(t *testing.T, req *Request) map[string]any {
	t.Helper()
	ct, body, err := req.Body.Encode()
	require.NoError(t, err)
	assert.Equal(t, "application/json", ct)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload
}

func readMultipartBody(t *testing.T, req *Request) *multipart.Form {
	t.Helper()
	ct, body, err := req.Body.Encode()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	return form
}

func TestGetMe_BuildRequest(t *testing.T) {
	req, err := GetMe{}.BuildRequest()
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "getMe", req.Path)
	assert.Nil(t, req.Body)
	assert.Zero(t, req.Timeout)
}

func TestGetUpdates_BuildRequest(t *testing.T) {
	req, err := GetUpdates{
		Offset:         101,
		Limit:          50,
		Timeout:        25,
		AllowedUpdates: []types.AllowedUpdate{types.AllowedMessage, types.AllowedCallbackQuery},
	}.BuildRequest()
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "getUpdates", req.Path)
	assert.Equal(t, "25s", req.Timeout.String())

	payload := decodeJSONBody(t, req)
	assert.Equal(t, float64(101), payload["offset"])
	assert.Equal(t, float64(50), payload["limit"])
	assert.Equal(t, float64(25), payload["timeout"])
	assert.Equal(t, []any{"message", "callback_query"}, payload["allowed_updates"])
}

func TestGetUpdates_BuildRequest_InvalidLimit(t *testing.T) {
	_, err := GetUpdates{Limit: 500}.BuildRequest()
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "getUpdates", reqErr.Path)
	assert.Contains(t, err.Error(), "limit")
}

func TestSendMessage_BuildRequest(t *testing.T) {
	req, err := SendMessage{ChatID: 42, Text: "hello", ParseMode: "HTML"}.BuildRequest()
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "sendMessage", req.Path)

	payload := decodeJSONBody(t, req)
	assert.Equal(t, float64(42), payload["chat_id"])
	assert.Equal(t, "hello", payload["text"])
	assert.Equal(t, "HTML", payload["parse_mode"])
	assert.NotContains(t, payload, "disable_notification")
}

func TestSendMessage_BuildRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		call SendMessage
		want string
	}{
		{name: "missing text", call: SendMessage{ChatID: 42}, want: "text"},
		{name: "missing chat id", call: SendMessage{Text: "hello"}, want: "chat_id"},
		{name: "bad parse mode", call: SendMessage{ChatID: 42, Text: "x", ParseMode: "BBCode"}, want: "parse_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call.BuildRequest()
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// A call with a file field encodes as multipart: the file as a binary part,
// every other parameter as a text part under its JSON field name.
func TestSendDocument_BuildRequest(t *testing.T) {
	req, err := SendDocument{
		ChatID:  42,
		Caption: "report",
		Document: &InputFile{
			Name:        "report.txt",
			ContentType: "text/plain",
			Data:        strings.NewReader("file-content"),
		},
	}.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "sendDocument", req.Path)

	form := readMultipartBody(t, req)
	defer form.RemoveAll()

	assert.Equal(t, []string{"42"}, form.Value["chat_id"])
	assert.Equal(t, []string{"report"}, form.Value["caption"])

	files := form.File["document"]
	require.Len(t, files, 1)
	assert.Equal(t, "report.txt", files[0].Filename)
	assert.Equal(t, "text/plain", files[0].Header.Get("Content-Type"))

	f, err := files[0].Open()
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "file-content", string(content))
}

func TestSendDocument_BuildRequest_MissingFile(t *testing.T) {
	_, err := SendDocument{ChatID: 42}.BuildRequest()
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
}

func TestDeleteChatPhoto_BuildRequest(t *testing.T) {
	req, err := DeleteChatPhoto{ChatID: 42}.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "deleteChatPhoto", req.Path)

	payload := decodeJSONBody(t, req)
	assert.Equal(t, float64(42), payload["chat_id"])

	_, err = DeleteChatPhoto{}.BuildRequest()
	require.Error(t, err)
}

// setWebhook switches encodings on certificate presence.
func TestSetWebhook_BuildRequest(t *testing.T) {
	t.Run("json without certificate", func(t *testing.T) {
		req, err := SetWebhook{
			URL:            "https://bot.example.com/updates",
			SecretToken:    "s3cret",
			MaxConnections: 40,
		}.BuildRequest()
		require.NoError(t, err)

		payload := decodeJSONBody(t, req)
		assert.Equal(t, "https://bot.example.com/updates", payload["url"])
		assert.Equal(t, "s3cret", payload["secret_token"])
		assert.Equal(t, float64(40), payload["max_connections"])
	})

	t.Run("multipart with certificate", func(t *testing.T) {
		req, err := SetWebhook{
			URL:            "https://bot.example.com/updates",
			AllowedUpdates: []types.AllowedUpdate{types.AllowedMessage},
			Certificate: &InputFile{
				Name: "cert.pem",
				Data: strings.NewReader("pem-bytes"),
			},
		}.BuildRequest()
		require.NoError(t, err)

		form := readMultipartBody(t, req)
		defer form.RemoveAll()

		assert.Equal(t, []string{"https://bot.example.com/updates"}, form.Value["url"])
		assert.Equal(t, []string{`["message"]`}, form.Value["allowed_updates"])
		require.Len(t, form.File["certificate"], 1)
		assert.Equal(t, "cert.pem", form.File["certificate"][0].Filename)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := SetWebhook{URL: "not-a-url"}.BuildRequest()
		require.Error(t, err)

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
	})
}

func TestDeleteWebhook_BuildRequest(t *testing.T) {
	req, err := DeleteWebhook{DropPendingUpdates: true}.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, "deleteWebhook", req.Path)

	payload := decodeJSONBody(t, req)
	assert.Equal(t, true, payload["drop_pending_updates"])
}

func TestGetWebhookInfo_BuildRequest(t *testing.T) {
	req, err := GetWebhookInfo{}.BuildRequest()
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "getWebhookInfo", req.Path)
	assert.Nil(t, req.Body)
}
