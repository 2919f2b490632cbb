package tgbot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vldm/tgbot/methods"
	"github.com/vldm/tgbot/types"
)

const testToken = "123456789:TEST-token_ABC"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api, err := New(testToken,
		WithBaseURL(server.URL),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return api
}

func TestNew_TokenValidation(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid token", token: testToken},
		{name: "empty token", token: "", wantErr: ErrBotTokenRequired},
		{name: "no colon", token: "12345ABCdef", wantErr: ErrInvalidBotToken},
		{name: "non-numeric id", token: "abc:def", wantErr: ErrInvalidBotToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.token, WithLogger(discardLogger()))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_WithProxy(t *testing.T) {
	if _, err := New(testToken, WithProxy("socks5://127.0.0.1:9050"), WithLogger(discardLogger())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := New(testToken, WithProxy("://bad"), WithLogger(discardLogger()))
	if !errors.Is(err, ErrInvalidProxyURL) {
		t.Fatalf("expected ErrInvalidProxyURL, got %v", err)
	}
}

func TestExecute_Success(t *testing.T) {
	var gotMethod, gotPath string
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 7, "is_bot": true, "first_name": "testbot"},
		})
	})

	user, err := Execute[types.User](context.Background(), api, methods.GetMe{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 7 || !user.IsBot || user.FirstName != "testbot" {
		t.Errorf("unexpected user: %+v", user)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("expected GET, got %s", gotMethod)
	}
	if want := "/bot" + testToken + "/getMe"; gotPath != want {
		t.Errorf("expected path %q, got %q", want, gotPath)
	}
}

func TestExecute_JSONBody(t *testing.T) {
	var gotContentType string
	var gotPayload map[string]any
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 1,
				"date":       0,
				"chat":       map[string]any{"id": 42, "type": "private"},
				"text":       "hello",
			},
		})
	})

	msg, err := Execute[types.Message](context.Background(), api, methods.SendMessage{ChatID: 42, Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Chat.ID != 42 || msg.Text != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
	if gotPayload["chat_id"] != float64(42) || gotPayload["text"] != "hello" {
		t.Errorf("unexpected payload: %v", gotPayload)
	}
}

func TestExecute_APIError(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  401,
			"description": "Unauthorized",
		})
	})

	_, err := Execute[types.User](context.Background(), api, methods.GetMe{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != 401 || apiErr.Description != "Unauthorized" {
		t.Errorf("unexpected API error: %+v", apiErr)
	}
}

func TestExecute_NonOKStatus(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	})

	_, err := Execute[types.User](context.Background(), api, methods.GetMe{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", transportErr.StatusCode)
	}
	if string(transportErr.Body) != "upstream unavailable" {
		t.Errorf("expected body preserved, got %q", transportErr.Body)
	}
}

func TestExecute_MalformedEnvelope(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json at all")
	})

	_, err := Execute[types.User](context.Background(), api, methods.GetMe{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError for malformed envelope, got %v", err)
	}
}

func TestExecute_ResultDecodeError(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": "definitely-not-a-user"})
	})

	_, err := Execute[types.User](context.Background(), api, methods.GetMe{})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}

func TestExecute_BuildErrorBeforeIO(t *testing.T) {
	requested := false
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requested = true
	})

	_, err := Execute[types.Message](context.Background(), api, methods.SendMessage{ChatID: 42})
	var reqErr *methods.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *methods.RequestError, got %v", err)
	}
	if requested {
		t.Error("malformed call must be rejected before any I/O")
	}
}

// Transport failures must never leak the bot token in their message.
func TestExecute_TokenNotLeakedInErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	api, err := New(testToken, WithBaseURL(server.URL), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	server.Close() // force a connection failure

	_, err = Execute[types.User](context.Background(), api, methods.GetMe{})
	if err == nil {
		t.Fatal("expected an error after server shutdown")
	}
	if strings.Contains(err.Error(), testToken) {
		t.Errorf("error message leaks the bot token: %v", err)
	}
}
