// Package methods implements the generic call-to-request contract of the
// Telegram Bot API and a set of concrete method calls.
//
// Every API method is a value implementing Call: it describes itself as a
// protocol-level Request (HTTP verb, method path and body encoding) without
// performing any I/O. Calls carrying a file attachment encode as multipart,
// everything else encodes as a JSON document with snake_case field names.
package methods

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// Call converts a typed API call into a protocol-level request descriptor.
type Call interface {
	// BuildRequest is pure: it performs no I/O and fails only when the
	// call value itself is malformed (reported as *RequestError).
	BuildRequest() (*Request, error)
}

// Request describes one Bot API request at the protocol level.
type Request struct {
	// Method is the HTTP verb, http.MethodGet or http.MethodPost.
	Method string
	// Path is the API method name, e.g. "getUpdates". Never empty.
	Path string
	// Body is nil for parameterless GET calls.
	Body Body
	// Timeout is the server-side long-poll wait embedded in the call, if
	// any. Executors must keep their own per-request deadline strictly
	// above it so a local timeout never races the server-side wait.
	Timeout time.Duration
}

// Body is a request body encoding.
type Body interface {
	// Encode renders the body and reports its content type.
	Encode() (contentType string, body io.Reader, err error)
}

// RequestError reports a call that could not be turned into a request,
// typically because a required parameter is missing or malformed.
type RequestError struct {
	Path string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("building %s request: %v", e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

/* ---------- JSON body ---------- */

// JSONBody carries a JSON-encoded parameter set.
type JSONBody struct {
	data []byte
}

// Encode implements Body.
func (b *JSONBody) Encode() (string, io.Reader, error) {
	return "application/json", bytes.NewReader(b.data), nil
}

/* ---------- multipart body ---------- */

// InputFile is a file to upload within a multipart request.
type InputFile struct {
	// Name is the filename reported to the server.
	Name string
	// ContentType is optional; the server sniffs the type when empty.
	ContentType string
	// Data supplies the file bytes. It is consumed once.
	Data io.Reader
}

// Part is one named part of a multipart body: either a plain text field
// or, when File is set, a binary file field.
type Part struct {
	Name  string
	Value string
	File  *InputFile
}

// TextPart builds a text field part. The field name matches the name the
// JSON encoding of the same parameter would use.
func TextPart(name, value string) Part {
	return Part{Name: name, Value: value}
}

// FilePart builds a binary file field part.
func FilePart(name string, file InputFile) Part {
	return Part{Name: name, File: &file}
}

// MultipartBody carries an ordered list of named parts.
type MultipartBody struct {
	parts []Part
}

// Encode implements Body.
func (b *MultipartBody) Encode() (string, io.Reader, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, p := range b.parts {
		if p.File == nil {
			if err := w.WriteField(p.Name, p.Value); err != nil {
				return "", nil, err
			}
			continue
		}
		fw, err := createFilePart(w, p)
		if err != nil {
			return "", nil, err
		}
		if _, err := io.Copy(fw, p.File.Data); err != nil {
			return "", nil, fmt.Errorf("reading part %s: %w", p.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf, nil
}

func createFilePart(w *multipart.Writer, p Part) (io.Writer, error) {
	if p.File.ContentType == "" {
		return w.CreateFormFile(p.Name, p.File.Name)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Name, p.File.Name))
	h.Set("Content-Type", p.File.ContentType)
	return w.CreatePart(h)
}

/* ---------- request builders ---------- */

// NewGetRequest builds a GET request for a call with no parameters.
func NewGetRequest(path string) (*Request, error) {
	return &Request{Method: http.MethodGet, Path: path}, nil
}

// NewJSONRequest builds a POST request with the whole parameter set
// serialized as a JSON document.
func NewJSONRequest(path string, payload any) (*Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &RequestError{Path: path, Err: err}
	}
	return &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   &JSONBody{data: data},
	}, nil
}

// NewUploadRequest builds a POST request with a multipart body. Used by
// calls whose parameter set includes a file-bearing field.
func NewUploadRequest(path string, parts []Part) (*Request, error) {
	return &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   &MultipartBody{parts: parts},
	}, nil
}
