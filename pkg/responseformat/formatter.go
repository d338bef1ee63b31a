package responseformat

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/x-msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// ErrorBody is the payload written for every failed request
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WantsMsgPack reports whether the client asked for MessagePack, either with
// format=msgpack or an Accept header naming the msgpack media type. JSON is
// the default.
func WantsMsgPack(req *http.Request) bool {
	if format := req.URL.Query().Get("format"); format != "" {
		return format == "msgpack"
	}
	for _, part := range strings.Split(req.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == ContentTypeMsgPack || mediaType == "application/msgpack" {
			return true
		}
	}
	return false
}

// WriteResponse writes data with the given status in the format the client asked for
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, status int, data any) error {
	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Add("Vary", "Accept")

	if WantsMsgPack(req) {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

// WriteError writes an ErrorBody. code is a short machine-readable tag such
// as "invalid_range".
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, code string, message string) error {
	return f.WriteResponse(w, req, status, ErrorBody{Error: code, Message: message})
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeMsgPack)
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
