package serializer

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/goccy/go-json"
	"unicode/utf8"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) SerializeRequest(req *common.Request) ([]byte, error) {
	if req == nil {
		return nil, common.ErrNilRequest
	}
	// json would replace invalid bytes with U+FFFD and the store would see a different key
	if !utf8.ValidString(req.Key) || (req.IsSet() && !utf8.ValidString(*req.Value)) {
		return nil, common.ErrInvalidUTF8
	}
	return json.Marshal(req)
}

func (j jsonSerializerImpl) DeserializeRequest(b []byte, req *common.Request) error {
	if err := unmarshalObject(b, req); err != nil {
		return err
	}
	return nil
}

func (j jsonSerializerImpl) SerializeResponse(resp *common.Response) ([]byte, error) {
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	var wire wireResponse
	if err := unmarshalObject(b, &wire); err != nil {
		return err
	}

	*resp = common.Response{Status: wire.Status}
	resp.Message, _ = rawText(wire.Message)
	resp.Key, _ = rawText(wire.Key)
	if value, ok := rawText(wire.Value); ok {
		resp.Value = &value
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// wireResponse is the response as sent by the store. Only the status has a
// fixed type, the other fields may hold any json value.
type wireResponse struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Key     json.RawMessage `json:"key"`
	Value   json.RawMessage `json:"value"`
}

// rawText returns the content of a json string or the json text of any other
// value. ok is false for absent fields and null.
func rawText(raw json.RawMessage) (text string, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err == nil {
			return text, true
		}
	}
	return string(raw), true
}

// unmarshalObject decodes b into v and rejects input that is not a json object
// (json.Unmarshal would accept e.g. "null" and leave v untouched)
func unmarshalObject(b []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty input")
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("expected json object, got %q", truncate(trimmed, 32))
	}
	return json.Unmarshal(trimmed, v)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
