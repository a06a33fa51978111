package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Format identifies a JWS serialization.
type Format string

// FormatCompact is the header.payload.signature serialization. It is the only
// format a Deserializer accepts.
const FormatCompact Format = "compact"

// Deserializer turns compact token strings into Tokens. It checks structure
// only; validity is the job of ClaimsValidator and SignatureValidator.
type Deserializer struct {
	format Format
}

// NewDeserializer returns a Deserializer for the compact serialization.
func NewDeserializer() *Deserializer {
	return &Deserializer{format: FormatCompact}
}

var defaultDeserializer = NewDeserializer()

// Parse deserializes s with the default Deserializer.
func Parse(s string) (*Token, error) {
	return defaultDeserializer.Parse(s)
}

// Parse splits s into its three segments, decodes them and returns the
// resulting Token. Any structural defect yields a *MalformedTokenError.
func (d *Deserializer) Parse(s string) (*Token, error) {
	if d.format != FormatCompact {
		return nil, &MalformedTokenError{Reason: fmt.Sprintf("unsupported serialization %q", d.format)}
	}
	if s == "" {
		return nil, &MalformedTokenError{Reason: "empty token"}
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return nil, &MalformedTokenError{Reason: fmt.Sprintf("expected 3 segments, got %d", len(parts))}
	}
	if parts[0] == "" {
		return nil, &MalformedTokenError{Reason: "empty header segment"}
	}
	if parts[1] == "" {
		return nil, &MalformedTokenError{Reason: "detached payloads are not supported"}
	}

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, &MalformedTokenError{Reason: "header segment is not base64url", Err: err}
	}
	protected, err := decodeHeader(rawHeader)
	if err != nil {
		return nil, &MalformedTokenError{Reason: "header is not a JSON object", Err: err}
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, &MalformedTokenError{Reason: "payload segment is not base64url", Err: err}
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, &MalformedTokenError{Reason: "signature segment is not base64url", Err: err}
	}

	return &Token{
		raw:     s,
		payload: payload,
		signatures: []Signature{{
			Protected:   protected,
			Unprotected: map[string]any{},
			Value:       sig,
		}},
	}, nil
}

func decodeHeader(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var hdr map[string]any
	if err := dec.Decode(&hdr); err != nil {
		return nil, err
	}
	if hdr == nil {
		return nil, fmt.Errorf("header is null")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after header object")
	}
	return hdr, nil
}
