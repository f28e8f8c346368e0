// Package wire defines the messages carried over the multicast groups and
// their JSON encoding.
//
// Every message is UTF-8 JSON with self-describing field names, one message
// per datagram. All fields are always written; decoding is strict and
// rejects unknown, missing or null fields so that a datagram meant for one
// message kind never decodes as another.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedPayload is returned when a datagram is not valid UTF-8 or is
// not a well-formed instance of the expected message type.
var ErrMalformedPayload = errors.New("malformed payload")

// Marshal encodes v as the JSON text sent in one datagram.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return data, nil
}

// Unmarshal decodes one datagram into v. The decode is all or nothing: any
// failure wraps ErrMalformedPayload.
func Unmarshal(data []byte, v any) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: invalid UTF-8", ErrMalformedPayload)
	}
	if err := strictDecode(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after message")
	}
	return nil
}

// checkFields verifies that data is a JSON object holding every required
// member with a non-null value and every nullable member (null allowed).
func checkFields(data []byte, required []string, nullable ...string) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if members == nil {
		return errors.New("expected object, got null")
	}
	for _, name := range required {
		raw, ok := members[name]
		if !ok {
			return fmt.Errorf("missing field %q", name)
		}
		if isNull(raw) {
			return fmt.Errorf("field %q is null", name)
		}
	}
	for _, name := range nullable {
		if _, ok := members[name]; !ok {
			return fmt.Errorf("missing field %q", name)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
