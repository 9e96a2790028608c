// Package codec converts memory values to and from their wire form.
// Values are opaque strings; on the wire they are standard, padded base64.
package codec

import (
	"encoding/base64"

	"github.com/hyp3rd/ewrap"
)

// Encode returns the wire form of v.
func Encode(v string) string {
	return base64.StdEncoding.EncodeToString([]byte(v))
}

// Decode returns the value carried by the wire form s.
func Decode(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", ewrap.Wrap(err, "failed to decode base64 value")
	}

	return string(raw), nil
}

// EncodeBytes returns the wire form of raw bytes, used by typed stores.
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBytes is the byte-slice counterpart of Decode.
func DecodeBytes(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to decode base64 value")
	}

	return raw, nil
}
