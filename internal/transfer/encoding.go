package transfer

import (
	"encoding/base64"
)

// Encode converts bytes to the text form carried by relayed requests.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
