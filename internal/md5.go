package internal

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
)

// MD5Sum computes the MD5 digest of r and returns it base64 encoded,
// as expected by the Content-MD5 header, and hex encoded.
func MD5Sum(r io.Reader) (string, string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", "", err
	}
	sum := h.Sum(nil)
	return base64.StdEncoding.EncodeToString(sum), hex.EncodeToString(sum), nil
}
