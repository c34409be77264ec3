package transport

import (
	"bytes"
	"io"
)

func newJSONReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func discard(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
