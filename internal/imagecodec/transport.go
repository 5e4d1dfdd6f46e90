package imagecodec

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	dataURLPrefix = "data:"
	base64Marker  = ";base64,"
)

// Payload is the textual form of an image sent to a front-end:
//
//	data:<mime_type>;base64,<data>
type Payload string

// EncodeTransport renders img as a data URL.
func EncodeTransport(img *Image) Payload {
	var b strings.Builder
	b.Grow(len(dataURLPrefix) + len(img.MIMEType) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(img.Bytes)))
	b.WriteString(dataURLPrefix)
	b.WriteString(img.MIMEType)
	b.WriteString(base64Marker)
	b.WriteString(base64.StdEncoding.EncodeToString(img.Bytes))
	return Payload(b.String())
}

// DecodeTransport recovers the raw bytes from either a full data URL or a bare
// standard-base64 body.
func DecodeTransport(p Payload) ([]byte, error) {
	body := strings.TrimSpace(string(p))
	if strings.HasPrefix(body, dataURLPrefix) {
		idx := strings.Index(body, base64Marker)
		if idx < 0 {
			return nil, &EncodingError{Err: errors.New("data URL is not base64 encoded")}
		}
		body = body[idx+len(base64Marker):]
	}

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

// MIMEType returns the media type declared by a data URL payload, or "" for a
// bare base64 body.
func (p Payload) MIMEType() string {
	s := string(p)
	if !strings.HasPrefix(s, dataURLPrefix) {
		return ""
	}
	s = s[len(dataURLPrefix):]
	if idx := strings.IndexAny(s, ";,"); idx >= 0 {
		return s[:idx]
	}
	return ""
}

// Decode decodes the payload and verifies the bytes form a supported image.
func (p Payload) Decode() (*Image, error) {
	data, err := DecodeTransport(p)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
