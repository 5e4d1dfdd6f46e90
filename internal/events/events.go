// Package events defines the typed messages exchanged between pinned-window
// front-ends and the delivery handshake.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
)

// Type tags the JSON envelope.
type Type string

const (
	TypeReady          Type = "ready"
	TypeImageAvailable Type = "image-available"
)

var ErrInvalidMessage = errors.New("invalid message")

// Message is one of Ready or ImageAvailable.
type Message interface {
	Type() Type
	Target() string
	isMessage()
}

// Ready is emitted by a front-end once it can accept an image.
type Ready struct {
	Identity string
}

func (Ready) Type() Type       { return TypeReady }
func (m Ready) Target() string { return m.Identity }
func (Ready) isMessage()       {}

// ImageAvailable carries the image for exactly one window. Path is the source
// file when the image came from disk.
type ImageAvailable struct {
	Identity string
	Payload  imagecodec.Payload
	Path     string
}

func (ImageAvailable) Type() Type       { return TypeImageAvailable }
func (m ImageAvailable) Target() string { return m.Identity }
func (ImageAvailable) isMessage()       {}

type envelope struct {
	Type     Type               `json:"type"`
	Identity string             `json:"identity"`
	Payload  imagecodec.Payload `json:"payload,omitempty"`
	Path     string             `json:"path,omitempty"`
}

// Marshal encodes m in its JSON envelope.
func Marshal(m Message) ([]byte, error) {
	var env envelope
	switch v := m.(type) {
	case Ready:
		env = envelope{Type: TypeReady, Identity: v.Identity}
	case ImageAvailable:
		env = envelope{Type: TypeImageAvailable, Identity: v.Identity, Payload: v.Payload, Path: v.Path}
	default:
		return nil, fmt.Errorf("%w: unsupported message %T", ErrInvalidMessage, m)
	}
	return json.Marshal(env)
}

// Parse validates a JSON envelope and returns the typed message.
func Parse(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Identity == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidMessage)
	}

	switch env.Type {
	case TypeReady:
		return Ready{Identity: env.Identity}, nil
	case TypeImageAvailable:
		if env.Payload == "" {
			return nil, fmt.Errorf("%w: image-available without payload", ErrInvalidMessage)
		}
		return ImageAvailable{Identity: env.Identity, Payload: env.Payload, Path: env.Path}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, env.Type)
	}
}
