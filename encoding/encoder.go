// Package encoding provides the encoders of the conversation event stream.
package encoding

import (
	"io"
	"iter"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	jsonenc "github.com/effective-security/mcphub/encoding/json"
	textenc "github.com/effective-security/mcphub/encoding/text"
	tomlenc "github.com/effective-security/mcphub/encoding/toml"
	yamlenc "github.com/effective-security/mcphub/encoding/yaml"
)

// EventEncoder writes stream events to the output.
type EventEncoder interface {
	Encode(chatmodel.StreamEvent) error
	// Close flushes the pending output
	Close() error
}

type Format = string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatDefault is the default format of the event stream.
var FormatDefault = FormatText

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}
}

// NewEventEncoder returns the encoder for the format
func NewEventEncoder(format Format, w io.Writer) (EventEncoder, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return textenc.NewEncoder(w), nil
	case FormatJSON:
		return jsonenc.NewEncoder(w), nil
	case FormatYAML:
		return yamlenc.NewEncoder(w), nil
	case FormatTOML:
		return tomlenc.NewEncoder(w), nil
	default:
		return nil, errors.Newf("unsupported format: %q", format)
	}
}

// Copy encodes the events until the sequence ends or the encoder fails.
func Copy(enc EventEncoder, events iter.Seq[chatmodel.StreamEvent]) error {
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return enc.Close()
}

var (
	_ EventEncoder = (*textenc.Encoder)(nil)
	_ EventEncoder = (*jsonenc.Encoder)(nil)
	_ EventEncoder = (*tomlenc.Encoder)(nil)
	_ EventEncoder = (*yamlenc.Encoder)(nil)
)
