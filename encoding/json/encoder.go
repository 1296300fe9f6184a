package json

import (
	"encoding/json"
	"io"

	"github.com/effective-security/mcphub/chatmodel"
)

// Encoder writes one JSON object per line.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Encoder{enc: enc}
}

func (e *Encoder) Encode(ev chatmodel.StreamEvent) error {
	return e.enc.Encode(ev)
}

func (e *Encoder) Close() error {
	return nil
}
