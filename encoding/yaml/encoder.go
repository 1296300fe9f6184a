package yaml

import (
	"io"

	"github.com/effective-security/mcphub/chatmodel"
	"gopkg.in/yaml.v3"
)

// Encoder writes one YAML document per event.
type Encoder struct {
	enc *yaml.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &Encoder{enc: enc}
}

func (e *Encoder) Encode(ev chatmodel.StreamEvent) error {
	return e.enc.Encode(ev)
}

func (e *Encoder) Close() error {
	return e.enc.Close()
}
