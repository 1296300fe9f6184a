package toml

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/effective-security/mcphub/chatmodel"
)

// Encoder writes each event as an element of the `event` array of tables.
type Encoder struct {
	w     io.Writer
	count int
}

type document struct {
	Event []chatmodel.StreamEvent `toml:"event"`
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(ev chatmodel.StreamEvent) error {
	if e.count > 0 {
		if _, err := io.WriteString(e.w, "\n"); err != nil {
			return err
		}
	}
	e.count++

	enc := toml.NewEncoder(e.w)
	enc.Indent = ""
	return enc.Encode(document{Event: []chatmodel.StreamEvent{ev}})
}

func (e *Encoder) Close() error {
	return nil
}
