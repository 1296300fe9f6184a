package text

import (
	"fmt"
	"io"

	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llmutils"
)

// Encoder prints the events for a human reader:
// the answer text as is, and the tool activity on separate lines.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(ev chatmodel.StreamEvent) error {
	var err error
	switch ev.Type {
	case chatmodel.EventText:
		_, err = io.WriteString(e.w, llmutils.EnsureEndsWithNewline(ev.Content))
	case chatmodel.EventToolCall:
		_, err = fmt.Fprintf(e.w, "> %s(%s)\n", ev.Name, ev.RawArgs)
	case chatmodel.EventToolResult:
		_, err = fmt.Fprintf(e.w, "< %s: %s\n", ev.Name, ev.Result)
	case chatmodel.EventError:
		_, err = fmt.Fprintf(e.w, "ERROR: %s\n", ev.Message)
	}
	return err
}

func (e *Encoder) Close() error {
	return nil
}
