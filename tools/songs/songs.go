// Package songs provides the top_song tool: the most popular song of a genre.
package songs

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/pkg/schema"
	"github.com/effective-security/mcphub/tools"
)

// ToolName is the name of the tool advertised to the model.
const ToolName = "top_song"

// Request is the tool input.
type Request struct {
	Genre string `json:"genre" yaml:"genre" jsonschema:"title=genre,description=The genre of music: pop; rock; jazz; classical; hiphop; kpop."`
}

// Response is the tool output.
type Response struct {
	Genre string `json:"genre" yaml:"genre"`
	Song  string `json:"song,omitempty" yaml:"song,omitempty"`
}

func (r *Response) String() string {
	if r.Song == "" {
		return fmt.Sprintf("No top song found for genre: %s", r.Genre)
	}
	return r.Song
}

var topSongs = map[string]string{
	"pop":       "Blinding Lights - The Weeknd",
	"rock":      "Bohemian Rhapsody - Queen",
	"jazz":      "So What - Miles Davis",
	"classical": "Canon in D - Pachelbel",
	"hiphop":    "SICKO MODE - Travis Scott",
	"kpop":      "Dynamite - BTS",
}

// Tool returns the top song of a genre.
type Tool struct{}

var _ tools.Tool[Request, Response] = (*Tool)(nil)

// New returns the tool.
func New() *Tool {
	return &Tool{}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Get the most popular song for a given genre. Supported genres: pop, rock, jazz, classical, hiphop, kpop."
}

func (t *Tool) Parameters() any {
	sc, _ := schema.New(reflect.TypeOf(Request{}))
	return sc.Parameters
}

// Run looks up the genre. An unsupported genre is not an error:
// the response tells the model that nothing was found.
func (t *Tool) Run(_ context.Context, req *Request) (*Response, error) {
	genre := strings.ToLower(strings.TrimSpace(req.Genre))
	if genre == "" {
		return nil, errors.New("invalid request: empty genre")
	}
	return &Response{
		Genre: req.Genre,
		Song:  topSongs[genre],
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.Call[Request, Response](ctx, t, input)
}
