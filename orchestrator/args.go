package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/effective-security/mcphub/chatmodel"
)

// ParseArguments parses the serialized arguments of a tool call.
// The arguments must be a JSON object, empty text is an empty object.
func ParseArguments(tool, raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, chatmodel.Classify(err, chatmodel.ErrArgumentParse, "invalid arguments of tool %q", tool)
	}
	args, ok := v.(map[string]any)
	if !ok {
		return nil, chatmodel.NewClassified(chatmodel.ErrArgumentParse, "arguments of tool %q must be a JSON object", tool)
	}
	return args, nil
}
