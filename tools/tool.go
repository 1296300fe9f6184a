package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/xlog"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "tools")

// ITool is a tool for the llm agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() any

	Call(context.Context, string) (string, error)
}

// Tool is an ITool with typed input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// Call decodes the JSON input, runs the tool and encodes the output.
// Outputs implementing fmt.Stringer are returned as text, others as JSON.
func Call[I any, O any](ctx context.Context, t Tool[I, O], input string) (string, error) {
	var req I
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal([]byte(input), &req); err != nil {
			return "", chatmodel.Classify(err, chatmodel.ErrArgumentParse, "failed to unmarshal input")
		}
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	if s, ok := any(out).(fmt.Stringer); ok {
		return s.String(), nil
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}

// Register adds the tools to the server.
// A failed tool call is reported to the client as an error result.
func Register(server *sdkmcp.Server, list ...ITool) error {
	for _, t := range list {
		schema, err := inputSchema(t.Parameters())
		if err != nil {
			return errors.WithMessagef(err, "tool %q", t.Name())
		}
		server.AddTool(&sdkmcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		}, handler(t))
		logger.KV(xlog.DEBUG, "status", "registered", "tool", t.Name())
	}
	return nil
}

func handler(t ITool) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var input string
		if req.Params != nil {
			input = string(req.Params.Arguments)
		}
		out, err := t.Call(ctx, input)
		if err != nil {
			logger.ContextKV(ctx, xlog.DEBUG, "status", "tool_failed", "tool", t.Name(), "err", err.Error())
			return &sdkmcp.CallToolResult{
				IsError: true,
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: out}},
		}, nil
	}
}

func inputSchema(params any) (map[string]any, error) {
	if params == nil {
		return map[string]any{"type": "object"}, nil
	}
	if m, ok := params.(map[string]any); ok {
		return m, nil
	}
	js, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal parameters")
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "parameters must be a JSON object")
	}
	if m["type"] == nil {
		m["type"] = "object"
	}
	return m, nil
}
