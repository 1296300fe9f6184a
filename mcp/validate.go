package mcp

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/xlog"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// argsValidator validates tool arguments against the tool input schema.
// Compiled schemas are cached by tool name and schema hash.
type argsValidator struct {
	cache sync.Map // key -> *jsonschema.Schema
}

func (v *argsValidator) compile(tool ToolDescriptor) (*jsonschema.Schema, error) {
	js, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	key := tool.Name + ":" + strconv.FormatUint(xxhash.Sum64(js), 16)
	if s, ok := v.cache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}
	s, err := jsonschema.CompileString(tool.Name+".json", string(js))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	v.cache.Store(key, s)
	return s, nil
}

// Validate returns ErrArgumentParse if args do not match the schema.
// Tools with schemas that fail to compile are not validated.
func (v *argsValidator) Validate(tool ToolDescriptor, args map[string]any) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	s, err := v.compile(tool)
	if err != nil {
		logger.KV(xlog.WARNING,
			"status", "invalid_schema",
			"tool", tool.Name,
			"server", tool.Server,
			"err", err.Error())
		return nil
	}

	var instance any = args
	if args == nil {
		instance = map[string]any{}
	}
	if err = s.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := firstLeafValidationError(ve)
			loc := leaf.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msg := leaf.Message
			if msg == "" {
				msg = leaf.Error()
			}
			return chatmodel.NewClassified(chatmodel.ErrArgumentParse, "invalid arguments for %q at %s: %s", tool.Name, loc, msg)
		}
		return chatmodel.Classify(err, chatmodel.ErrArgumentParse, "invalid arguments for %q", tool.Name)
	}
	return nil
}

func firstLeafValidationError(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return err
	}
	for _, c := range err.Causes {
		if leaf := firstLeafValidationError(c); leaf != nil {
			return leaf
		}
	}
	return err
}
