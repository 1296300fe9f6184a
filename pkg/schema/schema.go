package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex
)

// Schema is the JSON schema of a Go type.
type Schema struct {
	RawSchema *jsonschema.Schema
	// Parameters represents the Function parameters definition:
	// a flat object schema with resolved references.
	Parameters *jsonschema.Schema
}

// New creates a new schema from the given type
func New(t reflect.Type) (*Schema, error) {
	cacheMu.RLock()
	s, ok := cache[t]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Newf("schema: expected struct type, got %v", t)
	}

	raw := JSONSchema(t)
	s = &Schema{
		RawSchema:  raw,
		Parameters: ToFunctionSchema(raw),
	}

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()
	return s, nil
}

func (s *Schema) String() string {
	js, _ := json.MarshalIndent(s.Parameters, "", "\t")
	return string(js)
}

// JSON returns the Parameters schema as JSON.
func (s *Schema) JSON() (json.RawMessage, error) {
	js, err := json.Marshal(s.Parameters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	return js, nil
}

// ToFunctionSchema returns the top level object of the schema,
// with references to definitions replaced by the definitions.
func ToFunctionSchema(tSchema *jsonschema.Schema) *jsonschema.Schema {
	refID := strings.TrimPrefix(tSchema.Ref, "#/$defs/")

	defs := make(map[string]*jsonschema.Schema)
	root := tSchema
	for name, def := range tSchema.Definitions {
		if name == refID {
			root = def
		} else {
			defs[name] = def
		}
	}

	res := &jsonschema.Schema{
		Type:        root.Type,
		Description: root.Description,
		Properties:  root.Properties,
		Required:    root.Required,
	}
	if res.Type == "" {
		res.Type = "object"
	}
	if res.Properties != nil {
		resolveRefs(res.Properties, defs)
	}
	return res
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) {
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Ref != "" {
			pair.Value = lookupDef(pair.Value, defs)
		}
		child := pair.Value
		if child.Properties != nil {
			resolveRefs(child.Properties, defs)
		}
		if child.Items != nil && child.Items.Ref != "" {
			child.Items = lookupDef(child.Items, defs)
		}
	}
}

func lookupDef(s *jsonschema.Schema, defs map[string]*jsonschema.Schema) *jsonschema.Schema {
	name := strings.TrimPrefix(s.Ref, "#/$defs/")
	if def, ok := defs[name]; ok {
		return def
	}
	// unresolved references degrade to an open object
	return &jsonschema.Schema{
		Type:        "object",
		Description: s.Description,
	}
}

// JSONSchema return the json schema of the type
func JSONSchema(t reflect.Type) *jsonschema.Schema {
	jsonschema.Version = "http://json-schema.org/draft-07/schema#"

	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = true
	r.AllowAdditionalProperties = true

	// Struct names may collide across packages,
	// the hash of the full name keeps the definitions apart.
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}

	return r.ReflectFromType(t)
}

// FromAny creates a json schema from any JSON compatible value,
// for example a schema received as map[string]any.
func FromAny(t any) (*jsonschema.Schema, error) {
	js, err := json.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	schema := &jsonschema.Schema{}
	if err = json.Unmarshal(js, schema); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal schema")
	}
	return schema, nil
}
