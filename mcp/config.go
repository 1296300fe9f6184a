package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	yamlv3 "gopkg.in/yaml.v3"
	"sigs.k8s.io/yaml"
)

// serverEntries are the raw `mcpServers` entries in declaration order
type serverEntries = orderedmap.OrderedMap[string, json.RawMessage]

type serversFile struct {
	MCPServers *serverEntries `json:"mcpServers"`
}

// LoadServers loads the tool server configuration from a JSON or YAML file.
// YAML is expected for .yaml and .yml extensions.
func LoadServers(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to read config")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err := parseYAMLEntries(data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML config: %s", path)
		}
		return parseEntries(entries), nil
	}
	return ParseServers(data)
}

// ParseServers parses the JSON document with the `mcpServers` object.
// Entries that are not objects, have neither `command` nor `url`,
// or are otherwise invalid are skipped with a warning.
// The result is in declaration order, which is the order
// the servers are connected and their tools are registered.
func ParseServers(data []byte) ([]ServerConfig, error) {
	var f serversFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return parseEntries(f.MCPServers), nil
}

// parseYAMLEntries walks the YAML nodes,
// as the YAML to JSON conversion does not keep the key order.
func parseYAMLEntries(data []byte) (*serverEntries, error) {
	var doc yamlv3.Node
	if err := yamlv3.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithStack(err)
	}
	entries := orderedmap.New[string, json.RawMessage]()
	if len(doc.Content) == 0 {
		return entries, nil
	}
	root := doc.Content[0]
	if root.Kind != yamlv3.MappingNode {
		return nil, errors.New("document must be an object")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "mcpServers" {
			continue
		}
		list := root.Content[i+1]
		if list.Kind != yamlv3.MappingNode {
			return nil, errors.New("mcpServers must be an object")
		}
		for j := 0; j+1 < len(list.Content); j += 2 {
			raw, err := yamlv3.Marshal(list.Content[j+1])
			if err != nil {
				return nil, errors.WithStack(err)
			}
			js, err := yaml.YAMLToJSON(raw)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			entries.Set(list.Content[j].Value, js)
		}
	}
	return entries, nil
}

func parseEntries(entries *serverEntries) []ServerConfig {
	if entries == nil {
		return nil
	}
	validate := validator.New()
	var res []ServerConfig
	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		cfg, err := parseServer(name, pair.Value)
		if err == nil {
			err = validate.Struct(cfg)
		}
		if err != nil {
			logger.KV(xlog.WARNING,
				"status", "skip_server",
				"server", name,
				"err", err.Error())
			continue
		}
		res = append(res, *cfg)
	}
	return res
}

func parseServer(name string, raw json.RawMessage) (*ServerConfig, error) {
	cfg := new(ServerConfig)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "entry must be an object")
	}
	cfg.Name = name
	cfg.Command = os.ExpandEnv(cfg.Command)
	cfg.URL = os.ExpandEnv(cfg.URL)
	for i, a := range cfg.Args {
		cfg.Args[i] = os.ExpandEnv(a)
	}
	for k, v := range cfg.Env {
		cfg.Env[k] = os.ExpandEnv(v)
	}
	for k, v := range cfg.Headers {
		cfg.Headers[k] = os.ExpandEnv(v)
	}

	switch {
	case cfg.Command != "":
		if cfg.Transport != "" && cfg.Transport != TransportStdio {
			return nil, errors.Newf("transport %q requires url", cfg.Transport)
		}
		cfg.Transport = TransportStdio
	case cfg.URL != "":
		switch cfg.Transport {
		case "":
			cfg.Transport = TransportSSE
		case TransportStdio:
			return nil, errors.New("stdio transport requires command")
		}
	default:
		return nil, errors.New("either command or url is required")
	}
	return cfg, nil
}
