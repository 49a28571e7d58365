package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gputweak/gputweak/internal/errors"
)

// document mirrors Config with durations as strings, so the file reads
// "2s" instead of nanoseconds.
type document struct {
	Version int    `yaml:"version"`
	Host    string `yaml:"host,omitempty"`
	Tool    struct {
		Path    string `yaml:"path"`
		Display string `yaml:"display,omitempty"`
		Timeout string `yaml:"timeout"`
	} `yaml:"tool"`
	Poll struct {
		Interval      string `yaml:"interval"`
		DeviceTimeout string `yaml:"device_timeout"`
	} `yaml:"poll"`
	History struct {
		Window  string   `yaml:"window"`
		Metrics []string `yaml:"metrics,flow"`
	} `yaml:"history"`
	Monitor struct {
		Refresh    string                `yaml:"refresh"`
		Thresholds TemperatureThresholds `yaml:"thresholds"`
	} `yaml:"monitor"`
	Output OutputConfig `yaml:"output"`
}

func toDocument(cfg *Config) document {
	var d document
	d.Version = cfg.Version
	d.Host = cfg.Host
	d.Tool.Path = cfg.Tool.Path
	d.Tool.Display = cfg.Tool.Display
	d.Tool.Timeout = cfg.Tool.Timeout.String()
	d.Poll.Interval = cfg.Poll.Interval.String()
	d.Poll.DeviceTimeout = cfg.Poll.DeviceTimeout.String()
	d.History.Window = cfg.History.Window.String()
	d.History.Metrics = cfg.History.Metrics
	d.Monitor.Refresh = cfg.Monitor.Refresh.String()
	d.Monitor.Thresholds = cfg.Monitor.Thresholds
	d.Output = cfg.Output
	return d
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toDocument(cfg)); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

const fileHeader = "# gputweak configuration\n# Environment variables override any key, e.g. GPUTWEAK_TOOL_DISPLAY=:0\n"

// Write saves cfg to path, creating parent directories. An existing file
// is only replaced when overwrite is set.
func Write(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				"Config file already exists: "+path,
				"Use --force to overwrite it")
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render config", "")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create config directory", "Check permissions on "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write config file", "Check permissions on "+path)
	}
	return nil
}

// SetValue updates one dotted key (e.g. "tool.display") in the file at
// configPath. Comments and key order are preserved; missing keys are
// created. The result is loaded and validated before it is written.
func SetValue(configPath, key, value string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if root.Kind == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid YAML document structure")
	}

	node := root.Content[0]
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	parts := strings.Split(key, ".")
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("invalid key '%s'", key)
		}
		last := i == len(parts)-1
		child := findMapValue(node, part)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if last {
				child = &yaml.Node{Kind: yaml.ScalarNode}
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, child)
		}
		if last {
			setScalar(child, value)
			break
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("'%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		node = child
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	// Validate through the normal loader before replacing the file.
	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cfg, err := Load(tmp)
	if err == nil {
		err = Validate(cfg)
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, configPath)
}

// setScalar turns n into a scalar holding value. Comma-separated values
// written to an existing sequence become a flow list.
func setScalar(n *yaml.Node, value string) {
	if n.Kind == yaml.SequenceNode {
		n.Content = nil
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: item})
			}
		}
		return
	}
	n.Kind = yaml.ScalarNode
	n.Tag = ""
	n.Style = 0
	if strings.ContainsAny(value, ":#") {
		n.Style = yaml.DoubleQuotedStyle
	}
	n.Content = nil
	n.Value = value
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}
