package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyDocument   = errors.New("configuration is empty")
	ErrInvalidDocument = errors.New("configuration format invalid")
	ErrNoChannels      = errors.New("at least one channel must be defined")
)

// Document is the channel configuration file.
type Document struct {
	Channels     []ChannelEntry `yaml:"channels"`
	Secret       string         `yaml:"secret"`
	MessageQueue string         `yaml:"message_queue"`
}

// ChannelEntry is one item of the channels list: either a bare name or a {name, slug} mapping.
type ChannelEntry struct {
	Name string
	Slug string
}

func (e *ChannelEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if err := node.Decode(&e.Name); err != nil {
			return err
		}
	case yaml.MappingNode:
		var raw struct {
			Name string `yaml:"name"`
			Slug string `yaml:"slug"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Name, e.Slug = raw.Name, raw.Slug
	default:
		return fmt.Errorf("line %d: channel must be a name or a mapping with name and slug", node.Line)
	}

	if e.Name == "" {
		return fmt.Errorf("line %d: channel name must not be empty", node.Line)
	}
	return nil
}

// LoadDocument reads and parses the channel configuration at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument parses a channel configuration. The top level must be a
// mapping with a non-empty channels list.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if len(root.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	top := root.Content[0]
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return nil, ErrEmptyDocument
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDocument)
	}
	if channels := mappingValue(top, "channels"); channels == nil || channels.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: channels must be a list", ErrInvalidDocument)
	}

	var doc Document
	if err := top.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if len(doc.Channels) == 0 {
		return nil, ErrNoChannels
	}
	return &doc, nil
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
