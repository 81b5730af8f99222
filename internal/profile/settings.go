package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Setting is one named option.
type Setting struct {
	Name  string
	Value Value
}

// Settings is an insertion-ordered option mapping. Names are unique.
type Settings []Setting

// Get returns the value stored under name.
func (s Settings) Get(name string) (Value, bool) {
	for _, setting := range s {
		if setting.Name == name {
			return setting.Value, true
		}
	}
	return Value{}, false
}

// Set replaces name in place or appends it, keeping insertion order.
func (s Settings) Set(name string, value Value) Settings {
	for i := range s {
		if s[i].Name == name {
			s[i].Value = value
			return s
		}
	}
	return append(s, Setting{Name: name, Value: value})
}

// Delete removes name if present.
func (s Settings) Delete(name string) Settings {
	out := s[:0]
	for _, setting := range s {
		if setting.Name != name {
			out = append(out, setting)
		}
	}
	return out
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for i, setting := range s {
		out[i] = Setting{Name: setting.Name, Value: setting.Value}
		if items, ok := setting.Value.ListValue(); ok {
			out[i].Value = List(items...)
		}
	}
	return out
}

// Merge overlays other on top of s. Existing names keep their position.
func (s Settings) Merge(other Settings) Settings {
	out := s.Clone()
	for _, setting := range other {
		out = out.Set(setting.Name, setting.Value)
	}
	return out
}

// MarshalJSON writes settings as a JSON object in insertion order.
func (s Settings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, setting := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(setting.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(setting.Value.Raw())
		if err != nil {
			return nil, fmt.Errorf("marshal setting %s: %w", setting.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving key order.
func (s *Settings) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("settings must be a JSON object")
	}
	var out Settings
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("settings: unexpected key token %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("settings %s: %w", name, err)
		}
		if num, ok := raw.(json.Number); ok {
			f, err := strconv.ParseFloat(num.String(), 64)
			if err != nil {
				return fmt.Errorf("settings %s: %w", name, err)
			}
			raw = f
		}
		value, err := FromAny(raw)
		if err != nil {
			return fmt.Errorf("settings %s: %w", name, err)
		}
		out = out.Set(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// UnmarshalYAML reads a YAML mapping, preserving key order.
func (s *Settings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("settings must be a mapping (line %d)", node.Line)
	}
	var out Settings
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		var raw any
		switch valueNode.Kind {
		case yaml.SequenceNode:
			var items []string
			if err := valueNode.Decode(&items); err != nil {
				return fmt.Errorf("settings %s: %w", keyNode.Value, err)
			}
			raw = items
		case yaml.ScalarNode:
			if err := valueNode.Decode(&raw); err != nil {
				return fmt.Errorf("settings %s: %w", keyNode.Value, err)
			}
		default:
			return fmt.Errorf("settings %s: nested values are not supported (line %d)", keyNode.Value, valueNode.Line)
		}
		value, err := FromAny(raw)
		if err != nil {
			return fmt.Errorf("settings %s: %w", keyNode.Value, err)
		}
		out = out.Set(keyNode.Value, value)
	}
	*s = out
	return nil
}

// MarshalYAML writes settings as an ordered YAML mapping.
func (s Settings) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, setting := range s {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: setting.Name}
		value := &yaml.Node{}
		if err := value.Encode(setting.Value.Raw()); err != nil {
			return nil, fmt.Errorf("encode setting %s: %w", setting.Name, err)
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}
