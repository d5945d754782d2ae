// Package parser decodes host configuration files.
package parser

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

// YAMLParser implements ConfigParser for YAML. Unknown keys are rejected.
type YAMLParser struct{}

// NewYAMLParser creates a new YAMLParser.
func NewYAMLParser() ports.ConfigParser {
	return &YAMLParser{}
}

// Parse unmarshals YAML bytes into out. An empty document leaves out
// unchanged.
func (p *YAMLParser) Parse(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
