package project

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/myrjola/turnabout/internal/errors"
	"gopkg.in/yaml.v3"
)

// ParseError reports a project file that cannot be loaded. Offset is the byte offset of the
// offending input and Line its 1-based line, both 0 when the position is unknown.
type ParseError struct {
	Offset int
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse project at offset %d", e.Offset)
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

type parser struct {
	data []byte
	root yaml.Node
}

// offset converts a 1-based line and column into a byte offset.
func (p *parser) offset(line, column int) int {
	if line < 1 {
		return 0
	}
	offset := 0
	for l := 1; l < line && offset < len(p.data); offset++ {
		if p.data[offset] == '\n' {
			l++
		}
	}
	return min(offset+max(column-1, 0), len(p.data))
}

func (p *parser) errorAt(node *yaml.Node, reason string) *ParseError {
	return p.wrapAt(node, reason, nil)
}

func (p *parser) wrapAt(node *yaml.Node, reason string, err error) *ParseError {
	if node == nil {
		return &ParseError{Offset: 0, Line: 0, Reason: reason, Err: err}
	}
	return &ParseError{Offset: p.offset(node.Line, node.Column), Line: node.Line, Reason: reason, Err: err}
}

// fromYAMLError positions a decoder error using the first line number in its message.
func (p *parser) fromYAMLError(err error) *ParseError {
	line := 0
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	reason := "malformed yaml"
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		reason = "unexpected value type"
	}
	return &ParseError{Offset: p.offset(line, 1), Line: line, Reason: reason, Err: err}
}

func (p *parser) checkHeader(mapping *yaml.Node) error {
	format := lookup(mapping, "format")
	if format == nil {
		return p.errorAt(mapping, "missing format tag")
	}
	if format.Value != Format {
		return p.errorAt(format, fmt.Sprintf("unknown format %q", format.Value))
	}
	version, err := p.version(mapping)
	if err != nil {
		return err
	}
	if version < 1 || version > Version {
		return p.errorAt(lookup(mapping, "version"), fmt.Sprintf("unsupported version %d", version))
	}
	return nil
}

func (p *parser) version(mapping *yaml.Node) (int, error) {
	node := lookup(mapping, "version")
	if node == nil {
		return 0, p.errorAt(mapping, "missing version")
	}
	version, err := strconv.Atoi(node.Value)
	if err != nil {
		return 0, p.wrapAt(node, "invalid version", err)
	}
	return version, nil
}

// lookup returns the value node of key in a mapping node.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// item returns the i-th element of the sequence stored under key.
func item(mapping *yaml.Node, key string, i int) *yaml.Node {
	seq := lookup(mapping, key)
	if seq == nil || seq.Kind != yaml.SequenceNode || i >= len(seq.Content) {
		return seq
	}
	return seq.Content[i]
}

func blockItem(mapping *yaml.Node, scriptIndex, blockIndex int) *yaml.Node {
	entry := item(mapping, "scripts", scriptIndex)
	if b := item(entry, "blocks", blockIndex); b != nil {
		return b
	}
	return entry
}
