package manifest

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/interfaces"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
	"gopkg.in/yaml.v3"
)

// imageValues is the typed part of the values schema the patch relies on
type imageValues struct {
	Repository string `yaml:"repository"`
	Tag        string `yaml:"tag"`
}

// Result is a tag rewrite together with the rewritten document
type Result struct {
	model.TagChange
	Data []byte
}

// Patcher edits values manifests on disk
type Patcher struct{}

var _ interfaces.ManifestPatcher = (*Patcher)(nil)

// NewPatcher creates a Patcher
func NewPatcher() *Patcher {
	return &Patcher{}
}

// SetImageTag patches the manifest at path with PatchFile
func (p *Patcher) SetImageTag(ctx context.Context, path, tag string) (*model.TagChange, error) {
	result, err := PatchFile(path, tag)
	if err != nil {
		return nil, err
	}
	ctxlog.From(ctx).Debug("Patched values manifest",
		"path", path,
		"previous", result.Previous,
		"current", result.Current,
		"changed", result.Changed())
	return &result.TagChange, nil
}

// PatchFile sets the image tag of the values manifest at path and writes the file back
func PatchFile(path, tag string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "values manifest not found",
				goerr.V("path", path),
				goerr.T(types.ErrTagManifestNotFound))
		}
		return nil, goerr.Wrap(err, "failed to stat values manifest", goerr.V("path", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read values manifest", goerr.V("path", path))
	}

	result, err := SetImageTag(data, tag)
	if err != nil {
		errTag := types.ErrTagManifestParse
		if goerr.HasTag(err, types.ErrTagManifestPath) {
			errTag = types.ErrTagManifestPath
		}
		return nil, goerr.Wrap(err, "failed to patch values manifest",
			goerr.V("path", path),
			goerr.T(errTag))
	}

	if err := os.WriteFile(path, result.Data, info.Mode().Perm()); err != nil {
		return nil, goerr.Wrap(err, "failed to write values manifest", goerr.V("path", path))
	}
	return result, nil
}

// SetImageTag rewrites the scalar at model.ImageTagPath. Only the bytes of that scalar change;
// its quoting style is kept. Every segment of the path must exist.
func SetImageTag(data []byte, tag string) (*Result, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, goerr.Wrap(err, "malformed values manifest", goerr.T(types.ErrTagManifestParse))
	}

	node, image, err := lookupTag(&doc)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TagChange: model.TagChange{Previous: image.Tag, Current: tag},
		Data:      data,
	}
	if node.Value == tag {
		return result, nil
	}

	if patched, ok := replaceScalar(data, node, tag); ok && readBack(patched) == tag {
		result.Data = patched
		return result, nil
	}

	// The scalar could not be located byte-exactly; re-encode the whole document.
	node.Value = tag
	node.Tag = "!!str"
	if node.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 || (node.Style == 0 && needsQuoting(tag)) {
		node.Style = yaml.DoubleQuotedStyle
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to encode values manifest", goerr.T(types.ErrTagManifestParse))
	}
	if err := enc.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to encode values manifest", goerr.T(types.ErrTagManifestParse))
	}
	result.Data = buf.Bytes()
	return result, nil
}

// lookupTag descends model.ImageTagPath and returns the tag scalar node along with the image
// block decoded through the typed schema
func lookupTag(doc *yaml.Node) (*yaml.Node, *imageValues, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil, goerr.New("values manifest is empty", goerr.T(types.ErrTagManifestParse))
	}
	cur := resolve(doc.Content[0])
	if cur.Kind != yaml.MappingNode {
		return nil, nil, goerr.New("values manifest is not a mapping", goerr.T(types.ErrTagManifestParse))
	}

	path := model.ImageTagPath
	imagePath := path[:len(path)-1]
	for i, key := range imagePath {
		next := mappingValue(cur, key)
		if next == nil || next.Kind != yaml.MappingNode {
			return nil, nil, goerr.New("image tag path is missing from values manifest",
				goerr.V("path", strings.Join(path[:i+1], ".")),
				goerr.T(types.ErrTagManifestPath))
		}
		cur = next
	}

	var image imageValues
	if err := cur.Decode(&image); err != nil {
		return nil, nil, goerr.Wrap(err, "image block does not match the values schema",
			goerr.V("path", strings.Join(imagePath, ".")),
			goerr.T(types.ErrTagManifestParse))
	}

	leaf := mappingValue(cur, path[len(path)-1])
	if leaf == nil || leaf.Kind != yaml.ScalarNode {
		return nil, nil, goerr.New("image tag path is missing from values manifest",
			goerr.V("path", model.TagPathString()),
			goerr.T(types.ErrTagManifestPath))
	}
	return leaf, &image, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}

// replaceScalar swaps the source text of node for tag, rendered in the node's style
func replaceScalar(data []byte, node *yaml.Node, tag string) ([]byte, bool) {
	start, ok := offsetOf(data, node.Line, node.Column)
	if !ok {
		return nil, false
	}

	var end int
	var text string
	switch node.Style {
	case 0:
		if !bytes.HasPrefix(data[start:], []byte(node.Value)) {
			return nil, false
		}
		end = start + len(node.Value)
		text = tag
		if needsQuoting(tag) {
			text = strconv.Quote(tag)
		}
	case yaml.DoubleQuotedStyle:
		if end, ok = quotedEnd(data, start, '"'); !ok {
			return nil, false
		}
		text = strconv.Quote(tag)
	case yaml.SingleQuotedStyle:
		if end, ok = quotedEnd(data, start, '\''); !ok {
			return nil, false
		}
		text = "'" + strings.ReplaceAll(tag, "'", "''") + "'"
	default:
		return nil, false
	}

	out := make([]byte, 0, len(data)-(end-start)+len(text))
	out = append(out, data[:start]...)
	out = append(out, text...)
	out = append(out, data[end:]...)
	return out, true
}

// offsetOf converts a 1-based line and character column into a byte offset
func offsetOf(data []byte, line, column int) (int, bool) {
	if line < 1 || column < 1 {
		return 0, false
	}
	off := 0
	for l := 1; l < line; l++ {
		i := bytes.IndexByte(data[off:], '\n')
		if i < 0 {
			return 0, false
		}
		off += i + 1
	}
	for c := 1; c < column; c++ {
		if off >= len(data) || data[off] == '\n' {
			return 0, false
		}
		_, size := utf8.DecodeRune(data[off:])
		off += size
	}
	return off, off < len(data)
}

// quotedEnd returns the offset just past the closing quote of a quoted scalar on one line
func quotedEnd(data []byte, start int, quote byte) (int, bool) {
	if data[start] != quote {
		return 0, false
	}
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return 0, false
		case '\\':
			if quote == '"' {
				i++
			}
		case quote:
			if quote == '\'' && i+1 < len(data) && data[i+1] == '\'' {
				i++
				continue
			}
			return i + 1, true
		}
	}
	return 0, false
}

// needsQuoting reports whether s, written as a plain scalar, would not read back as the same string
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	var v map[string]any
	if err := yaml.Unmarshal([]byte("v: "+s), &v); err != nil {
		return true
	}
	got, ok := v["v"].(string)
	return !ok || got != s
}

// readBack extracts the tag from patched data, or "" when it cannot
func readBack(data []byte) string {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ""
	}
	node, _, err := lookupTag(&doc)
	if err != nil {
		return ""
	}
	return node.Value
}
