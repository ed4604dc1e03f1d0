package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-git/go-billy/v5"

	"github.com/uascm/uascm/internal/codec"
	"github.com/uascm/uascm/internal/mapper"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/nodetype"
	"github.com/uascm/uascm/internal/server"
)

// DisplayTransformer decomposes display documents into a container directory
// holding the markup, the inline script, and a config part listing the
// display's dependencies. Pushing reassembles the parts into one document.
type DisplayTransformer struct {
	Splitting
}

// NewDisplay builds the display transformer over the destination tree.
func NewDisplay(fs billy.Filesystem, reg *nodetype.Registry) *DisplayTransformer {
	return &DisplayTransformer{Splitting: NewSplitting("display", fs, reg)}
}

type displayConfig struct {
	Dependencies []string `json:"dependencies"`
	InlineScript bool     `json:"inlineScript"`
}

const displaySuffix = ".display.xml"

func displayParts(container, inner string) (markup, script, config string) {
	return container + "/" + inner + ".xml",
		container + "/" + inner + ".js",
		container + "/" + inner + ".json"
}

// displayContainer locates the ".display" container directory a part path
// lives in. ok is false for paths outside any container.
func displayContainer(rel string) (container, inner string, ok bool) {
	segs := strings.Split(rel, "/")
	for i := 0; i < len(segs)-1; i++ {
		if strings.HasSuffix(segs[i], ".display") {
			container = strings.Join(segs[:i+1], "/")
			inner = strings.TrimSuffix(segs[i], ".display")
			return container, inner, true
		}
	}
	return "", "", false
}

func (t *DisplayTransformer) TransformFromRemote(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	if !strings.HasSuffix(f.RelPath, displaySuffix) {
		emit(f)
		return nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(f.Content); err != nil {
		return &FormatDecodeError{Path: f.RelPath, Err: err}
	}
	root := doc.Root()
	if root == nil {
		return &FormatDecodeError{Path: f.RelPath, Err: fmt.Errorf("document has no root element")}
	}

	var inline []string
	var deps []string
	for _, el := range root.FindElements("//script") {
		if src := el.SelectAttrValue("src", ""); src != "" {
			deps = append(deps, src)
			continue
		}
		inline = append(inline, el.Text())
		if parent := el.Parent(); parent != nil {
			parent.RemoveChild(el)
		}
	}

	markupBytes, err := doc.WriteToBytes()
	if err != nil {
		return &FormatEncodeError{Path: f.RelPath, Err: err}
	}

	container := strings.TrimSuffix(f.RelPath, ".xml")
	inner := strings.TrimSuffix(path.Base(container), ".display")
	markupPath, scriptPath, configPath := displayParts(container, inner)

	cfg := displayConfig{Dependencies: deps, InlineScript: len(inline) > 0}
	cfgBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return &FormatEncodeError{Path: f.RelPath, Err: err}
	}

	emit(t.part(f, markupPath, markupBytes))
	if len(inline) > 0 {
		emit(t.part(f, scriptPath, []byte(strings.Join(inline, "\n"))))
	}
	emit(t.part(f, configPath, cfgBytes))
	return nil
}

func (t *DisplayTransformer) TransformFromFilesystem(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	container, inner, ok := displayContainer(f.RelPath)
	if !ok {
		emit(f)
		return nil
	}
	if !t.FirstSeen(container) {
		return nil
	}

	markupPath, scriptPath, configPath := displayParts(container, inner)
	markup, ok := t.partContent(f, markupPath)
	if !ok {
		return &FormatDecodeError{Path: markupPath, Err: fmt.Errorf("markup part missing")}
	}

	var cfg displayConfig
	if raw, ok := t.partContent(f, configPath); ok {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return &FormatDecodeError{Path: configPath, Err: err}
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(markup); err != nil {
		return &FormatDecodeError{Path: markupPath, Err: err}
	}
	root := doc.Root()
	if root == nil {
		return &FormatDecodeError{Path: markupPath, Err: fmt.Errorf("markup has no root element")}
	}

	var verbatim verbatimSet
	if script, ok := t.partContent(f, scriptPath); ok && len(script) > 0 {
		el := root.CreateElement("script")
		el.CreateAttr("type", "text/ecmascript")
		el.SetText(verbatim.Add(string(script)))
	}

	serialized, err := doc.WriteToBytes()
	if err != nil {
		return &FormatEncodeError{Path: markupPath, Err: err}
	}

	combined := container + ".xml"
	out := &mapper.MappedFile{
		RelPath: combined,
		Content: verbatim.Restore(serialized),
		ModTime: f.ModTime,
		Meta:    codec.InferFromPath(combined, t.Registry()),
	}
	out.References, err = dependencyRefs(combined, displaySuffix, cfg.Dependencies)
	if err != nil {
		return &FormatDecodeError{Path: configPath, Err: err}
	}
	emit(out)
	return nil
}

// partContent resolves a part either from the file currently in the pipeline
// or lazily from the destination tree.
func (t *DisplayTransformer) partContent(f *mapper.MappedFile, rel string) ([]byte, bool) {
	if f.RelPath == rel {
		return f.Content, true
	}
	return t.LoadPart(rel)
}

func (t *DisplayTransformer) part(src *mapper.MappedFile, rel string, content []byte) *mapper.MappedFile {
	return &mapper.MappedFile{
		RelPath: rel,
		Content: content,
		ModTime: src.ModTime,
		Meta:    codec.InferFromPath(rel, t.Registry()),
	}
}

// dependencyRefs builds the reference edges a reassembled document declares.
// Dependencies are canonical node id strings; edges apply only after every
// create and write in the batch succeeded.
func dependencyRefs(combined, suffix string, deps []string) ([]server.ReferenceSpec, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	source, err := nodeid.FromFilePath(strings.TrimSuffix(combined, suffix))
	if err != nil {
		return nil, err
	}
	refs := make([]server.ReferenceSpec, 0, len(deps))
	for _, dep := range deps {
		target, err := nodeid.Parse(strings.TrimPrefix(dep, "node://"))
		if err != nil {
			return nil, err
		}
		refs = append(refs, server.ReferenceSpec{
			Source:        source,
			Target:        target,
			ReferenceType: "HasDependency",
		})
	}
	return refs, nil
}
