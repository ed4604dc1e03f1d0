package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-git/go-billy/v5"

	"github.com/uascm/uascm/internal/codec"
	"github.com/uascm/uascm/internal/mapper"
	"github.com/uascm/uascm/internal/nodetype"
)

// ScriptTransformer splits script-code documents into the bare source file an
// editor wants plus a metadata part, and reassembles them for pushing. Server
// scripts and quick dynamics share the document format and differ only in the
// path identifier they carry.
type ScriptTransformer struct {
	Splitting
	identifier string
}

// NewScript builds the transformer for server-side scripts.
func NewScript(fs billy.Filesystem, reg *nodetype.Registry) *ScriptTransformer {
	return &ScriptTransformer{Splitting: NewSplitting("script", fs, reg), identifier: "script"}
}

type scriptMetadata struct {
	Parameters []scriptParameter `json:"parameters,omitempty"`
}

type scriptParameter struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

func (t *ScriptTransformer) combinedSuffix() string { return "." + t.identifier + ".xml" }
func (t *ScriptTransformer) codeSuffix() string     { return "." + t.identifier + ".js" }
func (t *ScriptTransformer) metaSuffix() string     { return "." + t.identifier + ".json" }

func (t *ScriptTransformer) TransformFromRemote(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	if !strings.HasSuffix(f.RelPath, t.combinedSuffix()) {
		emit(f)
		return nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(f.Content); err != nil {
		return &FormatDecodeError{Path: f.RelPath, Err: err}
	}
	root := doc.Root()
	if root == nil || root.Tag != "script" {
		return &FormatDecodeError{Path: f.RelPath, Err: fmt.Errorf("not a script document")}
	}

	var code string
	if codeEl := root.SelectElement("code"); codeEl != nil {
		code = codeEl.Text()
	}
	meta := scriptMetadata{}
	if metaEl := root.SelectElement("metadata"); metaEl != nil {
		for _, p := range metaEl.SelectElements("parameter") {
			meta.Parameters = append(meta.Parameters, scriptParameter{
				Name:  p.SelectAttrValue("name", ""),
				Value: p.SelectAttrValue("value", ""),
			})
		}
	}

	base := strings.TrimSuffix(f.RelPath, t.combinedSuffix())
	emit(t.part(f, base+t.codeSuffix(), []byte(code)))
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &FormatEncodeError{Path: f.RelPath, Err: err}
	}
	emit(t.part(f, base+t.metaSuffix(), metaBytes))
	return nil
}

func (t *ScriptTransformer) TransformFromFilesystem(_ context.Context, f *mapper.MappedFile, emit Emit) error {
	var base string
	switch {
	case strings.HasSuffix(f.RelPath, t.codeSuffix()):
		base = strings.TrimSuffix(f.RelPath, t.codeSuffix())
	case strings.HasSuffix(f.RelPath, t.metaSuffix()):
		base = strings.TrimSuffix(f.RelPath, t.metaSuffix())
	default:
		emit(f)
		return nil
	}
	if !t.FirstSeen(base) {
		return nil
	}

	code, ok := t.partContent(f, base+t.codeSuffix())
	if !ok {
		return &FormatDecodeError{Path: base + t.codeSuffix(), Err: fmt.Errorf("code part missing")}
	}
	meta := scriptMetadata{}
	if raw, ok := t.partContent(f, base+t.metaSuffix()); ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return &FormatDecodeError{Path: base + t.metaSuffix(), Err: err}
		}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("script")
	if len(meta.Parameters) > 0 {
		metaEl := root.CreateElement("metadata")
		for _, p := range meta.Parameters {
			el := metaEl.CreateElement("parameter")
			el.CreateAttr("name", p.Name)
			if p.Value != "" {
				el.CreateAttr("value", p.Value)
			}
		}
	}
	var verbatim verbatimSet
	root.CreateElement("code").SetText(verbatim.Add(string(code)))

	serialized, err := doc.WriteToBytes()
	if err != nil {
		return &FormatEncodeError{Path: f.RelPath, Err: err}
	}

	combined := base + t.combinedSuffix()
	emit(&mapper.MappedFile{
		RelPath: combined,
		Content: verbatim.Restore(serialized),
		ModTime: f.ModTime,
		Meta:    codec.InferFromPath(combined, t.Registry()),
	})
	return nil
}

func (t *ScriptTransformer) partContent(f *mapper.MappedFile, rel string) ([]byte, bool) {
	if f.RelPath == rel {
		return f.Content, true
	}
	return t.LoadPart(rel)
}

func (t *ScriptTransformer) part(src *mapper.MappedFile, rel string, content []byte) *mapper.MappedFile {
	return &mapper.MappedFile{
		RelPath: rel,
		Content: content,
		ModTime: src.ModTime,
		Meta:    codec.InferFromPath(rel, t.Registry()),
	}
}
