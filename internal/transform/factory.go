package transform

import (
	"fmt"

	"github.com/go-git/go-billy/v5"

	"github.com/uascm/uascm/internal/nodetype"
)

// FromNames instantiates the configured transformer list in order. Pipelines
// hold run-scoped state, so call this once per pull or push run.
func FromNames(names []string, fs billy.Filesystem, reg *nodetype.Registry) ([]Transformer, error) {
	out := make([]Transformer, 0, len(names))
	for _, name := range names {
		switch name {
		case "display":
			out = append(out, NewDisplay(fs, reg))
		case "script":
			out = append(out, NewScript(fs, reg))
		case "quickdynamic":
			out = append(out, NewQuickDynamic(fs, reg))
		default:
			return nil, fmt.Errorf("unknown transformer %q", name)
		}
	}
	return out, nil
}
