package transform

import (
	"github.com/go-git/go-billy/v5"

	"github.com/uascm/uascm/internal/nodetype"
)

// NewQuickDynamic builds the transformer for quick-binding documents. They
// share the script document format and differ only in the "qd" path
// identifier.
func NewQuickDynamic(fs billy.Filesystem, reg *nodetype.Registry) *ScriptTransformer {
	return &ScriptTransformer{Splitting: NewSplitting("quickdynamic", fs, reg), identifier: "qd"}
}
