package transform

import (
	"fmt"
	"regexp"
	"strconv"
)

// Forced-verbatim sections must round-trip byte-for-byte through the XML
// serializer. Before serialization each section is replaced by a sentinel
// token; after serialization the tokens are substituted back with the raw
// bytes wrapped in CDATA, bypassing any escaping the serializer applies.

var verbatimPattern = regexp.MustCompile(`@@uascm-verbatim-(\d+)@@`)

type verbatimSet struct {
	sections []string
}

// Add registers a verbatim section and returns its sentinel token.
func (v *verbatimSet) Add(raw string) string {
	v.sections = append(v.sections, raw)
	return fmt.Sprintf("@@uascm-verbatim-%d@@", len(v.sections)-1)
}

// Restore replaces every sentinel in serialized with its raw section wrapped
// in CDATA.
func (v *verbatimSet) Restore(serialized []byte) []byte {
	if len(v.sections) == 0 {
		return serialized
	}
	return verbatimPattern.ReplaceAllFunc(serialized, func(match []byte) []byte {
		idx, err := strconv.Atoi(string(verbatimPattern.FindSubmatch(match)[1]))
		if err != nil || idx >= len(v.sections) {
			return match
		}
		return []byte("<![CDATA[" + v.sections[idx] + "]]>")
	})
}
