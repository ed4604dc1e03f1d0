package nodeid

import (
	"path"
	"strings"
)

// The escaping rule below keeps the NodeId → path mapping injective: every
// reserved byte is replaced by %XX (uppercase hex), '%' itself is escaped, and
// an empty identifier part becomes a lone "%", which normal escaping can never
// produce. Unescaping is therefore unambiguous.

func reservedByte(c byte) bool {
	switch c {
	case '%', '/', '\\', ':', '*', '?', '"', '<', '>', '|', ';':
		return true
	}
	return c < 0x20 || c == 0x7f
}

const hexDigits = "0123456789ABCDEF"

func escapePart(part string) string {
	if part == "" {
		return "%"
	}
	var b strings.Builder
	for i := 0; i < len(part); i++ {
		c := part[i]
		if reservedByte(c) {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

func unescapePart(seg string) (string, bool) {
	if seg == "%" {
		return "", true
	}
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(seg) {
			return "", false
		}
		hi, ok1 := unhex(seg[i+1])
		lo, ok2 := unhex(seg[i+2])
		if !ok1 || !ok2 {
			return "", false
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), true
}

// FilePath maps the identifier to a relative slash-separated path.
// String identifiers in the default namespace become one directory level per
// tree separator, with ';' escaped like every other reserved byte. All other
// identifiers render to a single segment of their canonical form with the ';'
// kept literal, so the two shapes can never collide.
func (n NodeId) FilePath() string {
	if n.typ == String && n.namespace == DefaultNamespace {
		parts := strings.Split(n.text, ".")
		segs := make([]string, len(parts))
		for i, p := range parts {
			segs[i] = escapePart(p)
		}
		return strings.Join(segs, "/")
	}
	canonical := n.String()
	var b strings.Builder
	for i := 0; i < len(canonical); i++ {
		c := canonical[i]
		if c != ';' && reservedByte(c) {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FromFilePath recovers a NodeId from a relative path produced by FilePath,
// after any type or data extensions have been stripped.
func FromFilePath(rel string) (NodeId, error) {
	rel = strings.Trim(path.Clean(strings.ReplaceAll(rel, "\\", "/")), "/")
	if rel == "" || rel == "." {
		return NodeId{}, &MalformedNodeIdError{Input: rel, Reason: "empty path"}
	}
	segs := strings.Split(rel, "/")
	if len(segs) == 1 && strings.Contains(segs[0], ";") {
		canonical, ok := unescapePart(segs[0])
		if !ok {
			return NodeId{}, &MalformedNodeIdError{Input: rel, Reason: "invalid escape sequence"}
		}
		return Parse(canonical)
	}
	parts := make([]string, len(segs))
	for i, seg := range segs {
		if seg == "." || seg == ".." {
			return NodeId{}, &MalformedNodeIdError{Input: rel, Reason: "relative segment " + seg}
		}
		if strings.Contains(seg, ";") {
			return NodeId{}, &MalformedNodeIdError{Input: rel, Reason: "unescaped separator in " + seg}
		}
		part, ok := unescapePart(seg)
		if !ok {
			return NodeId{}, &MalformedNodeIdError{Input: rel, Reason: "invalid escape sequence in " + seg}
		}
		parts[i] = part
	}
	return NewString(DefaultNamespace, strings.Join(parts, ".")), nil
}
