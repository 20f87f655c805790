// Package markup finds cross-reference tokens in journal content and rewrites
// their external ids in place.
//
// A cross-reference is an element whose class attribute starts with "zlink"
// and whose text carries a token such as
//
//	<div class="zlink">@JournalEntry[zid=SmuggledGoods]{Smuggled Goods}</div>
//
// Rewriting replaces "zid=SmuggledGoods" with the resolved id and leaves every
// other byte of the content as it was.
package markup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ClassPrefix marks an element as a cross-reference span.
const ClassPrefix = "zlink"

var tokenPattern = regexp.MustCompile(`\[zid=([^\]]+)\]`)

// Ref is one token found inside a cross-reference span.
type Ref struct {
	ExternalID string
	ID         string
	Resolved   bool
	Offset     int // byte offset of the token's opening bracket
}

// Resolver maps an external id to an internal id.
type Resolver func(externalID string) (string, bool)

type edit struct {
	start, end int
	repl       string
}

// Rewrite returns content with every resolvable token rewritten, plus the
// tokens found in document order. Unresolved tokens are left untouched.
func Rewrite(content string, resolve Resolver) (string, []Ref) {
	var (
		refs  []Ref
		edits []edit
	)

	z := html.NewTokenizer(strings.NewReader(content))
	pos := 0
	spanTag := ""
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := pos
		pos += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if depth > 0 {
				if string(name) == spanTag {
					depth++
				}
				continue
			}
			if hasAttr && isLinkSpan(z) {
				spanTag = string(name)
				depth = 1
			}
		case html.EndTagToken:
			if depth == 0 {
				continue
			}
			name, _ := z.TagName()
			if string(name) == spanTag {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				continue
			}
			text := content[start:pos]
			for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
				ref := Ref{ExternalID: text[m[2]:m[3]], Offset: start + m[0]}
				if id, ok := resolve(ref.ExternalID); ok {
					ref.ID = id
					ref.Resolved = true
					// "zid=<ext>" sits between the brackets
					edits = append(edits, edit{start: start + m[0] + 1, end: start + m[3], repl: id})
				}
				refs = append(refs, ref)
			}
		}
	}

	if len(edits) == 0 {
		return content, refs
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, e := range edits {
		b.WriteString(content[last:e.start])
		b.WriteString(e.repl)
		last = e.end
	}
	b.WriteString(content[last:])
	return b.String(), refs
}

// Scan lists the tokens in content without rewriting anything.
func Scan(content string) []Ref {
	_, refs := Rewrite(content, func(string) (string, bool) { return "", false })
	return refs
}

func isLinkSpan(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" && strings.HasPrefix(string(val), ClassPrefix) {
			return true
		}
		if !more {
			return false
		}
	}
}
