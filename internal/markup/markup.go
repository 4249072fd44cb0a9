// Package markup parses and renders the story source format: a
// percent-prefixed metadata header followed by node blocks with
// [[display|destination|transition]] links.
package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solsword/firelight/internal/lex"
	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

// Error is a story-source parse failure.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return "story parse error: " + e.Msg
}

var (
	comment   = regexp.MustCompile("(?m)``.*$")
	metaKey   = regexp.MustCompile(`^%\s*([A-Za-z0-9_.-]+):`)
	nodeStart = regexp.MustCompile(`(?m)^#\s*\(([A-Za-z0-9_.-]+)\)\s*$`)
	blankPara = regexp.MustCompile(`\n[ \t]*\n[ \t\n]*`)
	softWrap  = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

func removeComments(src string) string {
	return comment.ReplaceAllString(src, "")
}

func normalizeNewlines(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\n\r", "\n")
	return strings.ReplaceAll(src, "\r", "\n")
}

type metadata struct {
	title   string
	author  string
	start   string
	modules []string
	setup   *value.Dict
}

// parseMetadata reads the percent-prefixed header. Keys repeat by
// overriding; indented percent lines without a key continue the previous
// value with a single joining space. Macro expansion never applies here.
func parseMetadata(src string) (*metadata, string, error) {
	fields := map[string]string{
		"title":  "Untitled",
		"author": "Unknown",
	}
	currentKey := ""
	lines := strings.Split(src, "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "%") {
			break
		}
		if m := metaKey.FindStringSubmatch(line); m != nil {
			currentKey = m[1]
			fields[currentKey] = strings.TrimSpace(line[len(m[0]):])
		} else {
			if currentKey == "" {
				return nil, "", &Error{Msg: "metadata continuation line before any key"}
			}
			fields[currentKey] += " " + strings.TrimSpace(line[1:])
		}
	}

	md := &metadata{
		title:  fields["title"],
		author: fields["author"],
		start:  fields["start"],
		setup:  value.NewDict(),
	}
	if mods := strings.TrimSpace(fields["modules"]); mods != "" {
		md.modules = strings.Fields(mods)
	}
	if raw, ok := fields["state"]; ok && strings.TrimSpace(raw) != "" {
		v, err := value.FromJSON([]byte(raw))
		if err != nil {
			return nil, "", &Error{Msg: fmt.Sprintf("bad state JSON: %v", err)}
		}
		d, ok := v.(*value.Dict)
		if !ok {
			return nil, "", &Error{Msg: "state must be a JSON object"}
		}
		md.setup = d
	}
	return md, strings.Join(lines[i:], "\n"), nil
}

// ParseFirstNode parses the leading node block of already-normalized
// source. It returns (nil, src, nil) when no node heading starts the
// remaining source.
func ParseFirstNode(src string) (*story.Node, string, error) {
	loc := nodeStart.FindStringSubmatchIndex(src)
	if loc == nil || strings.TrimSpace(src[:loc[0]]) != "" {
		return nil, src, nil
	}
	name := src[loc[2]:loc[3]]

	rest := src[loc[1]:]
	body := rest
	remainder := ""
	if next := nodeStart.FindStringIndex(rest); next != nil {
		body = rest[:next[0]]
		remainder = rest[next[0]:]
	}

	content, options, successors, err := extractLinks(body)
	if err != nil {
		return nil, src, err
	}
	return &story.Node{
		Name:       name,
		Content:    reflow(content),
		Options:    options,
		Successors: successors,
	}, remainder, nil
}

// extractLinks pulls [[display|destination|transition]] links out of a
// node body, replacing each with its bare display text. Destination
// defaults to the display text and the transition to nothing.
func extractLinks(body string) (string, []string, map[string]story.Successor, error) {
	var sb strings.Builder
	var options []string
	successors := make(map[string]story.Successor)

	pos := 0
	for {
		open := strings.Index(body[pos:], "[[")
		if open < 0 {
			sb.WriteString(body[pos:])
			break
		}
		open += pos
		// MatchingDelim lands on the outer closing bracket; the one
		// before it must close the inner pair.
		end := lex.MatchingDelim(body, open, '[', ']')
		if end < 1 || body[end-1] != ']' {
			return "", nil, nil, &Error{Msg: fmt.Sprintf("unterminated link at offset %d", open)}
		}
		sb.WriteString(body[pos:open])

		parts := splitLink(body[open+2 : end-1])
		display := strings.TrimSpace(parts[0])
		if display == "" {
			return "", nil, nil, &Error{Msg: fmt.Sprintf("link with empty display text at offset %d", open)}
		}
		succ := story.Successor{Dest: display}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			succ.Dest = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			succ.Transition = strings.TrimSpace(parts[2])
		}
		if _, seen := successors[display]; !seen {
			options = append(options, display)
		}
		successors[display] = succ

		sb.WriteString(display)
		pos = end + 1
	}
	return sb.String(), options, successors, nil
}

// splitLink splits link innards on '|' outside quotes and nested call or
// index groups, so transitions may contain macro calls with arguments.
func splitLink(body string) []string {
	var parts []string
	depth := 0
	inQuote := false
	last := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inQuote {
			if c == '\\' {
				i++
			} else if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, body[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, body[last:])
}

// reflow joins soft-wrapped lines with spaces and collapses paragraph
// breaks to single newlines.
func reflow(content string) string {
	content = strings.TrimSpace(content)
	paras := blankPara.Split(content, -1)
	for i, p := range paras {
		paras[i] = softWrap.ReplaceAllString(strings.TrimSpace(p), " ")
	}
	return strings.Join(paras, "\n")
}

// ParseStory parses a complete story source: comments stripped, the
// metadata header, then every node block.
func ParseStory(src string) (*story.Story, error) {
	src = removeComments(normalizeNewlines(src))
	md, rest, err := parseMetadata(src)
	if err != nil {
		return nil, err
	}

	var nodes []*story.Node
	for {
		node, remainder, err := ParseFirstNode(rest)
		if err != nil {
			return nil, err
		}
		if node == nil {
			if strings.TrimSpace(remainder) != "" {
				return nil, &Error{Msg: "content outside of any node block"}
			}
			break
		}
		nodes = append(nodes, node)
		rest = remainder
	}

	return story.New(md.title, md.author, md.start, nodes, md.modules, md.setup)
}

// RenderNode writes one node back to markup. Links are reinserted in
// appearance order, each at the first occurrence of its display text
// after the previous link, so one link's markup can never land inside
// another's. Defaulted parts are omitted.
func RenderNode(n *story.Node) string {
	var sb strings.Builder
	content := n.Content
	cursor := 0
	for _, opt := range n.Options {
		succ := n.Successors[opt]
		link := "[[" + opt
		if succ.Dest != opt {
			link += "|" + succ.Dest
		}
		if succ.Transition != "" {
			if succ.Dest == opt {
				link += "|" + succ.Dest
			}
			link += "|" + succ.Transition
		}
		link += "]]"
		idx := strings.Index(content[cursor:], opt)
		if idx < 0 {
			continue
		}
		idx += cursor
		sb.WriteString(content[cursor:idx])
		sb.WriteString(link)
		cursor = idx + len(opt)
	}
	sb.WriteString(content[cursor:])
	out := strings.ReplaceAll(sb.String(), "\n", "\n\n")
	return fmt.Sprintf("# (%s)\n\n%s\n", n.Name, out)
}

// Render writes a story back to markup source. Reparsing the result
// yields an equal story.
func Render(s *story.Story) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%% title: %s\n", s.Title)
	fmt.Fprintf(&sb, "%% author: %s\n", s.Author)
	fmt.Fprintf(&sb, "%% start: %s\n", s.Start)
	if len(s.Modules) > 0 {
		fmt.Fprintf(&sb, "%% modules: %s\n", strings.Join(s.Modules, " "))
	}
	if s.Setup.Len() > 0 {
		js, err := value.ToJSON(s.Setup)
		if err == nil {
			fmt.Fprintf(&sb, "%% state: %s\n", js)
		}
	}
	for _, name := range s.Order {
		sb.WriteString("\n")
		sb.WriteString(RenderNode(s.Nodes[name]))
	}
	return sb.String()
}
