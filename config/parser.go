package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// lineIterator yields raw lines one at a time while tracking the current
// line number for error reporting. Callers strip comments and whitespace.
type lineIterator struct {
	lines []string
	pos   int
}

func newLineIterator(content string) *lineIterator {
	return &lineIterator{lines: strings.Split(content, "\n")}
}

// next returns the next line, or false when the input is exhausted.
func (it *lineIterator) next() (string, bool) {
	if it.pos >= len(it.lines) {
		return "", false
	}
	line := it.lines[it.pos]
	it.pos++
	return line, true
}

// currentLine is the number of the line most recently returned by next.
func (it *lineIterator) currentLine() int {
	return it.pos
}

// Parse parses an entire configuration string. Content before the literal
// `server {` line is ignored; the returned root is always a Section named
// "server".
func Parse(conf, filename string) (*Node, error) {
	lines := newLineIterator(conf)

	for {
		line, ok := lines.next()
		if !ok {
			return nil, newError("Could not find `server` section", filename, 0)
		}
		if cleanUp(line) == "server {" {
			break
		}
	}

	visited := map[string]bool{cleanIncludePath(filename): true}
	return parseSection("server", lines, filename, visited)
}

// parseSection recursively parses a section of the configuration. visited
// holds the include files already being parsed, to refuse include cycles.
func parseSection(name string, lines *lineIterator, filename string, visited map[string]bool) (*Node, error) {
	section := &Node{Kind: NodeSection, Key: name}

	for {
		raw, ok := lines.next()
		if !ok {
			return nil, newError("Unexpected end of file, expected `}`", filename, lines.currentLine())
		}
		line := cleanUp(raw)

		switch {
		case strings.Contains(line, "{") && strings.HasSuffix(line, "}"):
			// A section opened and closed on one line, `cache { limit 4K }`,
			// holding at most one key/value pair.
			child, err := parseInlineSection(line, filename, lines.currentLine())
			if err != nil {
				return nil, err
			}
			section.Children = append(section.Children, child)

		case strings.HasSuffix(line, "{"):
			sectionName := strings.TrimSpace(strings.TrimSuffix(line, "{"))
			if strings.HasPrefix(sectionName, "route ") {
				// A route section's pattern is everything after the first
				// space, up to the brace.
				pattern := strings.TrimSpace(strings.SplitN(sectionName, " ", 2)[1])
				child, err := parseSection(pattern, lines, filename, visited)
				if err != nil {
					return nil, err
				}
				child.Kind = NodeRoute
				section.Children = append(section.Children, child)
			} else {
				child, err := parseSection(sectionName, lines, filename, visited)
				if err != nil {
					return nil, err
				}
				section.Children = append(section.Children, child)
			}

		case line == "}":
			return section, nil

		case line != "":
			key, value, found := strings.Cut(line, " ")
			if !found {
				return nil, newError("Syntax error", filename, lines.currentLine())
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)

			if key == "include" {
				if !isQuoted(value) {
					return nil, newError(
						"Invalid include value, it takes a file path in quotation marks as its value",
						filename, lines.currentLine())
				}
				included, err := include(value[1:len(value)-1], filename, lines.currentLine(), visited)
				if err != nil {
					return nil, err
				}
				section.Children = append(section.Children, included...)
				continue
			}

			node, err := parseValue(key, value)
			if err != nil {
				return nil, newError("Could not parse value", filename, lines.currentLine())
			}
			section.Children = append(section.Children, node)
		}
	}
}

// parseInlineSection parses a section opened and closed on a single line.
func parseInlineSection(line, filename string, lineNumber int) (*Node, error) {
	open := strings.IndexByte(line, '{')
	header := strings.TrimSpace(line[:open])
	body := strings.TrimSpace(strings.TrimSuffix(line[open+1:], "}"))

	child := &Node{Kind: NodeSection, Key: header}
	if strings.HasPrefix(header, "route ") {
		child.Kind = NodeRoute
		child.Key = strings.TrimSpace(strings.SplitN(header, " ", 2)[1])
	}

	if body != "" {
		key, value, found := strings.Cut(body, " ")
		if !found {
			return nil, newError("Syntax error", filename, lineNumber)
		}
		node, err := parseValue(strings.TrimSpace(key), strings.TrimSpace(value))
		if err != nil {
			return nil, newError("Could not parse value", filename, lineNumber)
		}
		child.Children = append(child.Children, node)
	}

	return child, nil
}

// parseValue classifies a raw value. Rules are tried in order: quoted string,
// integer, boolean, size suffix.
func parseValue(key, value string) (*Node, error) {
	if isQuoted(value) {
		return &Node{Kind: NodeString, Key: key, Value: value[1 : len(value)-1]}, nil
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return &Node{Kind: NodeNumber, Key: key, Value: value}, nil
	}
	if value == "true" || value == "false" {
		return &Node{Kind: NodeBoolean, Key: key, Value: value}, nil
	}
	if size, err := parseSize(value); err == nil {
		return &Node{Kind: NodeNumber, Key: key, Value: strconv.FormatInt(size, 10)}, nil
	}
	return nil, errUnparseable
}

var errUnparseable = &Error{Message: "Could not parse value"}

// include lexically splices the parsed children of the included file into the
// current section.
func include(path, containingFile string, line int, visited map[string]bool) ([]*Node, error) {
	clean := cleanIncludePath(path)
	if visited[clean] {
		return nil, newError("Include cycle detected", containingFile, line)
	}
	visited[clean] = true

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("Could not open included file", containingFile, line)
	}

	// The included file has no braces of its own; append a closing brace so
	// it parses as a section body.
	lines := newLineIterator(string(content) + "\n}")
	parsed, err := parseSection("included", lines, path, visited)
	if err != nil {
		return nil, err
	}
	return parsed.Children, nil
}

// cleanUp removes comments and surrounding whitespace from a line.
func cleanUp(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

func isQuoted(value string) bool {
	return len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)
}

func cleanIncludePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// parseSize parses a size string into its corresponding number of bytes, for
// example 4K => 4096, 1M => 1048576. With no letter at the end the number is
// taken to be in bytes.
func parseSize(size string) (int64, error) {
	if len(size) <= 1 {
		return strconv.ParseInt(size, 10, 64)
	}

	last := size[len(size)-1]
	if last >= 'a' && last <= 'z' {
		last -= 'a' - 'A'
	}

	var multiplier int64
	switch last {
	case 'K':
		multiplier = 1024
	case 'M':
		multiplier = 1024 * 1024
	case 'G':
		multiplier = 1024 * 1024 * 1024
	default:
		return strconv.ParseInt(size, 10, 64)
	}

	number, err := strconv.ParseInt(size[:len(size)-1], 10, 64)
	if err != nil {
		return 0, err
	}
	return number * multiplier, nil
}
