package catalog

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// parseFrontMatter decodes a leading "---" delimited YAML block into dst and
// returns the remaining markdown. Documents without a block are all body.
func parseFrontMatter(doc []byte, dst any) (string, error) {
	doc = bytes.TrimPrefix(doc, []byte("\ufeff"))
	rest, ok := cutLine(doc, fence)
	if !ok {
		return string(doc), nil
	}

	var head []byte
	for len(rest) > 0 {
		line, next := splitLine(rest)
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fence) {
			if err := yaml.Unmarshal(head, dst); err != nil {
				return "", err
			}
			return string(next), nil
		}
		head = append(head, line...)
		head = append(head, '\n')
		rest = next
	}
	// unterminated block: treat the whole document as body
	return string(doc), nil
}

// cutLine strips a first line equal to want.
func cutLine(doc, want []byte) ([]byte, bool) {
	line, rest := splitLine(doc)
	if !bytes.Equal(bytes.TrimRight(line, " \t\r"), want) {
		return doc, false
	}
	return rest, true
}

func splitLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:]
	}
	return b, nil
}
