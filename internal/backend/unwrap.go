package backend

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoJSON is returned when an HTML response carries no JSON payload.
var ErrNoJSON = errors.New("no JSON payload in HTML response")

// unwrapHTML returns body unchanged when it already looks like JSON. The
// scripting service sometimes serves its JSON inside an HTML page; in that
// case the document text is searched for the first JSON object or array.
func unwrapHTML(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return trimmed, nil
	}

	doc, err := html.Parse(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	collectText(doc, &sb)
	text := sb.String()

	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		var raw stdjson.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, ErrNoJSON
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
