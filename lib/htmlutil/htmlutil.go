package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetStrippedText concatenates every text node under node with surrounding
// whitespace trimmed from each piece.
func GetStrippedText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(strings.TrimSpace(node.Data))
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// SelectionText is GetStrippedText over every node of a selection.
func SelectionText(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		out.WriteString(GetStrippedText(n))
	}
	return out.String()
}

// Unescape decodes html entities, markup that arrives double-encoded inside
// json payloads needs this before it is handed to the parser.
func Unescape(s string) string {
	return html.UnescapeString(s)
}

// Parse builds a goquery document out of a fragment of markup.
func Parse(markup string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(markup))
}
