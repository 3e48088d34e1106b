package htmlutil

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// TextNodes returns the contents of every descendant text node in
// document order. Callers that expect exactly one text node can assert
// on the length instead of silently concatenating.
func TextNodes(node *html.Node) []string {
	var texts []string
	collectTextNodes(node, &texts)
	return texts
}

func collectTextNodes(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		*out = append(*out, node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		collectTextNodes(child, out)
		child = child.NextSibling
	}
}

// HasClass reports whether the element carries the given class token,
// compared ascii-case-insensitively like browsers do.
func HasClass(node *html.Node, class string) bool {
	if node == nil {
		return false
	}
	for _, attr := range node.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, token := range strings.Fields(attr.Val) {
			if strings.EqualFold(token, class) {
				return true
			}
		}
	}
	return false
}
