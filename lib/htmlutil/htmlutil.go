package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
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
	if node.Type == html.ElementNode && (node.DataAtom == atom.Script || node.DataAtom == atom.Style) {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return ' '
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// CleanText collapses all whitespace runs into single spaces and drops
// non-printable characters.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text is CleanText over the combined text of a selection.
func Text(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return CleanText(buffer.String())
}

var blockElements = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Li: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Article: true, atom.Section: true,
	atom.Table: true, atom.Tbody: true, atom.Ul: true, atom.Ol: true,
}

// visualLines splits a node into the raw lines a browser would render,
// breaking at block elements and <br>. A <br> always ends a line, so two
// in a row leave a blank one. Block boundaries only end a line that has
// text, whitespace between blocks is dropped.
func visualLines(node *html.Node) []string {
	var raw []string
	var current strings.Builder
	breakLine := func(keepBlank bool) {
		if keepBlank || strings.TrimSpace(current.String()) != "" {
			raw = append(raw, current.String())
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if n.DataAtom == atom.Br {
				breakLine(true)
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			breakLine(false)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			breakLine(false)
		}
	}
	walk(node)
	breakLine(false)
	return raw
}

// Lines returns the non-blank visual lines of a node, the way a browser
// breaks text at block elements and <br>. Each line is cleaned.
func Lines(node *html.Node) []string {
	var lines []string
	for _, chunk := range visualLines(node) {
		for _, line := range strings.Split(chunk, "\n") {
			line = CleanText(line)
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// PositionalLines is Lines for text read by line position. Blank lines
// inside the node are kept as "" so a missing value does not shift the
// ones after it. Only leading and trailing blank lines are trimmed, and
// newlines in the markup itself fold into spaces.
func PositionalLines(node *html.Node) []string {
	var lines []string
	for _, chunk := range visualLines(node) {
		lines = append(lines, CleanText(chunk))
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// SelectionLines is Lines over the first node of a selection.
func SelectionLines(sel *goquery.Selection) []string {
	if sel.Length() == 0 {
		return nil
	}
	return Lines(sel.Get(0))
}

// SelectionPositionalLines is PositionalLines over the first node of a
// selection.
func SelectionPositionalLines(sel *goquery.Selection) []string {
	if sel.Length() == 0 {
		return nil
	}
	return PositionalLines(sel.Get(0))
}
