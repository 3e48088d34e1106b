package timetable

import (
	"bakalari-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// singleNode asserts that a selection matched exactly one element,
// mirroring the fail-closed stance of the decoder: zero or multiple
// matches both mean the page structure drifted.
func singleNode(sel *goquery.Selection, miss error) (*goquery.Selection, error) {
	if sel.Length() != 1 {
		return nil, miss
	}
	return sel, nil
}

// singleText extracts the single text node of an element, erroring on
// zero or multiple text nodes.
func singleText(sel *goquery.Selection, miss error) (string, error) {
	texts := htmlutil.TextNodes(sel.Nodes[0])
	if len(texts) != 1 {
		return "", miss
	}
	return texts[0], nil
}
