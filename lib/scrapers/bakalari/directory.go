package bakalari

import (
	"bytes"
	"context"
	"strings"

	"bakalari-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type directory struct {
	classes  map[string]string
	teachers map[string]string
	rooms    map[string]string
}

// fetchDirectory pulls the portal's public timetable landing page and
// extracts the three name-to-identifier maps from its select boxes.
func fetchDirectory(ctx context.Context, client *resty.Client, token string) (directory, error) {
	ctx, span := tracer.Start(ctx, "fetchDirectory")
	defer span.End()

	res, err := authedGet(ctx, client, "/timetable/public", token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch directory page")
		return directory{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse directory html")
		return directory{}, err
	}

	classes, err := optionMap(doc, "select#selectedClass > option[value]")
	if err != nil {
		return directory{}, err
	}
	teachers, err := optionMap(doc, "select#selectedTeacher > option[value]")
	if err != nil {
		return directory{}, err
	}
	rooms, err := optionMap(doc, "select#selectedRoom > option[value]")
	if err != nil {
		return directory{}, err
	}

	return directory{classes: classes, teachers: teachers, rooms: rooms}, nil
}

// optionMap extracts a display-name to identifier map from the options
// under one select box. Duplicate display names overwrite earlier
// entries, which matches how the portal itself resolves them.
func optionMap(doc *goquery.Document, cssSelector string) (map[string]string, error) {
	out := map[string]string{}
	var failure error
	doc.Find(cssSelector).EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		texts := htmlutil.TextNodes(opt.Nodes[0])
		if len(texts) == 0 {
			failure = &UnknownResponseError{Reason: "missing option name"}
			return false
		}
		value, ok := opt.Attr("value")
		if !ok {
			failure = &UnknownResponseError{Reason: "missing value attr"}
			return false
		}
		out[strings.TrimSpace(texts[0])] = strings.TrimSpace(value)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return out, nil
}
