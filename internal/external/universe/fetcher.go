package universe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/phasescan/pkg/httputil"
	"github.com/wonny/phasescan/pkg/logger"
)

// ErrNoTable is returned when the page has no constituents table
var ErrNoTable = errors.New("no table with a Symbol or Ticker column")

var symbolHeaders = map[string]bool{
	"symbol":        true,
	"ticker":        true,
	"ticker symbol": true,
}

// Fetcher downloads the ticker universe from an HTML constituents page
type Fetcher struct {
	http   *httputil.Client
	url    string
	logger *logger.Logger
}

// NewFetcher creates a new universe fetcher. The client should carry the
// universe rate limit.
func NewFetcher(client *httputil.Client, url string, log *logger.Logger) *Fetcher {
	return &Fetcher{
		http:   client,
		url:    url,
		logger: log,
	}
}

// Fetch downloads the page and returns its tickers
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	body, err := f.http.GetBody(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("fetch universe page: %w", err)
	}

	tickers, err := ParseTickers(string(body))
	if err != nil {
		f.logger.WithError(err).WithField("url", f.url).Warn("Universe page could not be parsed")
		return nil, err
	}

	f.logger.WithFields(map[string]interface{}{
		"url":   f.url,
		"count": len(tickers),
	}).Info("Fetched ticker universe")
	return tickers, nil
}

// ParseTickers extracts the first-column symbols of the first table whose
// header row names a Symbol or Ticker column. Dots become dashes (BRK.B is
// BRK-B on the bar provider); the result is de-duplicated and sorted.
func ParseTickers(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(i int, t *goquery.Selection) bool {
		header := strings.ToLower(strings.TrimSpace(t.Find("tr").First().Find("th").First().Text()))
		if symbolHeaders[header] {
			table = t
			return false
		}
		return true
	})
	if table == nil {
		return nil, ErrNoTable
	}

	seen := make(map[string]bool)
	var tickers []string
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		symbol := strings.ToUpper(strings.TrimSpace(cell.Text()))
		symbol = strings.ReplaceAll(symbol, ".", "-")
		if symbol == "" || strings.ContainsAny(symbol, " \t\n") || seen[symbol] {
			return
		}
		seen[symbol] = true
		tickers = append(tickers, symbol)
	})

	if len(tickers) == 0 {
		return nil, ErrNoTable
	}

	sort.Strings(tickers)
	return tickers, nil
}
