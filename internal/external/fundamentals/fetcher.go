// Package fundamentals downloads quarterly statements from the Yahoo
// fundamentals timeseries endpoint and derives the growth figures the buy
// scorer reads.
package fundamentals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/external/yahoo"
	"github.com/wonny/phasescan/internal/indicators"
	"github.com/wonny/phasescan/pkg/httputil"
	"github.com/wonny/phasescan/pkg/logger"
)

// DefaultBaseURL is the Yahoo host serving the timeseries endpoint
const DefaultBaseURL = "https://query2.finance.yahoo.com"

const (
	typeRevenue   = "quarterlyTotalRevenue"
	typeEPS       = "quarterlyDilutedEPS"
	typeInventory = "quarterlyInventory"

	// year-over-year compares against the quarter four reports back
	yoyOffset = 4
	// five quarters plus slack for late filers
	lookbackYears = 2
)

// ErrNoStatements is returned when the endpoint has no quarterly figures
var ErrNoStatements = errors.New("no quarterly statements")

// Quarter is one reporting period. Nil means the figure was not reported.
type Quarter struct {
	EndDate   time.Time
	Revenue   *float64
	EPS       *float64
	Inventory *float64
}

// Report is the derived growth of a ticker as of its latest quarter
type Report struct {
	Ticker       string
	AsOf         time.Time
	Quarters     int
	Fundamentals contracts.Fundamentals
}

// Fetcher downloads quarterly statements
type Fetcher struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
	now     func() time.Time
}

// NewFetcher creates a new statements fetcher. The client should carry the
// Yahoo rate limit.
func NewFetcher(client *httputil.Client, baseURL string, log *logger.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
		now:     time.Now,
	}
}

// Fetch downloads a ticker's recent quarters and derives its growth
func (f *Fetcher) Fetch(ctx context.Context, ticker string) (Report, error) {
	symbol := yahoo.NormalizeSymbol(ticker)
	if symbol == "" {
		return Report{}, fmt.Errorf("empty ticker")
	}

	body, err := f.http.GetBody(ctx, f.url(symbol))
	if err != nil {
		return Report{}, fmt.Errorf("fetch statements for %s: %w", symbol, err)
	}

	quarters, err := ParseTimeseries(body)
	if err != nil {
		return Report{}, fmt.Errorf("parse statements for %s: %w", symbol, err)
	}

	report := Report{
		Ticker:       ticker,
		AsOf:         quarters[0].EndDate,
		Quarters:     len(quarters),
		Fundamentals: Derive(quarters),
	}

	f.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"as_of":    report.AsOf.Format("2006-01-02"),
		"quarters": len(quarters),
	}).Debug("Fetched quarterly statements")
	return report, nil
}

func (f *Fetcher) url(symbol string) string {
	to := f.now().UTC()
	from := to.AddDate(-lookbackYears, 0, 0)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", strings.Join([]string{typeRevenue, typeEPS, typeInventory}, ","))
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	return fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?%s",
		f.baseURL, url.PathEscape(symbol), q.Encode())
}

type timeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"timeseries"`
}

type timeseriesMeta struct {
	Type []string `json:"type"`
}

type timeseriesPoint struct {
	AsOfDate      string `json:"asOfDate"`
	PeriodType    string `json:"periodType"`
	ReportedValue struct {
		Raw *float64 `json:"raw"`
	} `json:"reportedValue"`
}

// ParseTimeseries merges the revenue, EPS and inventory series of a
// timeseries response into quarters, newest first
func ParseTimeseries(body []byte) ([]Quarter, error) {
	var resp timeseriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode timeseries: %w", err)
	}
	if e := resp.Timeseries.Error; e != nil {
		return nil, fmt.Errorf("timeseries error %s: %s", e.Code, e.Description)
	}

	byDate := make(map[string]*Quarter)
	for _, result := range resp.Timeseries.Result {
		var meta timeseriesMeta
		if raw, ok := result["meta"]; !ok || json.Unmarshal(raw, &meta) != nil || len(meta.Type) == 0 {
			continue
		}
		name := meta.Type[0]
		raw, ok := result[name]
		if !ok {
			continue
		}

		var points []*timeseriesPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		for _, p := range points {
			if p == nil || p.ReportedValue.Raw == nil {
				continue
			}
			if p.PeriodType != "" && p.PeriodType != "3M" {
				continue
			}
			date, err := time.Parse("2006-01-02", p.AsOfDate)
			if err != nil {
				continue
			}
			q, ok := byDate[p.AsOfDate]
			if !ok {
				q = &Quarter{EndDate: date}
				byDate[p.AsOfDate] = q
			}
			v := *p.ReportedValue.Raw
			switch name {
			case typeRevenue:
				q.Revenue = &v
			case typeEPS:
				q.EPS = &v
			case typeInventory:
				q.Inventory = &v
			}
		}
	}

	if len(byDate) == 0 {
		return nil, ErrNoStatements
	}

	quarters := make([]Quarter, 0, len(byDate))
	for _, q := range byDate {
		quarters = append(quarters, *q)
	}
	sortNewestFirst(quarters)
	return quarters, nil
}

// Derive computes revenue and EPS growth against the quarter four reports
// back and inventory growth against the previous quarter. A figure is nil
// when either side is missing or the base is zero. EPS growth divides by
// the absolute base so a swing out of a loss reads as growth.
func Derive(quarters []Quarter) contracts.Fundamentals {
	var f contracts.Fundamentals
	if len(quarters) == 0 {
		return f
	}
	q := append([]Quarter(nil), quarters...)
	sortNewestFirst(q)
	latest := q[0]

	if len(q) > yoyOffset {
		prior := q[yoyOffset]
		if latest.Revenue != nil && prior.Revenue != nil && *prior.Revenue != 0 {
			f.RevenueYoYChange = contracts.Float((*latest.Revenue - *prior.Revenue) / *prior.Revenue * 100)
		}
		if latest.EPS != nil && prior.EPS != nil && *prior.EPS != 0 {
			f.EPSYoYChange = contracts.Float((*latest.EPS - *prior.EPS) / math.Abs(*prior.EPS) * 100)
		}
	}

	if len(q) > 1 {
		prev := q[1]
		if latest.Inventory != nil && *latest.Inventory != 0 && prev.Inventory != nil && *prev.Inventory != 0 {
			change := (*latest.Inventory - *prev.Inventory) / *prev.Inventory * 100
			f.InventoryQoQChange = contracts.Float(indicators.Round(change, 2))
		}
	}
	return f
}

func sortNewestFirst(q []Quarter) {
	sort.Slice(q, func(i, j int) bool {
		return q[i].EndDate.After(q[j].EndDate)
	})
}
