package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/pkg/httputil"
	"github.com/wonny/phasescan/pkg/logger"
)

const constituentsPage = `
<html><body>
<table class="infobox"><tr><th>Founded</th><td>1957</td></tr></table>
<table id="constituents">
  <tr><th>Symbol</th><th>Security</th></tr>
  <tr><td><a href="#">MSFT</a></td><td>Microsoft</td></tr>
  <tr><td>AAPL</td><td>Apple Inc.</td></tr>
  <tr><td>BRK.B</td><td>Berkshire Hathaway</td></tr>
  <tr><td> aapl </td><td>Apple again</td></tr>
</table>
<table>
  <tr><th>Ticker</th></tr>
  <tr><td>ZZZZ</td></tr>
</table>
</body></html>`

func TestParseTickers(t *testing.T) {
	tickers, err := ParseTickers(constituentsPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "BRK-B", "MSFT"}, tickers)
}

func TestParseTickers_TickerHeader(t *testing.T) {
	html := `<table><tr><th>Ticker</th><th>Name</th></tr><tr><td>nvda</td><td>Nvidia</td></tr></table>`

	tickers, err := ParseTickers(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, tickers)
}

func TestParseTickers_NoTable(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no tables", `<p>nothing here</p>`},
		{"wrong header", `<table><tr><th>Company</th></tr><tr><td>AAPL</td></tr></table>`},
		{"empty table", `<table><tr><th>Symbol</th></tr></table>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTickers(tt.html)
			assert.ErrorIs(t, err, ErrNoTable)
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(constituentsPage))
	}))
	defer server.Close()

	client := httputil.New(logger.NewNop(), httputil.WithTimeout(time.Second), httputil.WithoutRetry())
	f := NewFetcher(client, server.URL, logger.NewNop())

	tickers, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, tickers, 3)
}

func TestFetcher_FetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := httputil.New(logger.NewNop(), httputil.WithTimeout(time.Second), httputil.WithoutRetry())
	f := NewFetcher(client, server.URL, logger.NewNop())

	_, err := f.Fetch(context.Background())
	assert.True(t, httputil.IsStatus(err, http.StatusForbidden))
}
