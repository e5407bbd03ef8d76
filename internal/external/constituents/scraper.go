package constituents

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmarceau/screener/internal/contracts"
	"github.com/jmarceau/screener/pkg/httputil"
	"github.com/jmarceau/screener/pkg/logger"
)

// Default source pages for index membership. Both are stable public
// tables that list every constituent.
const (
	DefaultSP500URL    = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	DefaultStoxx600URL = "https://en.wikipedia.org/wiki/STOXX_Europe_600"
)

// Scraper resolves the constituent list of a supported index by
// scraping its source page. Membership is the only authoritative field;
// names and sectors are best-effort seeds later refined by ingestion.
type Scraper struct {
	sp500URL    string
	stoxx600URL string
	http        *httputil.Client
	logger      *logger.Logger
}

// New creates a constituent scraper with the default source pages.
func New(log *logger.Logger) *Scraper {
	return &Scraper{
		sp500URL:    DefaultSP500URL,
		stoxx600URL: DefaultStoxx600URL,
		http:        httputil.NewWithTimeout(log, 30*time.Second),
		logger:      log.WithField("module", "constituents"),
	}
}

// WithSources overrides the source page URLs.
func (s *Scraper) WithSources(sp500URL, stoxx600URL string) *Scraper {
	s.sp500URL = sp500URL
	s.stoxx600URL = stoxx600URL
	return s
}

// Fetch returns the current constituents of a known index. The returned
// tickers carry Symbol, Name, Sector, Country and IndexMembership.
func (s *Scraper) Fetch(ctx context.Context, index string) ([]contracts.Ticker, error) {
	switch index {
	case contracts.IndexSP500:
		return s.fetch(ctx, s.sp500URL, index, parseSP500)
	case contracts.IndexEurostoxx600:
		return s.fetch(ctx, s.stoxx600URL, index, parseStoxx600)
	default:
		return nil, fmt.Errorf("constituents: unknown index %q", index)
	}
}

func (s *Scraper) fetch(ctx context.Context, url, index string, parse func(io.Reader, string) ([]contracts.Ticker, error)) ([]contracts.Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s constituents: %w", index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s constituents: status %d", index, resp.StatusCode)
	}

	tickers, err := parse(resp.Body, index)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"index": index,
		"count": len(tickers),
	}).Info("Fetched index constituents")
	return tickers, nil
}

// parseSP500 reads the constituents table: columns are Symbol,
// Security, GICS Sector, GICS Sub-Industry, ... All members are
// US-listed.
func parseSP500(r io.Reader, index string) ([]contracts.Ticker, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	var tickers []contracts.Ticker
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return // header row
		}
		symbol := cellText(cells, 0)
		if symbol == "" {
			return
		}
		tickers = append(tickers, contracts.Ticker{
			Symbol:          symbol,
			Name:            cellText(cells, 1),
			Sector:          cellText(cells, 2),
			Country:         "United States",
			Currency:        "USD",
			IndexMembership: index,
		})
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("constituents table empty")
	}
	return tickers, nil
}

// parseStoxx600 reads the component table: columns are Ticker, Name,
// Country, then optionally sector.
func parseStoxx600(r io.Reader, index string) ([]contracts.Ticker, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	var tickers []contracts.Ticker
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		symbol := cellText(cells, 0)
		if symbol == "" {
			return
		}
		t := contracts.Ticker{
			Symbol:          symbol,
			Name:            cellText(cells, 1),
			Country:         cellText(cells, 2),
			IndexMembership: index,
		}
		if cells.Length() > 3 {
			t.Sector = cellText(cells, 3)
		}
		tickers = append(tickers, t)
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("constituents table empty")
	}
	return tickers, nil
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}
