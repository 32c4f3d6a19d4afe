package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"profitradar/internal/config"
)

const calendarHTML = `<html><body>
<table class="calendar-table"><tbody>
  <tr>
    <td class="location">PA - Philadelphia</td>
    <td class="sale-date">2026-02-05</td>
    <td class="sale-time">10:00 AM EST</td>
    <td><a class="view-sales" href="/saleListResult/101/2026-02-05?location=PA">View Sales</a></td>
  </tr>
  <tr>
    <td class="location">NJ -   Trenton</td>
    <td class="sale-date">2026-02-06</td>
    <td><a class="view-sales" href="https://www.copart.com/saleListResult/202/2026-02-06">View Sales</a></td>
  </tr>
  <tr><td class="location">No link row</td></tr>
</tbody></table>
</body></html>`

const saleListHTML = `<html><body>
<table id="serverSideDataTable"><tbody>
  <tr>
    <td><span class="lot-title">2014 FORD E150</span></td>
    <td><a class="lot-number">#123</a></td>
    <td><span class="current-bid">$100 USD</span></td>
    <td><img class="lot-image" src="/img/123.jpg"></td>
  </tr>
  <tr>
    <td><a class="lot-number">456</a></td>
    <td><span class="damage">FRONT END</span></td>
  </tr>
  <tr><td><span class="odometer">1,000 mi</span></td></tr>
</tbody></table>
</body></html>`

func TestParseCalendar(t *testing.T) {
	sel := config.DefaultScraperConfig().Calendar
	auctions, err := ParseCalendar(calendarHTML, "https://www.copart.com/auctionCalendar", sel)
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	if len(auctions) != 2 {
		t.Fatalf("expected 2 auctions, got %d", len(auctions))
	}
	if auctions[0].ViewSalesLink != "https://www.copart.com/saleListResult/101/2026-02-05?location=PA" {
		t.Fatalf("relative link not resolved: %s", auctions[0].ViewSalesLink)
	}
	if auctions[1].Location != "NJ - Trenton" {
		t.Fatalf("expected collapsed whitespace, got %q", auctions[1].Location)
	}
	if auctions[0].SaleTime != "10:00 AM EST" || auctions[1].SaleTime != "" {
		t.Fatalf("unexpected sale times: %q %q", auctions[0].SaleTime, auctions[1].SaleTime)
	}
}

func TestParseSaleList(t *testing.T) {
	sel := config.DefaultScraperConfig().SaleList
	entries, err := ParseSaleList(saleListHTML, "https://www.copart.com/saleListResult/101/2026-02-05", sel, 0)
	if err != nil {
		t.Fatalf("ParseSaleList: %v", err)
	}
	// the row without lot number or title is skipped
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.LotNr != "123" || first.Title != "2014 FORD E150" || first.CurrentBid != "$100 USD" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.Details == nil || len(first.Details.Images) != 1 || first.Details.Images[0] != "https://www.copart.com/img/123.jpg" {
		t.Fatalf("expected resolved image, got %+v", first.Details)
	}
	if entries[1].Details != nil || entries[1].Damage != "FRONT END" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}

	limited, err := ParseSaleList(saleListHTML, "https://www.copart.com/", sel, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected 1 entry with limit, got %d (err %v)", len(limited), err)
	}
}

func TestParseDetectsCaptcha(t *testing.T) {
	html := `<html><body><div class="g-recaptcha"></div></body></html>`
	_, err := ParseSaleList(html, "https://www.copart.com/", config.DefaultScraperConfig().SaleList, 0)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestAuctionID(t *testing.T) {
	cases := []struct {
		link string
		want string
	}{
		{"https://www.copart.com/saleListResult/101/2026-02-05?location=PA", "101"},
		{"https://www.copart.com/salelistresult/77", "77"},
		{"https://example.com/sale?id=55", "55"},
		{"https://example.com/sales/99", "99"},
		{"https://example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.link, func(t *testing.T) {
			if got := AuctionID(tc.link); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestHTMLSourceWithCollyFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/calendar":
			if r.URL.Query().Get("month") != "February" || r.URL.Query().Get("year") != "2026" {
				http.Error(w, "bad query", http.StatusBadRequest)
				return
			}
			w.Write([]byte(calendarHTML))
		case "/saleListResult/101/2026-02-05":
			w.Write([]byte(saleListHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultScraperConfig()
	cfg.Fetcher = "colly"
	cfg.RequestDelay = 0
	cfg.PageTimeout = 5 * time.Second
	cfg.CalendarURL = srv.URL + "/calendar?month={month}&year={year}"

	src, err := New("", cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	auctions, err := src.Calendar(ctx, "February", 2026)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(auctions) != 2 || auctions[0].ViewSalesLink != srv.URL+"/saleListResult/101/2026-02-05?location=PA" {
		t.Fatalf("unexpected auctions: %+v", auctions)
	}

	entries, err := src.SaleList(ctx, auctions[0].ViewSalesLink)
	if err != nil {
		t.Fatalf("SaleList: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// same URL twice must not be rejected as already visited
	if _, err := src.SaleList(ctx, auctions[0].ViewSalesLink); err != nil {
		t.Fatalf("second SaleList: %v", err)
	}

	if _, err := src.SaleList(ctx, srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404 page")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	calendar := `[{"location":"PA","saleDate":"2026-02-05","viewSalesLink":"https://www.copart.com/saleListResult/101/2026-02-05","saleList":[]}]`
	sale := `[{"lotNumber":123,"make":"FORD","model":"E150","price":"$100"},{"lotNr":"456","odometr":"1,000"}]`
	if err := os.WriteFile(filepath.Join(dir, "calendar_february_2026.json"), []byte(calendar), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "copart_sale_101.json"), []byte(sale), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := New(dir, config.DefaultScraperConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	auctions, err := src.Calendar(context.Background(), "February", 2026)
	if err != nil || len(auctions) != 1 {
		t.Fatalf("expected 1 auction, got %d (err %v)", len(auctions), err)
	}

	entries, err := src.SaleList(context.Background(), auctions[0].ViewSalesLink)
	if err != nil {
		t.Fatalf("SaleList: %v", err)
	}
	if len(entries) != 2 || entries[0].LotNr != "123" || entries[1].Odometer != "1,000" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if _, err := src.Calendar(context.Background(), "March", 2026); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
