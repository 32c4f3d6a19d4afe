// Package scraper turns auction calendar and sale list pages into models values.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"profitradar/internal/config"
	"profitradar/internal/models"
)

// ErrBlocked is returned when the fetched page is a captcha or bot wall
var ErrBlocked = errors.New("page blocked by captcha")

const captchaSelector = `iframe[src*="captcha"], iframe[src*="recaptcha"], .g-recaptcha, #captcha`

// Source produces calendar months and sale lists
type Source interface {
	Calendar(ctx context.Context, month string, year int) ([]models.Auction, error)
	SaleList(ctx context.Context, viewSalesLink string) ([]models.SaleListEntry, error)
	Close() error
}

// New returns a FileSource when fixturesDir is set, otherwise an HTMLSource
// backed by the fetcher named in cfg
func New(fixturesDir string, cfg *config.ScraperConfig) (Source, error) {
	if fixturesDir != "" {
		return NewFileSource(fixturesDir), nil
	}

	var fetcher Fetcher
	switch cfg.Fetcher {
	case "colly":
		f, err := NewCollyFetcher(cfg.UserAgent, cfg.RequestDelay, cfg.PageTimeout)
		if err != nil {
			return nil, err
		}
		fetcher = f
	case "rod":
		fetcher = NewRodFetcher(cfg.UserAgent, cfg.PageTimeout, cfg.RequestDelay)
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
	return NewHTMLSource(fetcher, cfg), nil
}

// HTMLSource scrapes live pages and extracts rows with goquery selectors
type HTMLSource struct {
	fetcher Fetcher
	cfg     *config.ScraperConfig
}

func NewHTMLSource(fetcher Fetcher, cfg *config.ScraperConfig) *HTMLSource {
	return &HTMLSource{fetcher: fetcher, cfg: cfg}
}

func (s *HTMLSource) Calendar(ctx context.Context, month string, year int) ([]models.Auction, error) {
	pageURL := strings.NewReplacer(
		"{month}", url.QueryEscape(month),
		"{year}", strconv.Itoa(year),
	).Replace(s.cfg.CalendarURL)

	html, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseCalendar(html, pageURL, s.cfg.Calendar)
}

func (s *HTMLSource) SaleList(ctx context.Context, viewSalesLink string) ([]models.SaleListEntry, error) {
	html, err := s.fetcher.Fetch(ctx, viewSalesLink)
	if err != nil {
		return nil, err
	}
	return ParseSaleList(html, viewSalesLink, s.cfg.SaleList, s.cfg.MaxSaleEntries)
}

func (s *HTMLSource) Close() error {
	return s.fetcher.Close()
}

// ParseCalendar extracts auctions from a calendar page. Relative links are
// resolved against pageURL.
func ParseCalendar(html, pageURL string, sel config.CalendarSelectors) ([]models.Auction, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	var auctions []models.Auction
	seen := make(map[string]bool)
	doc.Find(sel.Row).Each(func(i int, row *goquery.Selection) {
		href, ok := row.Find(sel.Link).First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		link := resolve(base, href)
		if seen[link] {
			return
		}
		seen[link] = true

		auctions = append(auctions, models.Auction{
			Location:      text(row, sel.Location),
			SaleDate:      text(row, sel.SaleDate),
			SaleTime:      text(row, sel.SaleTime),
			ViewSalesLink: link,
			SaleList:      []models.SaleListEntry{},
		})
	})
	return auctions, nil
}

// ParseSaleList extracts lots from a sale list page, keeping at most limit rows when limit > 0
func ParseSaleList(html, pageURL string, sel config.SaleListSelectors, limit int) ([]models.SaleListEntry, error) {
	doc, err := newDocument(html)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}

	entries := []models.SaleListEntry{}
	doc.Find(sel.Row).EachWithBreak(func(i int, row *goquery.Selection) bool {
		if limit > 0 && len(entries) >= limit {
			return false
		}
		e := models.SaleListEntry{
			Title:          text(row, sel.Title),
			LotNr:          strings.TrimPrefix(text(row, sel.LotNr), "#"),
			Odometer:       text(row, sel.Odometer),
			EstimateRetail: text(row, sel.EstimateRetail),
			ConditionTitle: text(row, sel.ConditionTitle),
			Damage:         text(row, sel.Damage),
			Keys:           text(row, sel.Keys),
			Location:       text(row, sel.Location),
			Item:           text(row, sel.Item),
			CurrentBid:     text(row, sel.CurrentBid),
			BuyItNow:       text(row, sel.BuyItNow),
		}
		if e.Identity().Value == "" {
			return true
		}

		var images []string
		if sel.Image != "" {
			row.Find(sel.Image).Each(func(_ int, img *goquery.Selection) {
				if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
					images = append(images, resolve(base, src))
				}
			})
		}
		if len(images) > 0 {
			e.Details = &models.LotDetails{Images: images}
		}

		entries = append(entries, e)
		return true
	})
	return entries, nil
}

func newDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	if doc.Find(captchaSelector).Length() > 0 {
		return nil, ErrBlocked
	}
	return doc, nil
}

func text(row *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(row.Find(selector).First().Text()), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// AuctionID extracts the sale id from a link such as
// https://www.copart.com/saleListResult/101/2026-02-05?location=PA
func AuctionID(viewSalesLink string) string {
	u, err := url.Parse(viewSalesLink)
	if err != nil {
		return ""
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	for i, s := range segments {
		if strings.EqualFold(s, "saleListResult") && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	if len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return ""
}

// FileSource reads previously scraped JSON files:
// calendar_<month>_<year>.json and copart_sale_<id>.json
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Calendar(ctx context.Context, month string, year int) ([]models.Auction, error) {
	name := fmt.Sprintf("calendar_%s_%d.json", strings.ToLower(month), year)
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var auctions []models.Auction
	if err := json.Unmarshal(data, &auctions); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return auctions, nil
}

func (s *FileSource) SaleList(ctx context.Context, viewSalesLink string) ([]models.SaleListEntry, error) {
	id := AuctionID(viewSalesLink)
	if id == "" {
		return nil, fmt.Errorf("no auction id in %s", viewSalesLink)
	}
	name := "copart_sale_" + id + ".json"
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return models.DecodeSaleList(data)
}

func (s *FileSource) Close() error { return nil }
