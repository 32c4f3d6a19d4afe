package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"profitradar/internal/models"
	"profitradar/internal/store"
)

// memStore keeps documents as JSON so callers never share memory with it
type memStore struct {
	docs     map[string][]byte
	writes   int
	failNext error
	failFind bool // FindMonthByAuctionLink reports not found even when a month holds the link
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func monthKey(month string, year int) string {
	b, _ := json.Marshal([]any{month, year})
	return string(b)
}

func (m *memStore) put(t *testing.T, doc *models.CalendarMonth) {
	t.Helper()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m.docs[monthKey(doc.Month, doc.Year)] = b
}

func (m *memStore) load(b []byte) *models.CalendarMonth {
	var doc models.CalendarMonth
	_ = json.Unmarshal(b, &doc)
	return &doc
}

func (m *memStore) UpsertCalendarMonth(ctx context.Context, doc *models.CalendarMonth) (store.UpdateResult, error) {
	if err := m.failNext; err != nil {
		m.failNext = nil
		return store.UpdateResult{}, err
	}
	m.writes++
	key := monthKey(doc.Month, doc.Year)
	_, existed := m.docs[key]
	b, _ := json.Marshal(doc)
	m.docs[key] = b
	if existed {
		return store.UpdateResult{Matched: 1, Modified: 1}, nil
	}
	return store.UpdateResult{Upserted: 1}, nil
}

func (m *memStore) GetCalendarMonth(ctx context.Context, month string, year int) (*models.CalendarMonth, error) {
	b, ok := m.docs[monthKey(month, year)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.load(b), nil
}

func (m *memStore) FindMonthByAuctionLink(ctx context.Context, link string) (*models.CalendarMonth, error) {
	if m.failFind {
		return nil, store.ErrNotFound
	}
	for _, b := range m.docs {
		doc := m.load(b)
		if doc.FindAuction(link) >= 0 {
			return doc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ReplaceSaleList(ctx context.Context, link string, saleList []models.SaleListEntry, numberOnSale int) (store.UpdateResult, error) {
	if err := m.failNext; err != nil {
		m.failNext = nil
		return store.UpdateResult{}, err
	}
	m.writes++
	for key, b := range m.docs {
		doc := m.load(b)
		idx := doc.FindAuction(link)
		if idx < 0 {
			continue
		}
		n := numberOnSale
		doc.Auctions[idx].SaleList = saleList
		doc.Auctions[idx].NumberOnSale = &n
		nb, _ := json.Marshal(doc)
		m.docs[key] = nb
		return store.UpdateResult{Matched: 1, Modified: 1}, nil
	}
	return store.UpdateResult{}, nil
}

func (m *memStore) ListCalendarMonths(ctx context.Context) ([]models.CalendarSummary, error) {
	var out []models.CalendarSummary
	for _, b := range m.docs {
		doc := m.load(b)
		out = append(out, models.CalendarSummary{Month: doc.Month, Year: doc.Year, ScrapedAt: doc.ScrapedAt, TotalAuctions: doc.TotalAuctions})
	}
	return out, nil
}

func (m *memStore) Close(ctx context.Context) error { return nil }

type recordingObserver struct {
	results []*Result
}

func (o *recordingObserver) Reconciled(ctx context.Context, res *Result) {
	o.results = append(o.results, res)
}

const testLink = "https://www.copart.com/saleListResult/101/2026-02-05?location=PA%20-%20Philadelphia"

var fixedNow = time.Date(2026, time.February, 5, 9, 30, 0, 0, time.UTC)

func seed(t *testing.T, saleList ...models.SaleListEntry) *memStore {
	t.Helper()
	s := newMemStore()
	s.put(t, &models.CalendarMonth{
		Month: "February",
		Year:  2026,
		Auctions: []models.Auction{
			{Location: "PA - Philadelphia", SaleDate: "2026-02-05", ViewSalesLink: testLink, SaleList: saleList},
			{Location: "NJ - Trenton", SaleDate: "2026-02-06", ViewSalesLink: "https://example.test/other"},
		},
	})
	return s
}

func storedSaleList(t *testing.T, s *memStore) *models.Auction {
	t.Helper()
	doc, err := s.FindMonthByAuctionLink(context.Background(), testLink)
	if err != nil {
		t.Fatalf("auction vanished: %v", err)
	}
	return &doc.Auctions[doc.FindAuction(testLink)]
}

func TestIncrementalAttachEndToEnd(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "123", CurrentBid: "$100"})
	r := New(s, WithClock(func() time.Time { return fixedNow }))

	res, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{
		{LotNr: "123", CurrentBid: "$120", Damage: "Front End"},
		{LotNr: "456", CurrentBid: "$50"},
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !res.Written || s.writes != 1 {
		t.Fatalf("expected one write, got written=%v writes=%d", res.Written, s.writes)
	}
	if res.Changes < 2 || res.Appended != 1 || res.Affected != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	a := storedSaleList(t, s)
	if len(a.SaleList) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(a.SaleList))
	}
	first, second := a.SaleList[0], a.SaleList[1]
	if first.LotNr != "123" || first.CurrentBid != "$120" || first.Damage != "Front End" {
		t.Fatalf("unexpected merged entry %+v", first)
	}
	if second.LotNr != "456" || second.CurrentBid != "$50" {
		t.Fatalf("unexpected appended entry %+v", second)
	}
	if a.NumberOnSale == nil || *a.NumberOnSale != 2 {
		t.Fatalf("expected numberOnSale 2, got %v", a.NumberOnSale)
	}
}

func TestIncrementalAttachIsIdempotent(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "1", CurrentBid: "$10"})
	r := New(s, WithClock(func() time.Time { return fixedNow }))
	batch := []models.SaleListEntry{
		{LotNr: "1", CurrentBid: "$20", Details: &models.LotDetails{Make: "FORD", Images: []string{"a.jpg"}}},
		{LotNr: "2", CurrentBid: "$30"},
	}

	if _, err := r.IncrementalAttachSaleList(context.Background(), testLink, batch); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	writes := s.writes

	res, err := r.IncrementalAttachSaleList(context.Background(), testLink, batch)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if res.Changes != 0 || res.Written || s.writes != writes {
		t.Fatalf("second pass should be a no-op, got %+v (writes %d -> %d)", res, writes, s.writes)
	}
}

func TestRollingFieldOverride(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "9", CurrentBid: "$100", BuyItNow: "$900", ActionCountDown: "1D"})
	r := New(s)

	if _, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{
		{LotNr: "9", CurrentBid: "$150", ActionCountDown: ""},
	}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	got := storedSaleList(t, s).SaleList[0]
	if got.CurrentBid != "$150" {
		t.Fatalf("expected $150, got %q", got.CurrentBid)
	}
	if got.BuyItNow != "$900" || got.ActionCountDown != "1D" {
		t.Fatalf("empty rolling values must not erase: %+v", got)
	}
}

func TestEnrichmentFillOnly(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "9", Damage: "Water Damage"})
	r := New(s)

	if _, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{
		{LotNr: "9", Damage: "Clean Title", Odometer: "48,210"},
	}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	got := storedSaleList(t, s).SaleList[0]
	if got.Damage != "Water Damage" {
		t.Fatalf("enrichment field overwritten: %q", got.Damage)
	}
	if got.Odometer != "48,210" {
		t.Fatalf("empty enrichment field not filled: %q", got.Odometer)
	}
}

func TestNewEntryAppendedVerbatim(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "1"}, models.SaleListEntry{LotNr: "2"})
	r := New(s)
	incoming := models.SaleListEntry{LotNr: "3", Title: "2018 TOYOTA CAMRY", CurrentBid: "$75", Keys: "Yes"}

	res, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{incoming})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	list := storedSaleList(t, s).SaleList
	if len(list) != 3 || res.MergedTotal != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if list[2] != incoming {
		t.Fatalf("appended entry differs: %+v", list[2])
	}
	if len(res.NewLots) != 1 || res.NewLots[0].String() != "lotNr:3" {
		t.Fatalf("unexpected new lots %v", res.NewLots)
	}
}

func TestImagesUnion(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "1", Details: &models.LotDetails{Images: []string{"a.jpg", "b.jpg"}}})
	r := New(s, WithClock(func() time.Time { return fixedNow }))

	if _, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{
		{LotNr: "1", Details: &models.LotDetails{Images: []string{"b.jpg", "c.jpg"}}},
	}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	d := storedSaleList(t, s).SaleList[0].Details
	want := []string{"a.jpg", "b.jpg", "c.jpg"}
	if len(d.Images) != len(want) {
		t.Fatalf("expected %v, got %v", want, d.Images)
	}
	for i := range want {
		if d.Images[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, d.Images)
		}
	}
	if d.LastUpdated != "2026-02-05T09:30:00Z" {
		t.Fatalf("lastUpdated not stamped: %q", d.LastUpdated)
	}
}

func TestNumberOnSaleReflectsIncomingBatch(t *testing.T) {
	var existing []models.SaleListEntry
	for _, lot := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		existing = append(existing, models.SaleListEntry{LotNr: lot, CurrentBid: "$1"})
	}
	s := seed(t, existing...)
	r := New(s)

	var incoming []models.SaleListEntry
	for _, lot := range []string{"6", "7", "8", "9", "10"} {
		incoming = append(incoming, models.SaleListEntry{LotNr: lot, CurrentBid: "$2"})
	}

	res, err := r.IncrementalAttachSaleList(context.Background(), testLink, incoming)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	a := storedSaleList(t, s)
	if a.NumberOnSale == nil || *a.NumberOnSale != 5 {
		t.Fatalf("expected numberOnSale 5, got %v", a.NumberOnSale)
	}
	if res.NumberOnSale != 5 || res.MergedTotal != 10 || len(a.SaleList) != 10 {
		t.Fatalf("unexpected counts %+v, stored %d", res, len(a.SaleList))
	}
}

func TestIncrementalAttachFallsBackWhenLinkUnknown(t *testing.T) {
	s := seed(t)
	obs := &recordingObserver{}
	r := New(s, WithObserver(obs))

	res, err := r.IncrementalAttachSaleList(context.Background(), "https://example.test/missing", []models.SaleListEntry{{LotNr: "1"}})
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if !res.FellBack || res.Affected != 0 || res.Written || res.Changes != 0 {
		t.Fatalf("unexpected fallback result %+v", res)
	}
	if len(obs.results) != 1 || !obs.results[0].FellBack {
		t.Fatalf("observer not told about fallback: %+v", obs.results)
	}
}

func TestFallbackReportsWriteWhenAuctionMatched(t *testing.T) {
	s := seed(t)
	s.failFind = true
	r := New(s)

	res, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{{LotNr: "1"}, {LotNr: "2"}})
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if !res.FellBack || !res.Written || res.Affected != 1 || res.Changes != 2 || res.MergedTotal != 2 {
		t.Fatalf("unexpected fallback result %+v", res)
	}
}

func TestIncrementalAttachPropagatesWriteErrors(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "1", CurrentBid: "$1"})
	boom := errors.New("disk full")
	s.failNext = boom
	r := New(s)

	_, err := r.IncrementalAttachSaleList(context.Background(), testLink, []models.SaleListEntry{{LotNr: "1", CurrentBid: "$2"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}

func TestMergeDoesNotMutateCallerInput(t *testing.T) {
	existing := []models.SaleListEntry{{LotNr: "1", Details: &models.LotDetails{Images: []string{"a.jpg"}}}}
	incoming := []models.SaleListEntry{{LotNr: "1", Details: &models.LotDetails{Images: []string{"b.jpg"}}}}

	merged, stats := mergeSaleList(existing, incoming, fixedNow)
	if stats.changes != 1 || len(merged[0].Details.Images) != 2 {
		t.Fatalf("unexpected merge %+v %+v", stats, merged[0].Details)
	}
	if len(existing[0].Details.Images) != 1 || existing[0].Details.LastUpdated != "" {
		t.Fatalf("existing input mutated: %+v", existing[0].Details)
	}
}

func TestWeakTitleMatches(t *testing.T) {
	existing := []models.SaleListEntry{{Title: "2014 FORD E150"}}
	incoming := []models.SaleListEntry{{Title: " 2014 FORD E150", CurrentBid: "$10"}}

	merged, stats := mergeSaleList(existing, incoming, fixedNow)
	if len(merged) != 1 || stats.weak != 1 || merged[0].CurrentBid != "$10" {
		t.Fatalf("expected title match, got %+v %+v", merged, stats)
	}
}

func TestAttachSaleListReplaces(t *testing.T) {
	s := seed(t, models.SaleListEntry{LotNr: "1"}, models.SaleListEntry{LotNr: "2"})
	r := New(s)

	n, err := r.AttachSaleList(context.Background(), testLink, []models.SaleListEntry{{LotNr: "3"}})
	if err != nil || n != 1 {
		t.Fatalf("attach: n=%d err=%v", n, err)
	}
	a := storedSaleList(t, s)
	if len(a.SaleList) != 1 || a.SaleList[0].LotNr != "3" || *a.NumberOnSale != 1 {
		t.Fatalf("sale list not replaced: %+v", a)
	}
}

func TestSaveCalendarMonthInfersYear(t *testing.T) {
	s := newMemStore()
	r := New(s, WithClock(func() time.Time { return fixedNow }))

	res, err := r.SaveCalendarMonth(context.Background(), "March", []models.Auction{
		{Location: "TX - Dallas", SaleDate: "Wed. Mar 04"},
		{Location: "TX - Houston", SaleDate: "2027-03-05", ViewSalesLink: "x"},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if res.Year != 2027 || res.Total != 2 {
		t.Fatalf("unexpected save result %+v", res)
	}
	doc, err := r.GetCalendarMonth(context.Background(), "March", 2027)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.TotalAuctions != 2 || !doc.ScrapedAt.Equal(fixedNow) {
		t.Fatalf("unexpected stored doc %+v", doc)
	}

	// A second scrape replaces the whole month
	if _, err := r.SaveCalendarMonth(context.Background(), "March", []models.Auction{{SaleDate: "2027-03-09"}}); err != nil {
		t.Fatalf("resave failed: %v", err)
	}
	doc, _ = r.GetCalendarMonth(context.Background(), "March", 2027)
	if len(doc.Auctions) != 1 {
		t.Fatalf("expected full replace, got %d auctions", len(doc.Auctions))
	}
}

func TestDashboardWithoutStoredMonth(t *testing.T) {
	r := New(newMemStore())
	m, err := r.Dashboard(context.Background(), "April", 2026)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if m.Month != "April" || m.Year != 2026 || m.AuctionsInMonth != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestFindAuction(t *testing.T) {
	r := New(seed(t, models.SaleListEntry{LotNr: "1"}))
	a, month, err := r.FindAuction(context.Background(), testLink)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if a.Location != "PA - Philadelphia" || month.Month != "February" {
		t.Fatalf("unexpected auction %+v", a)
	}
	if _, _, err := r.FindAuction(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddAuction(t *testing.T) {
	s := newMemStore()
	r := New(s, WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	added, err := r.AddAuction(ctx, "January", 2025, models.Auction{Location: "PA", ViewSalesLink: "https://a.test/1"})
	if err != nil || !added {
		t.Fatalf("expected auction added to new month, added=%v err=%v", added, err)
	}
	added, err = r.AddAuction(ctx, "January", 2025, models.Auction{Location: "NJ", ViewSalesLink: "https://a.test/2"})
	if err != nil || !added {
		t.Fatalf("expected second auction added, added=%v err=%v", added, err)
	}
	added, err = r.AddAuction(ctx, "January", 2025, models.Auction{Location: "PA again", ViewSalesLink: "https://a.test/1"})
	if err != nil || added {
		t.Fatalf("expected duplicate link to be ignored, added=%v err=%v", added, err)
	}

	doc, err := r.GetCalendarMonth(ctx, "January", 2025)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.TotalAuctions != 2 || doc.Auctions[0].Location != "PA" || doc.Auctions[1].SaleList == nil {
		t.Fatalf("unexpected month %+v", doc)
	}
	if s.writes != 2 {
		t.Fatalf("expected 2 writes, got %d", s.writes)
	}
}

func TestMergeDetailsRules(t *testing.T) {
	no, yes := false, true
	oldBIN, newBIN := 500.0, 700.0

	dst := &models.LotDetails{
		Make:             "FORD",
		CurrentBid:       100,
		BuyItNow:         &oldBIN,
		AuctionCountdown: "1D",
		HasKey:           &no,
	}
	src := &models.LotDetails{
		Make:             "TOYOTA",
		Model:            "CAMRY",
		CurrentBid:       150,
		BuyItNow:         &newBIN,
		AuctionCountdown: "0D",
		HasKey:           &yes,
	}

	changes := mergeDetails(dst, src, fixedNow)

	checks := []struct {
		name string
		ok   bool
	}{
		{"makeKept", dst.Make == "FORD"},
		{"modelFilled", dst.Model == "CAMRY"},
		{"currentBidRolled", dst.CurrentBid == 150},
		{"buyItNowRolled", dst.BuyItNow != nil && *dst.BuyItNow == 700},
		{"buyItNowCopied", dst.BuyItNow != &newBIN},
		{"countdownRolled", dst.AuctionCountdown == "0D"},
		{"hasKeyFalseKept", dst.HasKey != nil && !*dst.HasKey},
		{"lastUpdatedStamped", dst.LastUpdated == fixedNow.Format(time.RFC3339)},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !c.ok {
				t.Fatalf("unexpected details %+v", dst)
			}
		})
	}
	// model, currentBid, buyItNow, auctionCountdown
	if changes != 4 {
		t.Fatalf("expected 4 changes, got %d", changes)
	}

	if again := mergeDetails(dst, src, fixedNow); again != 0 {
		t.Fatalf("second merge should change nothing, got %d", again)
	}
}

func TestMergeDetailsFillsMissingTriStateAndNumbers(t *testing.T) {
	yes := true
	tests := []struct {
		name    string
		dst     models.LotDetails
		src     models.LotDetails
		changes int
		check   func(d models.LotDetails) bool
	}{
		{
			name:    "nilBoolFilled",
			src:     models.LotDetails{RunAndDrive: &yes},
			changes: 1,
			check:   func(d models.LotDetails) bool { return d.RunAndDrive != nil && *d.RunAndDrive },
		},
		{
			name:    "zeroYearFilled",
			src:     models.LotDetails{Year: 2019},
			changes: 1,
			check:   func(d models.LotDetails) bool { return d.Year == 2019 },
		},
		{
			name:    "existingYearKept",
			dst:     models.LotDetails{Year: 2018},
			src:     models.LotDetails{Year: 2019},
			changes: 0,
			check:   func(d models.LotDetails) bool { return d.Year == 2018 },
		},
		{
			name:    "zeroBidIgnored",
			dst:     models.LotDetails{CurrentBid: 300},
			src:     models.LotDetails{},
			changes: 0,
			check:   func(d models.LotDetails) bool { return d.CurrentBid == 300 },
		},
		{
			name:    "highlightsFilledOnce",
			dst:     models.LotDetails{Highlights: []string{"Run and Drive"}},
			src:     models.LotDetails{Highlights: []string{"Enhanced Vehicles"}},
			changes: 0,
			check:   func(d models.LotDetails) bool { return len(d.Highlights) == 1 && d.Highlights[0] == "Run and Drive" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.dst
			got := mergeDetails(&dst, &tt.src, fixedNow)
			if got != tt.changes {
				t.Fatalf("expected %d changes, got %d", tt.changes, got)
			}
			if !tt.check(dst) {
				t.Fatalf("unexpected details %+v", dst)
			}
		})
	}
}
