// Package mongostore is the MongoDB implementation of store.Store.
// Each calendar month is one document in the calendarmonths collection with its auctions embedded.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"profitradar/internal/models"
	"profitradar/internal/store"
)

const (
	DefaultDatabase    = "profit_radar"
	CalendarCollection = "calendarmonths"
	MetadataCollection = "metadata"
	connectTimeout     = 10 * time.Second
)

type Store struct {
	client   *mongo.Client
	calendar *mongo.Collection
	metadata *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials uri and returns a store on dbName
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	if dbName == "" {
		dbName = DefaultDatabase
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := New(client.Database(dbName))
	s.client = client
	return s, nil
}

// New wraps an existing database handle; Close will not disconnect its client
func New(db *mongo.Database) *Store {
	return &Store{
		calendar: db.Collection(CalendarCollection),
		metadata: db.Collection(MetadataCollection),
	}
}

// EnsureIndexes creates the (month, year) key and the sales link lookup index
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.calendar.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "month", Value: 1}, {Key: "year", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("month_year"),
		},
		{
			Keys:    bson.D{{Key: "auctions.viewSalesLink", Value: 1}},
			Options: options.Index().SetName("auctions_view_sales_link"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) UpsertCalendarMonth(ctx context.Context, month *models.CalendarMonth) (store.UpdateResult, error) {
	auctions := month.Auctions
	if auctions == nil {
		auctions = []models.Auction{}
	}
	now := time.Now().UTC()

	filter := bson.M{"month": month.Month, "year": month.Year}
	update := bson.M{
		"$set": bson.M{
			"scrapedAt":     month.ScrapedAt,
			"totalAuctions": month.TotalAuctions,
			"auctions":      auctions,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	res, err := s.calendar.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to upsert calendar month: %w", err)
	}
	return toUpdateResult(res), nil
}

func (s *Store) GetCalendarMonth(ctx context.Context, month string, year int) (*models.CalendarMonth, error) {
	return s.findOne(ctx, bson.M{"month": month, "year": year})
}

// linkSort picks the most recently updated month when several hold the same link
var linkSort = bson.D{{Key: "updatedAt", Value: -1}}

func (s *Store) FindMonthByAuctionLink(ctx context.Context, viewSalesLink string) (*models.CalendarMonth, error) {
	return s.findOne(ctx, bson.M{"auctions.viewSalesLink": viewSalesLink}, options.FindOne().SetSort(linkSort))
}

// ReplaceSaleList updates the matched array element in place with the positional operator.
// The target document is resolved with the same sort as FindMonthByAuctionLink.
func (s *Store) ReplaceSaleList(ctx context.Context, viewSalesLink string, saleList []models.SaleListEntry, numberOnSale int) (store.UpdateResult, error) {
	if saleList == nil {
		saleList = []models.SaleListEntry{}
	}

	var target struct {
		ID interface{} `bson:"_id"`
	}
	opts := options.FindOne().SetSort(linkSort).SetProjection(bson.M{"_id": 1})
	err := s.calendar.FindOne(ctx, bson.M{"auctions.viewSalesLink": viewSalesLink}, opts).Decode(&target)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.UpdateResult{}, nil
	}
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to resolve calendar month for %s: %w", viewSalesLink, err)
	}

	filter := bson.M{"_id": target.ID, "auctions.viewSalesLink": viewSalesLink}
	update := bson.M{
		"$set": bson.M{
			"auctions.$.saleList":     saleList,
			"auctions.$.numberOnSale": numberOnSale,
			"updatedAt":               time.Now().UTC(),
		},
	}

	res, err := s.calendar.UpdateOne(ctx, filter, update)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to update sale list: %w", err)
	}
	return toUpdateResult(res), nil
}

func (s *Store) ListCalendarMonths(ctx context.Context) ([]models.CalendarSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"month": 1, "year": 1, "scrapedAt": 1, "totalAuctions": 1}).
		SetSort(bson.D{{Key: "year", Value: -1}})

	cursor, err := s.calendar.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar months: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []models.CalendarSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode calendar months: %w", err)
	}
	models.SortSummaries(summaries)
	return summaries, nil
}

// MigrationStatus reads a value from the metadata collection; unknown keys read as ""
func (s *Store) MigrationStatus(ctx context.Context, key string) (string, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.metadata.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *Store) SetMigrationStatus(ctx context.Context, key, value string) error {
	_, err := s.metadata.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update metadata %s: %w", key, err)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.CalendarMonth, error) {
	var month models.CalendarMonth
	err := s.calendar.FindOne(ctx, filter, opts...).Decode(&month)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find calendar month: %w", err)
	}
	return &month, nil
}

func toUpdateResult(res *mongo.UpdateResult) store.UpdateResult {
	if res == nil {
		return store.UpdateResult{}
	}
	return store.UpdateResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}
}
