package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"coffeeapi/internal/database"
	"coffeeapi/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config describes the MongoDB deployment holding the catalog
type Config struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds every operation; zero means 10s
	Timeout time.Duration
}

// MongoStore keeps one document per coffee. Documents carry the integer id
// in legacyId next to their ObjectID.
type MongoStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration

	// writes are serialized so max(legacyId)+1 cannot be handed out twice
	writeMu sync.Mutex
}

type coffeeDocument struct {
	ObjectID    primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Image       string             `bson:"image"`
	Description string             `bson:"description"`
	LegacyID    int                `bson:"legacyId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *coffeeDocument) toModel() *models.Coffee {
	return &models.Coffee{
		ID:          d.LegacyID,
		Name:        d.Name,
		Image:       d.Image,
		Description: d.Description,
		ObjectID:    d.ObjectID.Hex(),
	}
}

// NewMongoStore connects and pings the deployment
func NewMongoStore(ctx context.Context, cfg Config) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo URI is empty")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, errors.New("mongo database and collection are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client:  client,
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: timeout,
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

var catalogOrder = bson.D{{Key: "legacyId", Value: 1}, {Key: "_id", Value: 1}}

// idFilter tries the ObjectID form first and falls back to legacyId
func idFilter(id string) (bson.D, bool) {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: "_id", Value: oid}}, true
	}
	n, err := database.ParseID(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "legacyId", Value: n}}, true
}

func nameFilter(name string) bson.D {
	return bson.D{{Key: "name", Value: primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(name) + "$",
		Options: "i",
	}}}
}

func (s *MongoStore) find(ctx context.Context, op string, filter bson.D) ([]*models.Coffee, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(catalogOrder))
	if err != nil {
		return nil, database.BackendError(op, err)
	}
	defer cur.Close(ctx)

	coffees := make([]*models.Coffee, 0)
	for cur.Next(ctx) {
		var doc coffeeDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, database.BackendError(op, err)
		}
		coffees = append(coffees, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, database.BackendError(op, err)
	}
	return coffees, nil
}

func (s *MongoStore) findOne(ctx context.Context, op string, filter bson.D) (*models.Coffee, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc coffeeDocument
	err := s.coll.FindOne(ctx, filter, options.FindOne().SetSort(catalogOrder)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, database.BackendError(op, err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListCoffees(ctx context.Context) ([]*models.Coffee, error) {
	return s.find(ctx, "list coffees", bson.D{})
}

func (s *MongoStore) GetCoffee(ctx context.Context, id string) (*models.Coffee, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, database.ErrNotFound
	}
	return s.findOne(ctx, "get coffee", filter)
}

func (s *MongoStore) GetCoffeeByName(ctx context.Context, name string) (*models.Coffee, error) {
	return s.findOne(ctx, "get coffee by name", nameFilter(name))
}

func (s *MongoStore) SearchCoffees(ctx context.Context, substr string) ([]*models.Coffee, error) {
	filter := bson.D{{Key: "description", Value: primitive.Regex{
		Pattern: regexp.QuoteMeta(substr),
		Options: "i",
	}}}
	return s.find(ctx, "search coffees", filter)
}

func (s *MongoStore) CountCoffees(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, database.BackendError("count coffees", err)
	}
	return int(n), nil
}

func (s *MongoStore) UpdateCoffee(ctx context.Context, id string, req *models.UpdateCoffeeRequest) (*models.Coffee, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, database.ErrNotFound
	}

	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if req.Name != "" {
		set = append(set, bson.E{Key: "name", Value: req.Name})
	}
	if req.Description != "" {
		set = append(set, bson.E{Key: "description", Value: req.Description})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc coffeeDocument
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, database.BackendError("update coffee", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CreateCoffee(ctx context.Context, req *models.CreateCoffeeRequest) (*models.Coffee, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.findOne(ctx, "check coffee name", nameFilter(req.Name)); err == nil {
		return nil, database.ErrConflict
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	next, err := s.nextLegacyID(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := coffeeDocument{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
		LegacyID:    next,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, database.BackendError("insert coffee", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ObjectID = oid
	}
	return doc.toModel(), nil
}

func (s *MongoStore) nextLegacyID(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc coffeeDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "legacyId", Value: -1}})
	err := s.coll.FindOne(ctx, bson.D{{Key: "legacyId", Value: bson.D{{Key: "$exists", Value: true}}}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 1, nil
		}
		return 0, database.BackendError("next coffee id", err)
	}
	return doc.LegacyID + 1, nil
}

func (s *MongoStore) ImportCoffees(ctx context.Context, coffees []*models.Coffee) error {
	if len(coffees) == 0 {
		return nil
	}
	if i := slices.Index(coffees, nil); i >= 0 {
		return fmt.Errorf("import coffees: entry %d is nil", i)
	}

	now := time.Now().UTC()
	docs := make([]any, 0, len(coffees))
	for _, c := range coffees {
		docs = append(docs, coffeeDocument{
			Name:        c.Name,
			Image:       c.Image,
			Description: c.Description,
			LegacyID:    c.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return database.BackendError("import coffees", err)
	}
	return nil
}
