// Package mongo stores transactions and users as MongoDB documents, one
// collection each, keyed by (username, id) and username respectively.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"ecobud/internal/core"
	"ecobud/internal/storage"
)

const (
	TransactionsCollection = "transactions"
	UsersCollection        = "users"
)

type Store struct {
	client       *mongo.Client
	transactions *mongo.Collection
	users        *mongo.Collection
}

type userDoc struct {
	Username     string   `bson:"username"`
	Email        string   `bson:"email"`
	PasswordHash string   `bson:"password"`
	TinkUserID   string   `bson:"tink_user_id"`
	Credentials  []string `bson:"credentials"`
}

// Connect dials uri, verifies the connection and ensures indexes on database
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewStore(client, database)
	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing client
func NewStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:       client,
		transactions: db.Collection(TransactionsCollection),
		users:        db.Collection(UsersCollection),
	}
}

// EnsureIndexes creates the unique keys and the query indexes
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("username_id"),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}, {Key: "ignore", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("listing"),
		},
		{
			Keys: bson.D{
				{Key: "username", Value: 1},
				{Key: "ecoData.oneOff", Value: 1},
				{Key: "ecoData.startDate", Value: 1},
				{Key: "ecoData.endDate", Value: 1},
			},
			Options: options.Index().SetName("effective"),
		},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username"),
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func keyFilter(username, id string) bson.D {
	return bson.D{{Key: "username", Value: username}, {Key: "id", Value: id}}
}

func listFilter(username string, opts storage.ListOptions) bson.D {
	filter := bson.D{{Key: "username", Value: username}}
	if opts.ExcludeIgnored {
		filter = append(filter, bson.E{Key: "ignore", Value: bson.D{{Key: "$ne", Value: true}}})
	}
	return filter
}

func listOptions(opts storage.ListOptions) *options.FindOptions {
	direction := 1
	if opts.SortByDateDesc {
		direction = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: "date", Value: direction}, {Key: "id", Value: 1}}).
		SetLimit(int64(opts.EffectiveLimit()))
}

func effectiveFilter(username string, start, end core.Date) bson.D {
	from, to := start.String(), end.String()
	return bson.D{
		{Key: "username", Value: username},
		{Key: "$or", Value: bson.A{
			bson.D{
				{Key: "ecoData.oneOff", Value: true},
				{Key: "date", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}},
			},
			bson.D{
				{Key: "ecoData.oneOff", Value: false},
				{Key: "ecoData.startDate", Value: bson.D{{Key: "$lte", Value: to}}},
				{Key: "ecoData.endDate", Value: bson.D{{Key: "$gte", Value: from}}},
			},
			// documents without ecoData are single-day on their date
			bson.D{
				{Key: "ecoData", Value: bson.D{{Key: "$exists", Value: false}}},
				{Key: "date", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}},
			},
		}},
	}
}

// toBSON converts the JSON form of v into a BSON document
func toBSON(v any) (bson.D, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fromBSON decodes a stored document through the strict JSON decoder
func fromBSON(raw bson.Raw) (core.Transaction, error) {
	body, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("convert stored document: %w", err)
	}
	return core.DecodeStored(body)
}

func (s *Store) FindByID(ctx context.Context, username, id string) (core.Transaction, error) {
	raw, err := s.transactions.FindOne(ctx, keyFilter(username, id)).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, &core.NotFoundError{Username: username, ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find transaction %s: %w", id, err)
	}
	return fromBSON(raw)
}

func (s *Store) FindMany(ctx context.Context, username string, opts storage.ListOptions) ([]core.Transaction, error) {
	cur, err := s.transactions.Find(ctx, listFilter(username, opts), listOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collect(ctx, cur)
}

func (s *Store) FindEffective(ctx context.Context, username string, start, end core.Date) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "id", Value: 1}})
	cur, err := s.transactions.Find(ctx, effectiveFilter(username, start, end), opts)
	if err != nil {
		return nil, fmt.Errorf("list effective transactions: %w", err)
	}
	return collect(ctx, cur)
}

func collect(ctx context.Context, cur *mongo.Cursor) ([]core.Transaction, error) {
	defer cur.Close(ctx)

	var txs []core.Transaction
	for cur.Next(ctx) {
		t, err := fromBSON(cur.Current)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) Insert(ctx context.Context, t core.Transaction) error {
	doc, err := toBSON(t)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if _, err := s.transactions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) UpsertMerged(ctx context.Context, username, id string, tink core.TinkData, desc core.Description) error {
	tinkDoc, err := toBSON(tink)
	if err != nil {
		return fmt.Errorf("encode tink data: %w", err)
	}
	descDoc, err := toBSON(desc)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "tinkData", Value: tinkDoc},
		{Key: "description", Value: descDoc},
	}}}
	res, err := s.transactions.UpdateOne(ctx, keyFilter(username, id), update)
	if err != nil {
		return fmt.Errorf("merge transaction %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return &core.NotFoundError{Username: username, ID: id}
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, username, id string, t core.Transaction) error {
	doc, err := toBSON(t)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	res, err := s.transactions.ReplaceOne(ctx, keyFilter(username, id), doc)
	if err != nil {
		return fmt.Errorf("replace transaction %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return &core.NotFoundError{Username: username, ID: id}
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (core.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.User{}, storage.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user %s: %w", username, err)
	}
	if doc.Credentials == nil {
		doc.Credentials = []string{}
	}
	return core.User(doc), nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) error {
	if u.Credentials == nil {
		u.Credentials = []string{}
	}
	if _, err := s.users.InsertOne(ctx, userDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

func (s *Store) AddCredential(ctx context.Context, username, credentialID string) error {
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "credentials", Value: credentialID}}}}
	res, err := s.users.UpdateOne(ctx, bson.D{{Key: "username", Value: username}}, update)
	if err != nil {
		return fmt.Errorf("add credential for %s: %w", username, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
