package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agentic-research/monfs/api"
)

const connectTimeout = 10 * time.Second

// MongoStore reads and writes the flat document shape
// {_id, _monfs: {type, enabled}, <field>: <value>...} in one collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// MongoURI turns a bare host ("localhost", "db1:27017") into a connection
// URI. Values that already carry a mongodb scheme are returned unchanged.
func MongoURI(host string) string {
	if strings.HasPrefix(host, "mongodb://") || strings.HasPrefix(host, "mongodb+srv://") {
		return host
	}
	return "mongodb://" + host
}

// OpenMongo connects and pings the server so an unreachable store fails at
// startup rather than on the first filesystem callback.
func OpenMongo(ctx context.Context, host, db, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(MongoURI(host)))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb %s: %w", host, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb %s: %w", host, err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(db).Collection(collection),
	}, nil
}

// idFilter matches ObjectID identifiers and, for documents written by other
// tools, plain string identifiers.
func idFilter(id string) bson.D {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "_id", Value: oid}},
			bson.D{{Key: "_id", Value: id}},
		}}}
	}
	return bson.D{{Key: "_id", Value: id}}
}

// FilterDoc renders f as a MongoDB query document.
func FilterDoc(f Filter) bson.D {
	q := bson.D{{Key: api.MetaKey + ".type", Value: f.Type}}
	if f.Template {
		return append(q, bson.E{Key: api.RegisterKey, Value: api.TemplateRegister})
	}
	return append(q, bson.E{Key: api.RegisterKey, Value: bson.D{{Key: "$ne", Value: api.TemplateRegister}}})
}

func (s *MongoStore) FindOne(ctx context.Context, id string) (*api.Record, error) {
	var doc bson.D
	err := s.coll.FindOne(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", id, err)
	}
	return FromBSON(doc)
}

func (s *MongoStore) Find(ctx context.Context, f Filter) ([]*api.Record, error) {
	return s.find(ctx, FilterDoc(f))
}

func (s *MongoStore) All(ctx context.Context) ([]*api.Record, error) {
	return s.find(ctx, bson.D{})
}

func (s *MongoStore) find(ctx context.Context, q bson.D) ([]*api.Record, error) {
	cur, err := s.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.coll.Name(), err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*api.Record
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		rec, err := FromBSON(doc)
		if err != nil {
			// Documents without monfs metadata belong to someone else.
			continue
		}
		out = append(out, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.coll.Name(), err)
	}
	return out, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec *api.Record) (string, error) {
	if err := checkInsert(rec); err != nil {
		return "", err
	}
	res, err := s.coll.InsertOne(ctx, ToBSON(rec))
	if mongo.IsDuplicateKeyError(err) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", s.coll.Name(), err)
	}
	return idString(res.InsertedID), nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// ToBSON renders rec in the flat document shape. A hex ObjectID string is
// stored as an ObjectID; an empty ID is left for the server to assign.
func ToBSON(rec *api.Record) bson.D {
	doc := make(bson.D, 0, rec.Len()+2)
	switch oid, err := primitive.ObjectIDFromHex(rec.ID); {
	case rec.ID == "":
		doc = append(doc, bson.E{Key: "_id", Value: primitive.NewObjectID()})
	case err == nil:
		doc = append(doc, bson.E{Key: "_id", Value: oid})
	default:
		doc = append(doc, bson.E{Key: "_id", Value: rec.ID})
	}
	doc = append(doc, bson.E{Key: api.MetaKey, Value: bson.D{
		{Key: "type", Value: rec.Meta.Type},
		{Key: "enabled", Value: rec.Meta.Enabled},
	}})
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		doc = append(doc, bson.E{Key: k, Value: v})
	}
	return doc
}

// FromBSON converts a stored document back into a record, keeping the
// document's field order.
func FromBSON(doc bson.D) (*api.Record, error) {
	var (
		rec  *api.Record
		id   string
		meta bool
	)
	rec = api.NewRecord("")
	for _, e := range doc {
		switch e.Key {
		case "_id":
			id = idString(e.Value)
		case api.MetaKey:
			meta = true
			for _, m := range asDoc(e.Value) {
				switch m.Key {
				case "type":
					rec.Meta.Type, _ = m.Value.(string)
				case "enabled":
					if b, ok := m.Value.(bool); ok {
						rec.Meta.Enabled = b
					}
				}
			}
		default:
			switch v := e.Value.(type) {
			case string:
				rec.Set(e.Key, v)
			case nil:
				rec.Set(e.Key, "")
			default:
				rec.Set(e.Key, fmt.Sprint(v))
			}
		}
	}
	if !meta || rec.Meta.Type == "" {
		return nil, fmt.Errorf("document %s has no %s.type", id, api.MetaKey)
	}
	rec.ID = id
	return rec, nil
}

func asDoc(v any) bson.D {
	switch d := v.(type) {
	case bson.D:
		return d
	case bson.M:
		out := make(bson.D, 0, len(d))
		for k, v := range d {
			out = append(out, bson.E{Key: k, Value: v})
		}
		return out
	case map[string]any:
		return asDoc(bson.M(d))
	}
	return nil
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

var _ Store = (*MongoStore)(nil)
