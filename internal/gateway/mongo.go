package gateway

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Gateway over a MongoDB database. Record ids are ULID
// strings stored as _id. Live queries are fanned out by the in-process hub:
// writes made through other processes are not observed, which is acceptable
// for the single-writer deployments this service targets.
type Mongo struct {
	db  *mongo.Database
	hub *watchHub
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db, hub: newWatchHub()}
}

func (g *Mongo) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := g.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, &StoreError{Op: "get", Collection: collection, Err: err}
	}
	return fromBson(raw), nil
}

func (g *Mongo) Create(ctx context.Context, collection string, doc Document) (string, error) {
	id := ulid.Make().String()
	if err := g.Put(ctx, collection, id, doc, false); err != nil {
		return "", err
	}
	return id, nil
}

func (g *Mongo) Put(ctx context.Context, collection, id string, doc Document, merge bool) error {
	body := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "id" {
			continue
		}
		body[k] = v
	}
	col := g.db.Collection(collection)
	var err error
	if merge {
		_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": body}, options.Update().SetUpsert(true))
	} else {
		_, err = col.ReplaceOne(ctx, bson.M{"_id": id}, body, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return &StoreError{Op: "put", Collection: collection, Err: err}
	}
	g.hub.notify(ctx, collection, g.Query)
	return nil
}

func (g *Mongo) Query(ctx context.Context, collection string, filters []Filter, order *Ordering) ([]Document, error) {
	filter := bson.M{}
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			vs, _ := f.Value.([]any)
			filter[f.Field] = bson.M{"$in": vs}
		default:
			filter[f.Field] = f.Value
		}
	}
	opts := options.Find()
	if order != nil {
		dir := 1
		if order.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: order.Field, Value: dir}})
	}
	cur, err := g.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, &StoreError{Op: "query", Collection: collection, Err: err}
	}
	defer cur.Close(ctx)
	out := []Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, &StoreError{Op: "query", Collection: collection, Err: err}
		}
		out = append(out, fromBson(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, &StoreError{Op: "query", Collection: collection, Err: err}
	}
	return out, nil
}

func (g *Mongo) Subscribe(ctx context.Context, collection string, filters []Filter, order *Ordering, onChange func([]Document)) (Unsubscribe, error) {
	initial, err := g.Query(ctx, collection, filters, order)
	if err != nil {
		return nil, err
	}
	onChange(initial)
	return g.hub.register(&liveQuery{collection: collection, filters: filters, order: order, onChange: onChange}, initial), nil
}

// fromBson maps a decoded BSON document to the gateway Document shape:
// _id becomes "id", BSON date/array wrappers become native Go values.
func fromBson(raw bson.M) Document {
	out := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			if s, ok := v.(string); ok {
				out["id"] = s
			} else {
				out["id"] = v
			}
			continue
		}
		out[k] = fromBsonValue(v)
	}
	return out
}

func fromBsonValue(v any) any {
	switch vv := v.(type) {
	case primitive.DateTime:
		return vv.Time().UTC()
	case primitive.A:
		cp := make([]any, len(vv))
		for i, e := range vv {
			cp[i] = fromBsonValue(e)
		}
		return cp
	case bson.M:
		return map[string]any(fromBson(vv))
	}
	return v
}
