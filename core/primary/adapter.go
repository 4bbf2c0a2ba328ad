package primary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAdapter is a read-only reconcile.Primary over one collection.
type MongoAdapter struct {
	coll    Collection
	profile Profile
}

var _ reconcile.Primary = (*MongoAdapter)(nil)

// NewMongoAdapter creates an adapter reading coll as described by profile.
func NewMongoAdapter(coll Collection, profile Profile) (*MongoAdapter, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &MongoAdapter{coll: coll, profile: profile.withDefaults()}, nil
}

// Profile returns the effective profile, defaults applied.
func (a *MongoAdapter) Profile() Profile {
	return a.profile
}

func (a *MongoAdapter) idValue(id string) interface{} {
	if a.profile.ObjectIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			return oid
		}
	}
	return id
}

// scoped combines the tenant clause, the profile filter and extra clauses.
func (a *MongoAdapter) scoped(tenantID string, extra ...bson.E) bson.D {
	filter := bson.D{{Key: a.profile.TenantField, Value: tenantID}}
	filter = append(filter, a.profile.Filter...)
	return append(filter, extra...)
}

func (a *MongoAdapter) windowFilter(tenantID string, w reconcile.Window) bson.D {
	return a.scoped(tenantID, bson.E{Key: a.profile.CreatedField, Value: bson.D{
		{Key: "$gte", Value: w.Start},
		{Key: "$lte", Value: w.End},
	}})
}

func (a *MongoAdapter) IDsInWindow(ctx context.Context, tenantID string, w reconcile.Window) (reconcile.IDSet, error) {
	opts := options.Find().SetProjection(bson.D{{Key: a.profile.IDField, Value: 1}})
	cur, err := a.coll.Find(ctx, a.windowFilter(tenantID, w), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", a.profile.Collection, err)
	}
	defer cur.Close(ctx)

	ids := reconcile.IDSet{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", a.profile.Collection, err)
		}
		if id := stringValue(lookup(doc, a.profile.IDField)); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", a.profile.Collection, err)
	}
	return ids, nil
}

func (a *MongoAdapter) CountInWindow(ctx context.Context, tenantID string, w reconcile.Window) (int64, error) {
	n, err := a.coll.CountDocuments(ctx, a.windowFilter(tenantID, w))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", a.profile.Collection, err)
	}
	return n, nil
}

func (a *MongoAdapter) Fetch(ctx context.Context, tenantID, id string) (reconcile.Row, error) {
	filter := bson.D{
		{Key: a.profile.TenantField, Value: tenantID},
		{Key: a.profile.IDField, Value: a.idValue(id)},
	}

	var doc bson.M
	err := a.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return reconcile.Row{}, fmt.Errorf("%s %s: %w", a.profile.Collection, id, reconcile.ErrRowNotFound)
	}
	if err != nil {
		return reconcile.Row{}, fmt.Errorf("failed to fetch %s %s: %w", a.profile.Collection, id, err)
	}
	return a.toRow(tenantID, id, doc), nil
}

func (a *MongoAdapter) Statuses(ctx context.Context, tenantID string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if a.profile.StatusField == "" || len(ids) == 0 {
		return out, nil
	}

	in := make(bson.A, 0, len(ids))
	for _, id := range ids {
		in = append(in, a.idValue(id))
	}
	filter := a.scoped(tenantID, bson.E{Key: a.profile.IDField, Value: bson.D{{Key: "$in", Value: in}}})
	opts := options.Find().SetProjection(bson.D{
		{Key: a.profile.IDField, Value: 1},
		{Key: a.profile.StatusField, Value: 1},
	})

	cur, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s statuses: %w", a.profile.Collection, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", a.profile.Collection, err)
		}
		out[stringValue(lookup(doc, a.profile.IDField))] = stringValue(lookup(doc, a.profile.StatusField))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", a.profile.Collection, err)
	}
	return out, nil
}

// Tenants lists every tenant with at least one document.
func (a *MongoAdapter) Tenants(ctx context.Context) ([]string, error) {
	values, err := a.coll.Distinct(ctx, a.profile.TenantField, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants of %s: %w", a.profile.Collection, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := stringValue(v); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (a *MongoAdapter) toRow(tenantID, id string, doc bson.M) reconcile.Row {
	row := reconcile.Row{
		ID:        id,
		TenantID:  tenantID,
		CreatedAt: millis(lookup(doc, a.profile.CreatedField)),
		Fields:    make(map[string]any, len(a.profile.Fields)),
	}
	if a.profile.StatusField != "" {
		row.Status = stringValue(lookup(doc, a.profile.StatusField))
	}
	for column, path := range a.profile.Fields {
		row.Fields[column] = normalize(lookup(doc, path))
	}
	return row
}

// lookup resolves a dot separated path through nested documents.
func lookup(doc interface{}, path string) interface{} {
	cur := doc
	for _, key := range strings.Split(path, ".") {
		switch d := cur.(type) {
		case bson.M:
			cur = d[key]
		case bson.D:
			cur = nil
			for _, e := range d {
				if e.Key == key {
					cur = e.Value
					break
				}
			}
		case map[string]interface{}:
			cur = d[key]
		default:
			return nil
		}
	}
	return cur
}

func stringValue(v interface{}) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return utils.ToString(v)
}

func millis(v interface{}) int64 {
	switch t := v.(type) {
	case primitive.DateTime:
		return int64(t)
	case time.Time:
		return t.UnixMilli()
	default:
		return utils.ToInt64(t)
	}
}

// normalize converts BSON specific scalars into values SQL drivers accept.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return int64(t)
	case int32:
		return int64(t)
	case bson.A, bson.M, bson.D:
		b, err := bson.MarshalExtJSON(bson.M{"v": t}, false, false)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return t
	}
}
