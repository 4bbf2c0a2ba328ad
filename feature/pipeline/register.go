package pipeline

import (
	"context"
	"fmt"

	"drift-reconciler/core/mirror"
	"drift-reconciler/core/primary"
	"drift-reconciler/core/reconcile"
	"drift-reconciler/core/scheduler"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CollectionFunc resolves a Primary collection by name.
type CollectionFunc func(name string) primary.Collection

// MongoCollections resolves collections from a MongoDB database.
func MongoCollections(db *mongo.Database) CollectionFunc {
	return func(name string) primary.Collection {
		return db.Collection(name)
	}
}

// Options narrows and checks the registration.
type Options struct {
	// Only registers the listed entity types; empty means all.
	Only []string
	// Verify checks that every mirror table carries the profile columns.
	Verify bool
}

// Register builds the adapters of every entity and registers them on engine.
// The returned source discovers tenants across the registered collections.
func Register(ctx context.Context, engine *reconcile.Engine, collections CollectionFunc, db *gorm.DB, opts Options, logger *zap.Logger) (scheduler.TenantSource, error) {
	selected, err := selectEntities(opts.Only)
	if err != nil {
		return nil, err
	}

	sources := make(scheduler.Union, 0, len(selected))
	for _, entity := range selected {
		p, err := primary.NewMongoAdapter(collections(entity.Primary.Collection), entity.Primary)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entity.Name, err)
		}
		m, err := mirror.NewSQLAdapter(db, entity.Mirror)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entity.Name, err)
		}
		if opts.Verify {
			if err := m.Verify(ctx); err != nil {
				return nil, fmt.Errorf("%s: %w", entity.Name, err)
			}
		}

		engine.Register(entity.Name, p, m)
		sources = append(sources, p)
		logger.Info("Registered entity",
			zap.String("entity", entity.Name),
			zap.String("collection", entity.Primary.Collection),
			zap.String("table", entity.Mirror.Table))
	}
	return sources, nil
}

func selectEntities(only []string) ([]Entity, error) {
	if len(only) == 0 {
		return Entities(), nil
	}
	out := make([]Entity, 0, len(only))
	for _, name := range only {
		e, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", reconcile.ErrUnknownEntity, name)
		}
		out = append(out, e)
	}
	return out, nil
}
