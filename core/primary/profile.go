package primary

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Profile describes how one entity type is stored in Primary.
type Profile struct {
	// Collection is the collection name.
	Collection string
	// IDField is the document field holding the business id. Defaults to "_id".
	IDField string
	// ObjectIDs converts hex ids to ObjectIDs in filters on IDField.
	ObjectIDs bool
	// TenantField holds the tenant id. Defaults to "accountId".
	TenantField string
	// CreatedField holds the creation time in epoch millis. Defaults to "createdAt".
	CreatedField string
	// StatusField holds the lifecycle status; empty for entities without one.
	StatusField string
	// Filter is ANDed into every window and status query, e.g. to drop child records.
	Filter bson.D
	// Fields maps mirror columns to document paths (dot separated).
	Fields map[string]string
}

func (p Profile) withDefaults() Profile {
	if p.IDField == "" {
		p.IDField = "_id"
	}
	if p.TenantField == "" {
		p.TenantField = "accountId"
	}
	if p.CreatedField == "" {
		p.CreatedField = "createdAt"
	}
	return p
}

// Validate checks that the profile can be used.
func (p Profile) Validate() error {
	if p.Collection == "" {
		return errors.New("primary profile: collection is required")
	}
	return nil
}
