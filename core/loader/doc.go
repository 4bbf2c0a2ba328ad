// Package loader provides the feature loading system.
//
// Each feature implements Feature and registers its routes in Load. The Manager
// keeps the registry and loads every enabled feature on startup.
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
package loader
