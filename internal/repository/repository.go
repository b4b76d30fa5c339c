package repository

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/account-service/pkg/database"
)

// Store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User UserRepository
}

// Backends carries the connections a driver may need. Unused ones may be nil.
type Backends struct {
	Mongo    *database.Mongo
	Postgres *database.Postgres
}

// NewRepositories creates all repositories for the given store driver
func NewRepositories(ctx context.Context, driver string, backends Backends) (*Repositories, error) {
	switch driver {
	case DriverMongo:
		if backends.Mongo == nil {
			return nil, fmt.Errorf("mongo store selected but no mongo connection")
		}
		users, err := NewMongoUserRepository(ctx, backends.Mongo)
		if err != nil {
			return nil, err
		}
		return &Repositories{User: users}, nil
	case DriverPostgres:
		if backends.Postgres == nil {
			return nil, fmt.Errorf("postgres store selected but no postgres connection")
		}
		return &Repositories{User: NewPostgresUserRepository(backends.Postgres)}, nil
	case DriverMemory:
		return &Repositories{User: NewMemoryUserRepository()}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
