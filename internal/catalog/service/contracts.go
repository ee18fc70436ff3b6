//go:generate mockgen -source=contracts.go -destination=mocks/mocks.go -package=mocks Searcher

package service

import (
	"context"

	"sbname/internal/catalog/models"
)

// Searcher queries the remote catalog. Implementations make exactly one
// remote call per Search and return a non-nil error only for transport failures.
type Searcher interface {
	Search(ctx context.Context, term string) ([]models.Product, error)
}

// NameCache is the lookup cache as seen by the resolver.
type NameCache interface {
	HasSupport() bool
	Get(code string) (models.CachedRecord, error)
	Set(code, name, extendedName string)
	Persist(ctx context.Context) error
}
