// Package storage defines interfaces and implementations for analysis
// result storage backends.
package storage

import (
	"context"
	"sync"

	"github.com/zaphd/plasmaspec/internal/types"
)

// Engine is the interface every result storage backend implements.  The
// returned channel receives flattened result rows from the distributor.
type Engine interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.ResultRow
}
