package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
)

// MultiLoader fans a batch out to several loaders in order.
type MultiLoader []Loader

// LoadBatch calls every loader and joins their errors.
func (m MultiLoader) LoadBatch(ctx context.Context, reports []domain.TurbineReport) error {
	var errs []error
	for _, l := range m {
		if err := l.LoadBatch(ctx, reports); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
