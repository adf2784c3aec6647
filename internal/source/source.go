// Package source reads the raw snapshot from the external raw-data store.
package source

import (
	"context"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

// Source delivers a complete, read-only raw snapshot.
type Source interface {
	Load(ctx context.Context) (*model.Snapshot, error)
}

// Dataset names shared by the CSV and Postgres readers.
const (
	DatasetGeolocation  = "geolocation"
	DatasetCustomers    = "customers"
	DatasetOrders       = "orders"
	DatasetOrderItems   = "order_items"
	DatasetPayments     = "order_payments"
	DatasetReviews      = "order_reviews"
	DatasetProducts     = "products"
	DatasetSellers      = "sellers"
	DatasetTranslations = "category_translation"
)
