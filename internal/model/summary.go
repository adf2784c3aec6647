package model

import "time"

// RunSummary records row counts and data-quality counters of one build.
// Every flagged or discarded row is counted here so losses stay visible.
type RunSummary struct {
	RunID        string         `yaml:"run_id" json:"run_id"`
	SnapshotDate string         `yaml:"snapshot_date" json:"snapshot_date"`
	StartedAt    time.Time      `yaml:"started_at" json:"started_at"`
	Elapsed      time.Duration  `yaml:"elapsed" json:"elapsed"`
	RawCounts    map[string]int `yaml:"raw_counts" json:"raw_counts"`
	TableCounts  map[string]int `yaml:"table_counts" json:"table_counts"`

	AmbiguousZipPrefixes       int `yaml:"ambiguous_zip_prefixes" json:"ambiguous_zip_prefixes"`
	MergedCustomerIDs          int `yaml:"merged_customer_ids" json:"merged_customer_ids"`
	UnmatchedSellerGeo         int `yaml:"unmatched_seller_geo" json:"unmatched_seller_geo"`
	InvalidWeightProducts      int `yaml:"invalid_weight_products" json:"invalid_weight_products"`
	InvalidDimensionProducts   int `yaml:"invalid_dimension_products" json:"invalid_dimension_products"`
	MissingTranslationProducts int `yaml:"missing_translation_products" json:"missing_translation_products"`
	DensityOutlierProducts     int `yaml:"density_outlier_products" json:"density_outlier_products"`
	DuplicateReviewsDropped    int `yaml:"duplicate_reviews_dropped" json:"duplicate_reviews_dropped"`
	LowQualityReviews          int `yaml:"low_quality_reviews" json:"low_quality_reviews"`
	InvalidPriceRows           int `yaml:"invalid_price_rows" json:"invalid_price_rows"`
	InvalidFreightRows         int `yaml:"invalid_freight_rows" json:"invalid_freight_rows"`
	InvalidPaymentRows         int `yaml:"invalid_payment_rows" json:"invalid_payment_rows"`
	OrdersWithoutItems         int `yaml:"orders_without_items" json:"orders_without_items"`
	OrdersWithoutPayments      int `yaml:"orders_without_payments" json:"orders_without_payments"`
	ChronologyViolations       int `yaml:"chronology_violations" json:"chronology_violations"`
	DelayedOrders              int `yaml:"delayed_orders" json:"delayed_orders"`
	CanceledOrUnavailable      int `yaml:"canceled_or_unavailable" json:"canceled_or_unavailable"`

	Segments map[string]int `yaml:"segments" json:"segments"`
}

// RawCounts returns the row count of every raw input set.
func (s *Snapshot) RawCounts() map[string]int {
	return map[string]int{
		"geolocation":  len(s.Geolocation),
		"customers":    len(s.Customers),
		"orders":       len(s.Orders),
		"order_items":  len(s.OrderItems),
		"payments":     len(s.Payments),
		"reviews":      len(s.Reviews),
		"products":     len(s.Products),
		"sellers":      len(s.Sellers),
		"translations": len(s.Translations),
	}
}
