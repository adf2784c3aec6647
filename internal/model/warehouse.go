package model

import (
	"strings"
	"time"
)

// Table names of the derived datasets.
const (
	TableGeolocation = "dim_geolocation"
	TableCustomers   = "dim_customers"
	TableProducts    = "dim_products"
	TableSellers     = "dim_sellers"
	TableReviews     = "order_reviews_dedup"
	TableItems       = "order_items_agg"
	TablePayments    = "order_payments_summary"
	TableOrders      = "orders_clean"
	TableCustomerRFM = "customer_rfm"
)

// StateSet is a sorted set of state codes. It encodes as a pipe-separated list.
type StateSet []string

// String joins the states with "|".
func (s StateSet) String() string {
	return strings.Join(s, "|")
}

// MarshalText implements encoding.TextMarshaler.
func (s StateSet) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StateSet) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*s = nil
		return nil
	}
	*s = strings.Split(string(b), "|")
	return nil
}

// GeoRecord is the representative location of one zip code prefix.
type GeoRecord struct {
	ZipPrefix     int      `csv:"zip_prefix"`
	City          string   `csv:"city"`
	Lat           float64  `csv:"lat"`
	Lng           float64  `csv:"lng"`
	States        StateSet `csv:"states"`
	SampleCount   int      `csv:"sample_count"`
	Ambiguous     bool     `csv:"ambiguous"`
	DominantState string   `csv:"dominant_state"`
}

// CanonicalCustomer is one real-world customer after collapsing raw ids.
type CanonicalCustomer struct {
	UniqueID            string   `csv:"customer_unique_id"`
	RepresentativeRawID string   `csv:"representative_raw_id"`
	ZipPrefix           string   `csv:"zip_prefix"`
	City                string   `csv:"city"`
	State               string   `csv:"state"`
	Lat                 *float64 `csv:"lat"`
	Lng                 *float64 `csv:"lng"`
	RawIDVariantCount   int      `csv:"raw_id_variant_count"`
}

// CanonicalProduct is a product with cleaned measurements and validity flags.
type CanonicalProduct struct {
	ProductID                  string   `csv:"product_id"`
	Category                   string   `csv:"category"`
	WeightG                    *float64 `csv:"weight_g"`
	LengthCm                   *float64 `csv:"length_cm"`
	HeightCm                   *float64 `csv:"height_cm"`
	WidthCm                    *float64 `csv:"width_cm"`
	VolumeCm3                  *float64 `csv:"volume_cm3"`
	Density                    *float64 `csv:"density"`
	WeightInvalid              bool     `csv:"weight_invalid"`
	DimInvalid                 bool     `csv:"dim_invalid"`
	CategoryMissingTranslation bool     `csv:"category_missing_translation"`
	DensityOutlier             bool     `csv:"density_outlier"`
}

// CanonicalSeller is a seller joined to its resolved geolocation.
type CanonicalSeller struct {
	SellerID     string   `csv:"seller_id"`
	ZipPrefix    string   `csv:"zip_prefix"`
	City         string   `csv:"city"`
	State        string   `csv:"state"`
	Lat          *float64 `csv:"lat"`
	Lng          *float64 `csv:"lng"`
	GeoMatched   bool     `csv:"geo_matched"`
	GeoAmbiguous bool     `csv:"geo_ambiguous"`
}

// DedupedReview is the surviving row of a review_id plus text quality flags.
type DedupedReview struct {
	ReviewID       string     `csv:"review_id"`
	OrderID        string     `csv:"order_id"`
	Score          int        `csv:"score"`
	CommentTitle   *string    `csv:"comment_title"`
	CommentMessage *string    `csv:"comment_message"`
	CreatedAt      *time.Time `csv:"created_at"`
	AnsweredAt     *time.Time `csv:"answered_at"`
	TextLength     int        `csv:"text_length"`
	HasText        bool       `csv:"has_text"`
	LowQuality     bool       `csv:"low_quality"`
	DuplicateCount int        `csv:"duplicate_count"`
}

// OrderItemAggregate summarizes the line items of one order.
type OrderItemAggregate struct {
	OrderID               string     `csv:"order_id"`
	ItemsCount            int        `csv:"items_count"`
	SumValidPrice         float64    `csv:"sum_valid_price"`
	SumValidFreight       float64    `csv:"sum_valid_freight"`
	InvalidPriceRows      int        `csv:"invalid_price_rows"`
	InvalidFreightRows    int        `csv:"invalid_freight_rows"`
	DistinctProducts      int        `csv:"distinct_products"`
	DistinctSellers       int        `csv:"distinct_sellers"`
	EarliestShippingLimit *time.Time `csv:"earliest_shipping_limit"`
	PrimaryCategory       *string    `csv:"primary_category"`
}

// PaymentAggregate summarizes the payment rows of one order.
type PaymentAggregate struct {
	OrderID                string  `csv:"order_id"`
	SumValidPayments       float64 `csv:"sum_valid_payments"`
	PrimaryPaymentType     *string `csv:"primary_payment_type"`
	MaxInstallments        *int    `csv:"max_installments"`
	PaymentRowCount        int     `csv:"payment_row_count"`
	InvalidPaymentRowCount int     `csv:"invalid_payment_row_count"`
}

// OrderFact is the canonical per-order record.
type OrderFact struct {
	OrderID                 string     `csv:"order_id"`
	CustomerID              string     `csv:"customer_id"`
	CustomerUniqueID        string     `csv:"customer_unique_id"`
	Status                  string     `csv:"status"`
	PurchasedAt             *time.Time `csv:"purchased_at"`
	ApprovedAt              *time.Time `csv:"approved_at"`
	DeliveredCarrierAt      *time.Time `csv:"delivered_carrier_at"`
	DeliveredCustomerAt     *time.Time `csv:"delivered_customer_at"`
	EstimatedDeliveryAt     *time.Time `csv:"estimated_delivery_at"`
	OrderDate               *time.Time `csv:"order_date"`
	ItemsCount              *int       `csv:"items_count"`
	SumValidPrice           *float64   `csv:"sum_valid_price"`
	SumValidFreight         *float64   `csv:"sum_valid_freight"`
	PrimaryCategory         *string    `csv:"primary_category"`
	SumValidPayments        *float64   `csv:"sum_valid_payments"`
	PrimaryPaymentType      *string    `csv:"primary_payment_type"`
	MaxInstallments         *int       `csv:"max_installments"`
	PaymentRowCount         *int       `csv:"payment_row_count"`
	OrderTotal              *float64   `csv:"order_total"`
	DaysToDelivery          *float64   `csv:"days_to_delivery"`
	CarrierToCustomerDays   *float64   `csv:"carrier_to_customer_days"`
	IsDelayed               *bool      `csv:"is_delayed"`
	ChronologyFlag          bool       `csv:"chronology_flag"`
	IsCanceledOrUnavailable bool       `csv:"is_canceled_or_unavailable"`
	PaymentCoverage         *float64   `csv:"payment_coverage"`
	ReviewScore             *int       `csv:"review_score"`
	HasReview               bool       `csv:"has_review"`
}

// CustomerRFM holds recency/frequency/monetary scores and the segment of one customer.
type CustomerRFM struct {
	CustomerUniqueID string    `csv:"customer_unique_id"`
	LastOrderDate    time.Time `csv:"last_order_date"`
	RecencyDays      int       `csv:"recency_days"`
	Frequency        int       `csv:"frequency"`
	Monetary         float64   `csv:"monetary"`
	RecencyScore     int       `csv:"recency_score"`
	FrequencyScore   int       `csv:"frequency_score"`
	MonetaryScore    int       `csv:"monetary_score"`
	Segment          string    `csv:"segment"`
}

// Warehouse is the complete output of one build. Each field is written once
// by its stage and read-only afterwards.
type Warehouse struct {
	Geolocation []GeoRecord
	Customers   []CanonicalCustomer
	Products    []CanonicalProduct
	Sellers     []CanonicalSeller
	Reviews     []DedupedReview
	Items       []OrderItemAggregate
	Payments    []PaymentAggregate
	Orders      []OrderFact
	CustomerRFM []CustomerRFM
}

// Counts returns the row count of every table keyed by table name.
func (w *Warehouse) Counts() map[string]int {
	return map[string]int{
		TableGeolocation: len(w.Geolocation),
		TableCustomers:   len(w.Customers),
		TableProducts:    len(w.Products),
		TableSellers:     len(w.Sellers),
		TableReviews:     len(w.Reviews),
		TableItems:       len(w.Items),
		TablePayments:    len(w.Payments),
		TableOrders:      len(w.Orders),
		TableCustomerRFM: len(w.CustomerRFM),
	}
}
