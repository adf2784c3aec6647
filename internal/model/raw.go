// Package model defines the raw snapshot rows read from the source store and
// the derived tables produced by the warehouse build.
package model

import "time"

// GeoSample is one raw geolocation observation for a zip code prefix.
type GeoSample struct {
	ZipPrefix int
	City      string
	State     string
	Lat       float64
	Lng       float64
}

// Customer is a raw customer record. Several records may share one
// CustomerUniqueID when the same person placed orders under different ids.
type Customer struct {
	CustomerID       string
	CustomerUniqueID string
	ZipPrefix        string
	City             string
	State            string
}

// Order is a raw order header with its lifecycle timestamps.
type Order struct {
	OrderID             string
	CustomerID          string
	Status              string
	PurchasedAt         *time.Time
	ApprovedAt          *time.Time
	DeliveredCarrierAt  *time.Time
	DeliveredCustomerAt *time.Time
	EstimatedDeliveryAt *time.Time
}

// OrderItem is one line item of an order.
type OrderItem struct {
	OrderID         string
	ItemSeq         int
	ProductID       string
	SellerID        string
	ShippingLimitAt *time.Time
	Price           *float64
	Freight         *float64
}

// Payment is one payment row of an order.
type Payment struct {
	OrderID      string
	Sequential   int
	Type         string
	Installments *int
	Value        *float64
}

// Review is a raw review submission. The same ReviewID can appear more than once.
type Review struct {
	ReviewID       string
	OrderID        string
	Score          int
	CommentTitle   *string
	CommentMessage *string
	CreatedAt      *time.Time
	AnsweredAt     *time.Time
}

// Product is a raw product record. Physical attributes use zero as a
// placeholder for unknown values in the source data.
type Product struct {
	ProductID         string
	Category          *string
	NameLength        *int
	DescriptionLength *int
	PhotosQty         *int
	WeightG           *float64
	LengthCm          *float64
	HeightCm          *float64
	WidthCm           *float64
}

// Seller is a raw seller record.
type Seller struct {
	SellerID  string
	ZipPrefix string
	City      string
	State     string
}

// CategoryTranslation maps a source-language category name to English.
type CategoryTranslation struct {
	Category        string
	CategoryEnglish string
}

// Snapshot is the full raw dataset a build runs over.
type Snapshot struct {
	Geolocation  []GeoSample
	Customers    []Customer
	Orders       []Order
	OrderItems   []OrderItem
	Payments     []Payment
	Reviews      []Review
	Products     []Product
	Sellers      []Seller
	Translations []CategoryTranslation
}
