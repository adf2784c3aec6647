package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

type kind int

const (
	kindText kind = iota
	kindInt
	kindReal
	kindBool
	kindTime
)

type column struct {
	name     string
	kind     kind
	nullable bool
}

// Table describes one output table: its columns and how to flatten the
// warehouse into rows in column order.
type Table struct {
	Name    string
	Key     []string
	columns []column
	rows    func(*model.Warehouse) [][]any
}

// Columns returns the column names in row order.
func (t Table) Columns() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.name
	}
	return out
}

// Rows flattens the table's slice of wh. Nullable values are nil or the
// dereferenced value.
func (t Table) Rows(wh *model.Warehouse) [][]any {
	return t.rows(wh)
}

func sqliteType(k kind) string {
	switch k {
	case kindInt, kindBool:
		return "INTEGER"
	case kindReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func postgresType(k kind) string {
	switch k {
	case kindInt:
		return "BIGINT"
	case kindReal:
		return "DOUBLE PRECISION"
	case kindBool:
		return "BOOLEAN"
	case kindTime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// createTableSQL renders a CREATE TABLE statement using typeFn for column types.
func (t Table) createTableSQL(qualified string, typeFn func(kind) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", qualified)
	for _, c := range t.columns {
		fmt.Fprintf(&b, "\t%s %s", c.name, typeFn(c.kind))
		if !c.nullable {
			b.WriteString(" NOT NULL")
		}
		b.WriteString(",\n")
	}
	fmt.Fprintf(&b, "\tPRIMARY KEY (%s)\n)", strings.Join(t.Key, ", "))
	return b.String()
}

func val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Tables lists the nine output tables in write order.
var Tables = []Table{
	{
		Name: model.TableGeolocation,
		Key:  []string{"zip_prefix"},
		columns: []column{
			{"zip_prefix", kindInt, false},
			{"city", kindText, false},
			{"lat", kindReal, false},
			{"lng", kindReal, false},
			{"states", kindText, false},
			{"sample_count", kindInt, false},
			{"ambiguous", kindBool, false},
			{"dominant_state", kindText, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Geolocation))
			for i, g := range wh.Geolocation {
				out[i] = []any{g.ZipPrefix, g.City, g.Lat, g.Lng, g.States.String(), g.SampleCount, g.Ambiguous, g.DominantState}
			}
			return out
		},
	},
	{
		Name: model.TableCustomers,
		Key:  []string{"customer_unique_id"},
		columns: []column{
			{"customer_unique_id", kindText, false},
			{"representative_raw_id", kindText, false},
			{"zip_prefix", kindText, false},
			{"city", kindText, false},
			{"state", kindText, false},
			{"lat", kindReal, true},
			{"lng", kindReal, true},
			{"raw_id_variant_count", kindInt, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Customers))
			for i, c := range wh.Customers {
				out[i] = []any{c.UniqueID, c.RepresentativeRawID, c.ZipPrefix, c.City, c.State, val(c.Lat), val(c.Lng), c.RawIDVariantCount}
			}
			return out
		},
	},
	{
		Name: model.TableProducts,
		Key:  []string{"product_id"},
		columns: []column{
			{"product_id", kindText, false},
			{"category", kindText, false},
			{"weight_g", kindReal, true},
			{"length_cm", kindReal, true},
			{"height_cm", kindReal, true},
			{"width_cm", kindReal, true},
			{"volume_cm3", kindReal, true},
			{"density", kindReal, true},
			{"weight_invalid", kindBool, false},
			{"dim_invalid", kindBool, false},
			{"category_missing_translation", kindBool, false},
			{"density_outlier", kindBool, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Products))
			for i, p := range wh.Products {
				out[i] = []any{
					p.ProductID, p.Category,
					val(p.WeightG), val(p.LengthCm), val(p.HeightCm), val(p.WidthCm), val(p.VolumeCm3), val(p.Density),
					p.WeightInvalid, p.DimInvalid, p.CategoryMissingTranslation, p.DensityOutlier,
				}
			}
			return out
		},
	},
	{
		Name: model.TableSellers,
		Key:  []string{"seller_id"},
		columns: []column{
			{"seller_id", kindText, false},
			{"zip_prefix", kindText, false},
			{"city", kindText, false},
			{"state", kindText, false},
			{"lat", kindReal, true},
			{"lng", kindReal, true},
			{"geo_matched", kindBool, false},
			{"geo_ambiguous", kindBool, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Sellers))
			for i, s := range wh.Sellers {
				out[i] = []any{s.SellerID, s.ZipPrefix, s.City, s.State, val(s.Lat), val(s.Lng), s.GeoMatched, s.GeoAmbiguous}
			}
			return out
		},
	},
	{
		Name: model.TableReviews,
		Key:  []string{"review_id"},
		columns: []column{
			{"review_id", kindText, false},
			{"order_id", kindText, false},
			{"score", kindInt, false},
			{"comment_title", kindText, true},
			{"comment_message", kindText, true},
			{"created_at", kindTime, true},
			{"answered_at", kindTime, true},
			{"text_length", kindInt, false},
			{"has_text", kindBool, false},
			{"low_quality", kindBool, false},
			{"duplicate_count", kindInt, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Reviews))
			for i, r := range wh.Reviews {
				out[i] = []any{
					r.ReviewID, r.OrderID, r.Score, val(r.CommentTitle), val(r.CommentMessage),
					val(r.CreatedAt), val(r.AnsweredAt), r.TextLength, r.HasText, r.LowQuality, r.DuplicateCount,
				}
			}
			return out
		},
	},
	{
		Name: model.TableItems,
		Key:  []string{"order_id"},
		columns: []column{
			{"order_id", kindText, false},
			{"items_count", kindInt, false},
			{"sum_valid_price", kindReal, false},
			{"sum_valid_freight", kindReal, false},
			{"invalid_price_rows", kindInt, false},
			{"invalid_freight_rows", kindInt, false},
			{"distinct_products", kindInt, false},
			{"distinct_sellers", kindInt, false},
			{"earliest_shipping_limit", kindTime, true},
			{"primary_category", kindText, true},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Items))
			for i, it := range wh.Items {
				out[i] = []any{
					it.OrderID, it.ItemsCount, it.SumValidPrice, it.SumValidFreight,
					it.InvalidPriceRows, it.InvalidFreightRows, it.DistinctProducts, it.DistinctSellers,
					val(it.EarliestShippingLimit), val(it.PrimaryCategory),
				}
			}
			return out
		},
	},
	{
		Name: model.TablePayments,
		Key:  []string{"order_id"},
		columns: []column{
			{"order_id", kindText, false},
			{"sum_valid_payments", kindReal, false},
			{"primary_payment_type", kindText, true},
			{"max_installments", kindInt, true},
			{"payment_row_count", kindInt, false},
			{"invalid_payment_row_count", kindInt, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Payments))
			for i, p := range wh.Payments {
				out[i] = []any{p.OrderID, p.SumValidPayments, val(p.PrimaryPaymentType), val(p.MaxInstallments), p.PaymentRowCount, p.InvalidPaymentRowCount}
			}
			return out
		},
	},
	{
		Name: model.TableOrders,
		Key:  []string{"order_id"},
		columns: []column{
			{"order_id", kindText, false},
			{"customer_id", kindText, false},
			{"customer_unique_id", kindText, false},
			{"status", kindText, false},
			{"purchased_at", kindTime, true},
			{"approved_at", kindTime, true},
			{"delivered_carrier_at", kindTime, true},
			{"delivered_customer_at", kindTime, true},
			{"estimated_delivery_at", kindTime, true},
			{"order_date", kindTime, true},
			{"items_count", kindInt, true},
			{"sum_valid_price", kindReal, true},
			{"sum_valid_freight", kindReal, true},
			{"primary_category", kindText, true},
			{"sum_valid_payments", kindReal, true},
			{"primary_payment_type", kindText, true},
			{"max_installments", kindInt, true},
			{"payment_row_count", kindInt, true},
			{"order_total", kindReal, true},
			{"days_to_delivery", kindReal, true},
			{"carrier_to_customer_days", kindReal, true},
			{"is_delayed", kindBool, true},
			{"chronology_flag", kindBool, false},
			{"is_canceled_or_unavailable", kindBool, false},
			{"payment_coverage", kindReal, true},
			{"review_score", kindInt, true},
			{"has_review", kindBool, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.Orders))
			for i, o := range wh.Orders {
				out[i] = []any{
					o.OrderID, o.CustomerID, o.CustomerUniqueID, o.Status,
					val(o.PurchasedAt), val(o.ApprovedAt), val(o.DeliveredCarrierAt), val(o.DeliveredCustomerAt),
					val(o.EstimatedDeliveryAt), val(o.OrderDate),
					val(o.ItemsCount), val(o.SumValidPrice), val(o.SumValidFreight), val(o.PrimaryCategory),
					val(o.SumValidPayments), val(o.PrimaryPaymentType), val(o.MaxInstallments), val(o.PaymentRowCount),
					val(o.OrderTotal), val(o.DaysToDelivery), val(o.CarrierToCustomerDays), val(o.IsDelayed),
					o.ChronologyFlag, o.IsCanceledOrUnavailable, val(o.PaymentCoverage), val(o.ReviewScore), o.HasReview,
				}
			}
			return out
		},
	},
	{
		Name: model.TableCustomerRFM,
		Key:  []string{"customer_unique_id"},
		columns: []column{
			{"customer_unique_id", kindText, false},
			{"last_order_date", kindTime, false},
			{"recency_days", kindInt, false},
			{"frequency", kindInt, false},
			{"monetary", kindReal, false},
			{"recency_score", kindInt, false},
			{"frequency_score", kindInt, false},
			{"monetary_score", kindInt, false},
			{"segment", kindText, false},
		},
		rows: func(wh *model.Warehouse) [][]any {
			out := make([][]any, len(wh.CustomerRFM))
			for i, c := range wh.CustomerRFM {
				out[i] = []any{
					c.CustomerUniqueID, c.LastOrderDate, c.RecencyDays, c.Frequency, c.Monetary,
					c.RecencyScore, c.FrequencyScore, c.MonetaryScore, c.Segment,
				}
			}
			return out
		},
	},
}

// sqliteTime is the text layout used for timestamps in SQLite.
const sqliteTime = "2006-01-02 15:04:05"

// sqliteValue converts a row value to a SQLite-friendly form.
func sqliteValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(sqliteTime)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return v
	}
}
