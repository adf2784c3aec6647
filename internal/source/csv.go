package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/commerce-warehouse/internal/model"
)

// DefaultFiles maps each dataset to its file name in the public export.
var DefaultFiles = map[string]string{
	DatasetGeolocation:  "olist_geolocation_dataset.csv",
	DatasetCustomers:    "olist_customers_dataset.csv",
	DatasetOrders:       "olist_orders_dataset.csv",
	DatasetOrderItems:   "olist_order_items_dataset.csv",
	DatasetPayments:     "olist_order_payments_dataset.csv",
	DatasetReviews:      "olist_order_reviews_dataset.csv",
	DatasetProducts:     "olist_products_dataset.csv",
	DatasetSellers:      "olist_sellers_dataset.csv",
	DatasetTranslations: "product_category_name_translation.csv",
}

// CSVSource reads the snapshot from a directory of CSV files.
type CSVSource struct {
	dir         string
	files       map[string]string
	concurrency int
}

// CSVOption configures a CSVSource.
type CSVOption func(*CSVSource)

// WithFiles overrides file names per dataset.
func WithFiles(files map[string]string) CSVOption {
	return func(s *CSVSource) {
		for k, v := range files {
			s.files[k] = v
		}
	}
}

// WithConcurrency limits how many files are parsed at once.
func WithConcurrency(n int) CSVOption {
	return func(s *CSVSource) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewCSV creates a CSVSource rooted at dir.
func NewCSV(dir string, opts ...CSVOption) *CSVSource {
	s := &CSVSource{dir: dir, files: make(map[string]string, len(DefaultFiles)), concurrency: 4}
	for k, v := range DefaultFiles {
		s.files[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load parses every dataset file. Each file is decoded into its own slice,
// so the loaders share no state.
func (s *CSVSource) Load(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	g.Go(func() error {
		rows, err := decodeFile[geoRow](gctx, s.path(DatasetGeolocation))
		snap.Geolocation = convert(rows, geoRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[customerRow](gctx, s.path(DatasetCustomers))
		snap.Customers = convert(rows, customerRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[orderRow](gctx, s.path(DatasetOrders))
		snap.Orders = convert(rows, orderRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[itemRow](gctx, s.path(DatasetOrderItems))
		snap.OrderItems = convert(rows, itemRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[paymentRow](gctx, s.path(DatasetPayments))
		snap.Payments = convert(rows, paymentRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[reviewRow](gctx, s.path(DatasetReviews))
		snap.Reviews = convert(rows, reviewRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[productRow](gctx, s.path(DatasetProducts))
		snap.Products = convert(rows, productRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[sellerRow](gctx, s.path(DatasetSellers))
		snap.Sellers = convert(rows, sellerRow.toModel)
		return err
	})
	g.Go(func() error {
		rows, err := decodeFile[translationRow](gctx, s.path(DatasetTranslations))
		snap.Translations = convert(rows, translationRow.toModel)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("source: csv snapshot loaded", zap.String("dir", s.dir), zap.Any("rows", snap.RawCounts()))
	return snap, nil
}

func (s *CSVSource) path(dataset string) string {
	return filepath.Join(s.dir, s.files[dataset])
}

// decodeFile reads all records of a CSV file with a header row.
func decodeFile[T any](ctx context.Context, path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(skipBOM(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	dec, err := csvutil.NewDecoder(r)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: read header %s", path)
	}

	var out []T
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "source: context cancelled")
		}
		var row T
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "source: decode %s line %d", filepath.Base(path), len(out)+2)
		}
		out = append(out, row)
	}
	return out, nil
}

func convert[T, M any](rows []T, fn func(T) M) []M {
	if rows == nil {
		return nil
	}
	out := make([]M, len(rows))
	for i, r := range rows {
		out[i] = fn(r)
	}
	return out
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}

// csvTime parses the timestamp layouts found in the export.
type csvTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

func (t *csvTime) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return eris.Errorf("source: unrecognized timestamp %q", s)
}

func (t *csvTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

func intPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// present maps only a missing or empty field to nil. Whitespace is kept so
// text quality is derived from the raw comment.
func present(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

type geoRow struct {
	ZipPrefix int     `csv:"geolocation_zip_code_prefix"`
	Lat       float64 `csv:"geolocation_lat"`
	Lng       float64 `csv:"geolocation_lng"`
	City      string  `csv:"geolocation_city"`
	State     string  `csv:"geolocation_state"`
}

func (r geoRow) toModel() model.GeoSample {
	return model.GeoSample{ZipPrefix: r.ZipPrefix, City: r.City, State: r.State, Lat: r.Lat, Lng: r.Lng}
}

type customerRow struct {
	CustomerID       string `csv:"customer_id"`
	CustomerUniqueID string `csv:"customer_unique_id"`
	ZipPrefix        string `csv:"customer_zip_code_prefix"`
	City             string `csv:"customer_city"`
	State            string `csv:"customer_state"`
}

func (r customerRow) toModel() model.Customer {
	return model.Customer(r)
}

type orderRow struct {
	OrderID             string   `csv:"order_id"`
	CustomerID          string   `csv:"customer_id"`
	Status              string   `csv:"order_status"`
	PurchasedAt         *csvTime `csv:"order_purchase_timestamp"`
	ApprovedAt          *csvTime `csv:"order_approved_at"`
	DeliveredCarrierAt  *csvTime `csv:"order_delivered_carrier_date"`
	DeliveredCustomerAt *csvTime `csv:"order_delivered_customer_date"`
	EstimatedDeliveryAt *csvTime `csv:"order_estimated_delivery_date"`
}

func (r orderRow) toModel() model.Order {
	return model.Order{
		OrderID:             r.OrderID,
		CustomerID:          r.CustomerID,
		Status:              r.Status,
		PurchasedAt:         r.PurchasedAt.ptr(),
		ApprovedAt:          r.ApprovedAt.ptr(),
		DeliveredCarrierAt:  r.DeliveredCarrierAt.ptr(),
		DeliveredCustomerAt: r.DeliveredCustomerAt.ptr(),
		EstimatedDeliveryAt: r.EstimatedDeliveryAt.ptr(),
	}
}

type itemRow struct {
	OrderID         string   `csv:"order_id"`
	ItemSeq         int      `csv:"order_item_id"`
	ProductID       string   `csv:"product_id"`
	SellerID        string   `csv:"seller_id"`
	ShippingLimitAt *csvTime `csv:"shipping_limit_date"`
	Price           *float64 `csv:"price"`
	Freight         *float64 `csv:"freight_value"`
}

func (r itemRow) toModel() model.OrderItem {
	return model.OrderItem{
		OrderID:         r.OrderID,
		ItemSeq:         r.ItemSeq,
		ProductID:       r.ProductID,
		SellerID:        r.SellerID,
		ShippingLimitAt: r.ShippingLimitAt.ptr(),
		Price:           r.Price,
		Freight:         r.Freight,
	}
}

type paymentRow struct {
	OrderID      string   `csv:"order_id"`
	Sequential   int      `csv:"payment_sequential"`
	Type         string   `csv:"payment_type"`
	Installments *int     `csv:"payment_installments"`
	Value        *float64 `csv:"payment_value"`
}

func (r paymentRow) toModel() model.Payment {
	return model.Payment(r)
}

type reviewRow struct {
	ReviewID       string   `csv:"review_id"`
	OrderID        string   `csv:"order_id"`
	Score          int      `csv:"review_score"`
	CommentTitle   *string  `csv:"review_comment_title"`
	CommentMessage *string  `csv:"review_comment_message"`
	CreatedAt      *csvTime `csv:"review_creation_date"`
	AnsweredAt     *csvTime `csv:"review_answer_timestamp"`
}

func (r reviewRow) toModel() model.Review {
	return model.Review{
		ReviewID:       r.ReviewID,
		OrderID:        r.OrderID,
		Score:          r.Score,
		CommentTitle:   present(r.CommentTitle),
		CommentMessage: present(r.CommentMessage),
		CreatedAt:      r.CreatedAt.ptr(),
		AnsweredAt:     r.AnsweredAt.ptr(),
	}
}

type productRow struct {
	ProductID         string   `csv:"product_id"`
	Category          *string  `csv:"product_category_name"`
	NameLength        *float64 `csv:"product_name_lenght"`
	DescriptionLength *float64 `csv:"product_description_lenght"`
	PhotosQty         *float64 `csv:"product_photos_qty"`
	WeightG           *float64 `csv:"product_weight_g"`
	LengthCm          *float64 `csv:"product_length_cm"`
	HeightCm          *float64 `csv:"product_height_cm"`
	WidthCm           *float64 `csv:"product_width_cm"`
}

func (r productRow) toModel() model.Product {
	return model.Product{
		ProductID:         r.ProductID,
		Category:          nonEmpty(r.Category),
		NameLength:        intPtr(r.NameLength),
		DescriptionLength: intPtr(r.DescriptionLength),
		PhotosQty:         intPtr(r.PhotosQty),
		WeightG:           r.WeightG,
		LengthCm:          r.LengthCm,
		HeightCm:          r.HeightCm,
		WidthCm:           r.WidthCm,
	}
}

type sellerRow struct {
	SellerID  string `csv:"seller_id"`
	ZipPrefix string `csv:"seller_zip_code_prefix"`
	City      string `csv:"seller_city"`
	State     string `csv:"seller_state"`
}

func (r sellerRow) toModel() model.Seller {
	return model.Seller(r)
}

type translationRow struct {
	Category        string `csv:"product_category_name"`
	CategoryEnglish string `csv:"product_category_name_english"`
}

func (r translationRow) toModel() model.CategoryTranslation {
	return model.CategoryTranslation(r)
}
