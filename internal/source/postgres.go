package source

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/commerce-warehouse/internal/db"
	"github.com/sells-group/commerce-warehouse/internal/model"
	"github.com/sells-group/commerce-warehouse/internal/resilience"
)

// DefaultTables maps each dataset to its raw table name.
var DefaultTables = map[string]string{
	DatasetGeolocation:  "geolocation",
	DatasetCustomers:    "customers",
	DatasetOrders:       "orders",
	DatasetOrderItems:   "order_items",
	DatasetPayments:     "order_payments",
	DatasetReviews:      "order_reviews",
	DatasetProducts:     "products",
	DatasetSellers:      "sellers",
	DatasetTranslations: "product_category_name_translation",
}

// Select lists per dataset. Column order matches the model struct field
// order so rows can be collected positionally.
var selectColumns = map[string][]string{
	DatasetGeolocation: {
		"geolocation_zip_code_prefix::int",
		"COALESCE(geolocation_city, '')",
		"COALESCE(geolocation_state, '')",
		"geolocation_lat::float8",
		"geolocation_lng::float8",
	},
	DatasetCustomers: {
		"customer_id",
		"customer_unique_id",
		"COALESCE(customer_zip_code_prefix::text, '')",
		"COALESCE(customer_city, '')",
		"COALESCE(customer_state, '')",
	},
	DatasetOrders: {
		"order_id",
		"customer_id",
		"COALESCE(order_status, '')",
		"order_purchase_timestamp::timestamp",
		"order_approved_at::timestamp",
		"order_delivered_carrier_date::timestamp",
		"order_delivered_customer_date::timestamp",
		"order_estimated_delivery_date::timestamp",
	},
	DatasetOrderItems: {
		"order_id",
		"order_item_id::int",
		"COALESCE(product_id, '')",
		"COALESCE(seller_id, '')",
		"shipping_limit_date::timestamp",
		"price::float8",
		"freight_value::float8",
	},
	DatasetPayments: {
		"order_id",
		"payment_sequential::int",
		"COALESCE(payment_type, '')",
		"payment_installments::int",
		"payment_value::float8",
	},
	DatasetReviews: {
		"review_id",
		"order_id",
		"review_score::int",
		"NULLIF(review_comment_title, '')",
		"NULLIF(review_comment_message, '')",
		"review_creation_date::timestamp",
		"review_answer_timestamp::timestamp",
	},
	DatasetProducts: {
		"product_id",
		"NULLIF(btrim(product_category_name), '')",
		"product_name_lenght::int",
		"product_description_lenght::int",
		"product_photos_qty::int",
		"product_weight_g::float8",
		"product_length_cm::float8",
		"product_height_cm::float8",
		"product_width_cm::float8",
	},
	DatasetSellers: {
		"seller_id",
		"COALESCE(seller_zip_code_prefix::text, '')",
		"COALESCE(seller_city, '')",
		"COALESCE(seller_state, '')",
	},
	DatasetTranslations: {
		"product_category_name",
		"product_category_name_english",
	},
}

// Sort keys per dataset. Rows are read in a fixed order so first-seen
// choices and floating point sums repeat exactly across runs.
var orderColumns = map[string][]string{
	DatasetGeolocation: {
		"geolocation_zip_code_prefix",
		"geolocation_city",
		"geolocation_state",
		"geolocation_lat",
		"geolocation_lng",
	},
	DatasetCustomers:    {"customer_id", "customer_unique_id", "customer_zip_code_prefix", "customer_city", "customer_state"},
	DatasetOrders:       {"order_id", "customer_id"},
	DatasetOrderItems:   {"order_id", "order_item_id", "product_id", "seller_id"},
	DatasetPayments:     {"order_id", "payment_sequential", "payment_type", "payment_value"},
	DatasetReviews:      {"review_id", "order_id", "review_answer_timestamp", "review_creation_date", "review_score"},
	DatasetProducts:     {"product_id"},
	DatasetSellers:      {"seller_id"},
	DatasetTranslations: {"product_category_name", "product_category_name_english"},
}

// PostgresSource reads the snapshot from raw tables in a Postgres schema.
type PostgresSource struct {
	pool        db.Pool
	schema      string
	tables      map[string]string
	concurrency int
}

// NewPostgres creates a PostgresSource over pool.
func NewPostgres(pool db.Pool, schema string, concurrency int) *PostgresSource {
	if concurrency < 1 {
		concurrency = 1
	}
	tables := make(map[string]string, len(DefaultTables))
	for k, v := range DefaultTables {
		tables[k] = v
	}
	return &PostgresSource{pool: pool, schema: schema, tables: tables, concurrency: concurrency}
}

// Load reads every raw table.
func (s *PostgresSource) Load(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	g.Go(func() (err error) {
		snap.Geolocation, err = queryAll[model.GeoSample](gctx, s, DatasetGeolocation)
		return err
	})
	g.Go(func() (err error) {
		snap.Customers, err = queryAll[model.Customer](gctx, s, DatasetCustomers)
		return err
	})
	g.Go(func() (err error) {
		snap.Orders, err = queryAll[model.Order](gctx, s, DatasetOrders)
		return err
	})
	g.Go(func() (err error) {
		snap.OrderItems, err = queryAll[model.OrderItem](gctx, s, DatasetOrderItems)
		return err
	})
	g.Go(func() (err error) {
		snap.Payments, err = queryAll[model.Payment](gctx, s, DatasetPayments)
		return err
	})
	g.Go(func() (err error) {
		snap.Reviews, err = queryAll[model.Review](gctx, s, DatasetReviews)
		return err
	})
	g.Go(func() (err error) {
		snap.Products, err = queryAll[model.Product](gctx, s, DatasetProducts)
		return err
	})
	g.Go(func() (err error) {
		snap.Sellers, err = queryAll[model.Seller](gctx, s, DatasetSellers)
		return err
	})
	g.Go(func() (err error) {
		snap.Translations, err = queryAll[model.CategoryTranslation](gctx, s, DatasetTranslations)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("source: postgres snapshot loaded", zap.String("schema", s.schema), zap.Any("rows", snap.RawCounts()))
	return snap, nil
}

// selectSQL builds the SELECT for one dataset.
func (s *PostgresSource) selectSQL(dataset string) (string, []any, error) {
	from := pgx.Identifier{s.tables[dataset]}
	if s.schema != "" {
		from = pgx.Identifier{s.schema, s.tables[dataset]}
	}
	return sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(selectColumns[dataset]...).
		From(from.Sanitize()).
		OrderBy(orderColumns[dataset]...).
		ToSql()
}

func queryAll[T any](ctx context.Context, s *PostgresSource, dataset string) ([]T, error) {
	query, args, err := s.selectSQL(dataset)
	if err != nil {
		return nil, eris.Wrapf(err, "source: build query %s", dataset)
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("source: query " + dataset)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]T, error) {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, eris.Wrapf(err, "source: query %s", dataset)
		}
		out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[T])
		if err != nil {
			return nil, eris.Wrapf(err, "source: scan %s", dataset)
		}
		return out, nil
	})
}
