package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"atelier/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id       uuid PRIMARY KEY,
	name     text NOT NULL,
	sku      text NOT NULL UNIQUE,
	category text NOT NULL DEFAULT '',
	price    numeric(12,2) NOT NULL CHECK (price >= 0),
	stock    bigint NOT NULL CHECK (stock >= 0)
);
CREATE TABLE IF NOT EXISTS studio_products (
	id     uuid PRIMARY KEY,
	name   text NOT NULL,
	price  numeric(12,2) NOT NULL CHECK (price >= 0),
	active boolean NOT NULL DEFAULT true
);
CREATE TABLE IF NOT EXISTS designs (
	id                uuid PRIMARY KEY,
	owner_id          text NOT NULL,
	studio_product_id uuid NOT NULL REFERENCES studio_products(id),
	name              text NOT NULL,
	artwork_url       text NOT NULL DEFAULT '',
	placement         text NOT NULL DEFAULT '',
	created_at        timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS designs_owner_idx ON designs (owner_id, created_at DESC);
CREATE TABLE IF NOT EXISTS orders (
	id               uuid PRIMARY KEY,
	user_id          text NOT NULL,
	shipping_address jsonb NOT NULL,
	payment_method   text NOT NULL DEFAULT '',
	payment_status   text NOT NULL,
	transaction_id   text NOT NULL DEFAULT '',
	subtotal         numeric(14,2) NOT NULL,
	tax              numeric(14,2) NOT NULL,
	shipping         numeric(14,2) NOT NULL,
	total            numeric(14,2) NOT NULL,
	status           text NOT NULL,
	created_at       timestamptz NOT NULL,
	updated_at       timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS order_items (
	order_id      uuid NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position      int NOT NULL,
	product_id    uuid,
	design_id     uuid,
	name          text NOT NULL DEFAULT '',
	quantity      bigint NOT NULL CHECK (quantity >= 1),
	unit_price    numeric(12,2) NOT NULL,
	size          text NOT NULL DEFAULT '',
	color         text NOT NULL DEFAULT '',
	notes         text NOT NULL DEFAULT '',
	customization jsonb,
	PRIMARY KEY (order_id, position),
	CHECK ((product_id IS NULL) <> (design_id IS NULL))
);
CREATE TABLE IF NOT EXISTS order_tracking (
	order_id uuid NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position int NOT NULL,
	status   text NOT NULL,
	note     text NOT NULL DEFAULT '',
	actor    text NOT NULL,
	at       timestamptz NOT NULL,
	PRIMARY KEY (order_id, position)
);
`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type pgTxKey struct{}

// pgDB picks the transaction carried by ctx, or the pool outside a transaction.
type pgDB struct{ pool *pgxpool.Pool }

func (d pgDB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return d.pool
}

// NewPostgres opens a pool, applies the schema and wires every repository of the SQL backend.
func NewPostgres(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	db := pgDB{pool: pool}
	return &Store{
		Products:       &PostgresProducts{db: db},
		StudioProducts: &PostgresStudioProducts{db: db},
		Designs:        &PostgresDesigns{db: db},
		Orders:         &PostgresOrders{db: db},
		Tx:             &PostgresTx{pool: pool},
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// mapPgErr turns pgx errors into repository sentinels.
func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23514", "40001", "40P01":
			// unique, check, serialization failure, deadlock
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		case "22003":
			// numeric value out of range
			return fmt.Errorf("%w: %s", ErrInvalidValue, pgErr.Message)
		}
	}
	return err
}

// PostgresTx keeps the open pgx.Tx in the context for the repositories.
type PostgresTx struct{ pool *pgxpool.Pool }

func (t *PostgresTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapPgErr(err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return mapPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

// PostgresProducts implements ProductRepository on the products table.
type PostgresProducts struct{ db pgDB }

var _ ProductRepository = (*PostgresProducts)(nil)

const productColumns = `id::text, name, sku, category, price, stock`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.Price, &p.Stock)
	return p, err
}

func (r *PostgresProducts) Create(ctx context.Context, p *domain.Product) error {
	id := uuid.NewString()
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO products (id, name, sku, category, price, stock) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, p.Name, p.SKU, p.Category, p.Price, p.Stock)
	if err != nil {
		return mapPgErr(err)
	}
	p.ID = id
	return nil
}

func (r *PostgresProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	p, err := scanProduct(r.db.q(ctx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &p, nil
}

func (r *PostgresProducts) Update(ctx context.Context, p *domain.Product) error {
	if err := checkUUID(p.ID); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE products SET name=$2, sku=$3, category=$4, price=$5, stock=$6 WHERE id=$1`,
		p.ID, p.Name, p.SKU, p.Category, p.Price, p.Stock)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresProducts) Delete(ctx context.Context, id string) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR lower(category) = lower($2))
		  AND ($3::numeric IS NULL OR price >= $3::numeric)
		  AND ($4::numeric IS NULL OR price <= $4::numeric)
		ORDER BY name, id`
	var minPrice, maxPrice *string
	if f.MinPrice != nil {
		s := f.MinPrice.String()
		minPrice = &s
	}
	if f.MaxPrice != nil {
		s := f.MaxPrice.String()
		maxPrice = &s
	}
	rows, err := r.db.q(ctx).Query(ctx, query, f.NameSubstring, f.Category, minPrice, maxPrice)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresProducts) DecrementStock(ctx context.Context, id string, qty int64) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.q(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
			return mapPgErr(err)
		}
		if !exists {
			return ErrNotFound
		}
		return fmt.Errorf("%w: product %s has less than %d left", ErrConflict, id, qty)
	}
	return nil
}

func (r *PostgresProducts) IncrementStock(ctx context.Context, id string, qty int64) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, id, qty)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresStudioProducts implements StudioProductRepository.
type PostgresStudioProducts struct{ db pgDB }

var _ StudioProductRepository = (*PostgresStudioProducts)(nil)

func (r *PostgresStudioProducts) Create(ctx context.Context, sp *domain.StudioProduct) error {
	id := uuid.NewString()
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO studio_products (id, name, price, active) VALUES ($1,$2,$3,$4)`,
		id, sp.Name, sp.Price, sp.Active)
	if err != nil {
		return mapPgErr(err)
	}
	sp.ID = id
	return nil
}

func (r *PostgresStudioProducts) GetByID(ctx context.Context, id string) (*domain.StudioProduct, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	var sp domain.StudioProduct
	err := r.db.q(ctx).QueryRow(ctx, `SELECT id::text, name, price, active FROM studio_products WHERE id=$1`, id).
		Scan(&sp.ID, &sp.Name, &sp.Price, &sp.Active)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &sp, nil
}

func (r *PostgresStudioProducts) Update(ctx context.Context, sp *domain.StudioProduct) error {
	if err := checkUUID(sp.ID); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE studio_products SET name=$2, price=$3, active=$4 WHERE id=$1`,
		sp.ID, sp.Name, sp.Price, sp.Active)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStudioProducts) List(ctx context.Context) ([]domain.StudioProduct, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT id::text, name, price, active FROM studio_products ORDER BY name`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()
	out := make([]domain.StudioProduct, 0)
	for rows.Next() {
		var sp domain.StudioProduct
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Price, &sp.Active); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// PostgresDesigns implements DesignRepository.
type PostgresDesigns struct{ db pgDB }

var _ DesignRepository = (*PostgresDesigns)(nil)

const designColumns = `id::text, owner_id, studio_product_id::text, name, artwork_url, placement, created_at`

func scanDesign(row pgx.Row) (domain.Design, error) {
	var d domain.Design
	err := row.Scan(&d.ID, &d.OwnerID, &d.StudioProductID, &d.Name, &d.ArtworkURL, &d.Placement, &d.CreatedAt)
	return d, err
}

func (r *PostgresDesigns) Create(ctx context.Context, d *domain.Design) error {
	if err := checkUUID(d.StudioProductID); err != nil {
		return err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO designs (id, owner_id, studio_product_id, name, artwork_url, placement, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, d.OwnerID, d.StudioProductID, d.Name, d.ArtworkURL, d.Placement, d.CreatedAt)
	if err != nil {
		return mapPgErr(err)
	}
	d.ID = id
	return nil
}

func (r *PostgresDesigns) GetByID(ctx context.Context, id string) (*domain.Design, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	d, err := scanDesign(r.db.q(ctx).QueryRow(ctx, `SELECT `+designColumns+` FROM designs WHERE id=$1`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &d, nil
}

func (r *PostgresDesigns) ListByOwner(ctx context.Context, ownerID string) ([]domain.Design, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT `+designColumns+` FROM designs WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()
	out := make([]domain.Design, 0)
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresDesigns) Delete(ctx context.Context, id string) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM designs WHERE id=$1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresOrders implements OrderRepository over orders, order_items and order_tracking.
type PostgresOrders struct{ db pgDB }

var _ OrderRepository = (*PostgresOrders)(nil)

const orderColumns = `id::text, user_id, shipping_address, payment_method, payment_status, transaction_id,
	subtotal, tax, shipping, total, status, created_at, updated_at`

func scanOrderHeader(row pgx.Row) (domain.Order, error) {
	var (
		o    domain.Order
		addr []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &addr, &o.Payment.Method, &o.Payment.Status, &o.Payment.TransactionID,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("decode shipping address: %w", err)
	}
	return o, nil
}

func (r *PostgresOrders) Create(ctx context.Context, o *domain.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	id := uuid.NewString()

	b := &pgx.Batch{}
	b.Queue(`INSERT INTO orders (id, user_id, shipping_address, payment_method, payment_status, transaction_id,
		subtotal, tax, shipping, total, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		id, o.UserID, addr, o.Payment.Method, string(o.Payment.Status), o.Payment.TransactionID,
		o.Subtotal, o.Tax, o.Shipping, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt)
	for i, it := range o.Items {
		var productID, designID *string
		ref := it.Ref.RefID()
		if err := checkUUID(ref); err != nil {
			return err
		}
		switch it.Ref.(type) {
		case domain.PhysicalRef:
			productID = &ref
		case domain.CustomRef:
			designID = &ref
		}
		var custom []byte
		if len(it.Customization) > 0 {
			if custom, err = json.Marshal(it.Customization); err != nil {
				return err
			}
		}
		b.Queue(`INSERT INTO order_items (order_id, position, product_id, design_id, name, quantity, unit_price,
			size, color, notes, customization) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			id, i, productID, designID, it.Name, it.Quantity, it.UnitPrice, it.Size, it.Color, it.Notes, custom)
	}
	queueTracking(b, id, o.Tracking, 0)
	if err := r.db.q(ctx).SendBatch(ctx, b).Close(); err != nil {
		return mapPgErr(err)
	}
	o.ID = id
	return nil
}

func queueTracking(b *pgx.Batch, orderID string, events []domain.TrackingEvent, from int) {
	for i := from; i < len(events); i++ {
		ev := events[i]
		b.Queue(`INSERT INTO order_tracking (order_id, position, status, note, actor, at)
			VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (order_id, position) DO NOTHING`,
			orderID, i, string(ev.Status), ev.Note, ev.Actor, ev.At)
	}
}

func (r *PostgresOrders) loadLines(ctx context.Context, o *domain.Order) error {
	q := r.db.q(ctx)
	rows, err := q.Query(ctx, `SELECT product_id::text, design_id::text, name, quantity, unit_price, size, color, notes, customization
		FROM order_items WHERE order_id=$1 ORDER BY position`, o.ID)
	if err != nil {
		return mapPgErr(err)
	}
	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var (
			li                  domain.LineItem
			productID, designID *string
			custom              []byte
		)
		if err := rows.Scan(&productID, &designID, &li.Name, &li.Quantity, &li.UnitPrice, &li.Size, &li.Color, &li.Notes, &custom); err != nil {
			rows.Close()
			return err
		}
		if productID != nil {
			li.Ref = domain.PhysicalRef{ProductID: *productID}
		} else if designID != nil {
			li.Ref = domain.CustomRef{DesignID: *designID}
		}
		if len(custom) > 0 {
			if err := json.Unmarshal(custom, &li.Customization); err != nil {
				rows.Close()
				return fmt.Errorf("decode customization: %w", err)
			}
		}
		items = append(items, li)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	o.Items = items

	rows, err = q.Query(ctx, `SELECT status, note, actor, at FROM order_tracking WHERE order_id=$1 ORDER BY position`, o.ID)
	if err != nil {
		return mapPgErr(err)
	}
	defer rows.Close()
	tracking := make([]domain.TrackingEvent, 0)
	for rows.Next() {
		var ev domain.TrackingEvent
		if err := rows.Scan(&ev.Status, &ev.Note, &ev.Actor, &ev.At); err != nil {
			return err
		}
		tracking = append(tracking, ev)
	}
	o.Tracking = tracking
	return rows.Err()
}

func (r *PostgresOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := checkUUID(id); err != nil {
		return nil, err
	}
	o, err := scanOrderHeader(r.db.q(ctx).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, mapPgErr(err)
	}
	if err := r.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PostgresOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR user_id = $1) ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrderHeader(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Update rewrites the order header and appends tracking entries that are not
// stored yet. Line items are immutable once the order exists.
func (r *PostgresOrders) Update(ctx context.Context, o *domain.Order) error {
	if err := checkUUID(o.ID); err != nil {
		return err
	}
	q := r.db.q(ctx)
	tag, err := q.Exec(ctx, `UPDATE orders SET payment_method=$2, payment_status=$3, transaction_id=$4,
		status=$5, updated_at=$6 WHERE id=$1`,
		o.ID, o.Payment.Method, string(o.Payment.Status), o.Payment.TransactionID, string(o.Status), o.UpdatedAt)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	var stored int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM order_tracking WHERE order_id=$1`, o.ID).Scan(&stored); err != nil {
		return mapPgErr(err)
	}
	if stored >= len(o.Tracking) {
		return nil
	}
	b := &pgx.Batch{}
	queueTracking(b, o.ID, o.Tracking, stored)
	return mapPgErr(q.SendBatch(ctx, b).Close())
}

func (r *PostgresOrders) Delete(ctx context.Context, id string) error {
	if err := checkUUID(id); err != nil {
		return err
	}
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
