package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"atelier/internal/domain"
)

const (
	collProducts       = "products"
	collStudioProducts = "studio_products"
	collDesigns        = "designs"
	collOrders         = "orders"
)

// NewMongo connects to MongoDB and wires every repository of the document backend.
// Transactions need a replica set or sharded cluster.
func NewMongo(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(dbName)
	if err := ensureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Store{
		Products:       &MongoProducts{coll: db.Collection(collProducts)},
		StudioProducts: &MongoStudioProducts{coll: db.Collection(collStudioProducts)},
		Designs:        &MongoDesigns{coll: db.Collection(collDesigns)},
		Orders:         &MongoOrders{coll: db.Collection(collOrders)},
		Tx:             &MongoTx{client: client},
		Close:          client.Disconnect,
	}, nil
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		collProducts: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		collDesigns: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		collOrders: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// toDecimal128 fails with ErrInvalidValue for amounts beyond 34 significant digits.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("%w: amount %s: %v", ErrInvalidValue, d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode amount %s: %w", v, err)
	}
	return d, nil
}

// decimals converts a batch of amounts and keeps the first failure.
type decimals struct{ err error }

func (c *decimals) to(d decimal.Decimal) primitive.Decimal128 {
	v, err := toDecimal128(d)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func (c *decimals) from(v primitive.Decimal128) decimal.Decimal {
	d, err := fromDecimal128(v)
	if err != nil && c.err == nil {
		c.err = err
	}
	return d
}

// mapMongoErr turns driver errors into repository sentinels.
func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// MongoTx runs fn inside a session transaction exactly once. A lost race
// surfaces as ErrConflict.
type MongoTx struct{ client *mongo.Client }

func (t *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(txOpts); err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	sctx := mongo.NewSessionContext(ctx, sess)
	if err := fn(sctx); err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(ctx))
		return mapMongoErr(err)
	}
	if err := sess.CommitTransaction(sctx); err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(ctx))
		return mapMongoErr(err)
	}
	return nil
}

type productDoc struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty"`
	Name     string               `bson:"name"`
	SKU      string               `bson:"sku"`
	Category string               `bson:"category,omitempty"`
	Price    primitive.Decimal128 `bson:"price"`
	Stock    int64                `bson:"stock"`
}

func (d productDoc) toDomain() (domain.Product, error) {
	price, err := fromDecimal128(d.Price)
	return domain.Product{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		SKU:      d.SKU,
		Category: d.Category,
		Price:    price,
		Stock:    d.Stock,
	}, err
}

func newProductDoc(p *domain.Product) (productDoc, error) {
	price, err := toDecimal128(p.Price)
	return productDoc{Name: p.Name, SKU: p.SKU, Category: p.Category, Price: price, Stock: p.Stock}, err
}

// MongoProducts implements ProductRepository on the products collection.
type MongoProducts struct{ coll *mongo.Collection }

var _ ProductRepository = (*MongoProducts)(nil)

func (r *MongoProducts) Create(ctx context.Context, p *domain.Product) error {
	doc, err := newProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *MongoProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoProducts) Update(ctx context.Context, p *domain.Product) error {
	oid, err := parseObjectID(p.ID)
	if err != nil {
		return err
	}
	doc, err := newProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	filter := bson.M{}
	if f.NameSubstring != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.NameSubstring), Options: "i"}
	}
	if f.Category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Category) + "$", Options: "i"}
	}
	var conv decimals
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = conv.to(*f.MinPrice)
	}
	if f.MaxPrice != nil {
		price["$lte"] = conv.to(*f.MaxPrice)
	}
	if conv.err != nil {
		return nil, conv.err
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)
	out := make([]domain.Product, 0)
	for cur.Next(ctx) {
		var doc productDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

func (r *MongoProducts) DecrementStock(ctx context.Context, id string, qty int64) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}},
	)
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return mapMongoErr(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return fmt.Errorf("%w: product %s has less than %d left", ErrConflict, id, qty)
	}
	return nil
}

func (r *MongoProducts) IncrementStock(ctx context.Context, id string, qty int64) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"stock": qty}})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type studioProductDoc struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	Name   string               `bson:"name"`
	Price  primitive.Decimal128 `bson:"price"`
	Active bool                 `bson:"active"`
}

func (d studioProductDoc) toDomain() (domain.StudioProduct, error) {
	price, err := fromDecimal128(d.Price)
	return domain.StudioProduct{ID: d.ID.Hex(), Name: d.Name, Price: price, Active: d.Active}, err
}

func newStudioProductDoc(id primitive.ObjectID, sp *domain.StudioProduct) (studioProductDoc, error) {
	price, err := toDecimal128(sp.Price)
	return studioProductDoc{ID: id, Name: sp.Name, Price: price, Active: sp.Active}, err
}

// MongoStudioProducts implements StudioProductRepository.
type MongoStudioProducts struct{ coll *mongo.Collection }

var _ StudioProductRepository = (*MongoStudioProducts)(nil)

func (r *MongoStudioProducts) Create(ctx context.Context, sp *domain.StudioProduct) error {
	doc, err := newStudioProductDoc(primitive.NewObjectID(), sp)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	sp.ID = doc.ID.Hex()
	return nil
}

func (r *MongoStudioProducts) GetByID(ctx context.Context, id string) (*domain.StudioProduct, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc studioProductDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	sp, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (r *MongoStudioProducts) Update(ctx context.Context, sp *domain.StudioProduct) error {
	oid, err := parseObjectID(sp.ID)
	if err != nil {
		return err
	}
	doc, err := newStudioProductDoc(oid, sp)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoStudioProducts) List(ctx context.Context) ([]domain.StudioProduct, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)
	out := make([]domain.StudioProduct, 0)
	for cur.Next(ctx) {
		var doc studioProductDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		sp, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, cur.Err()
}

type designDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID         string             `bson:"ownerId"`
	StudioProductID primitive.ObjectID `bson:"studioProductId"`
	Name            string             `bson:"name"`
	ArtworkURL      string             `bson:"artworkUrl,omitempty"`
	Placement       string             `bson:"placement,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func (d designDoc) toDomain() domain.Design {
	return domain.Design{
		ID:              d.ID.Hex(),
		OwnerID:         d.OwnerID,
		StudioProductID: d.StudioProductID.Hex(),
		Name:            d.Name,
		ArtworkURL:      d.ArtworkURL,
		Placement:       d.Placement,
		CreatedAt:       d.CreatedAt,
	}
}

// MongoDesigns implements DesignRepository.
type MongoDesigns struct{ coll *mongo.Collection }

var _ DesignRepository = (*MongoDesigns)(nil)

func (r *MongoDesigns) Create(ctx context.Context, d *domain.Design) error {
	spID, err := parseObjectID(d.StudioProductID)
	if err != nil {
		return err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	doc := designDoc{
		ID:              primitive.NewObjectID(),
		OwnerID:         d.OwnerID,
		StudioProductID: spID,
		Name:            d.Name,
		ArtworkURL:      d.ArtworkURL,
		Placement:       d.Placement,
		CreatedAt:       d.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	d.ID = doc.ID.Hex()
	return nil
}

func (r *MongoDesigns) GetByID(ctx context.Context, id string) (*domain.Design, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc designDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	d := doc.toDomain()
	return &d, nil
}

func (r *MongoDesigns) ListByOwner(ctx context.Context, ownerID string) ([]domain.Design, error) {
	cur, err := r.coll.Find(ctx, bson.M{"ownerId": ownerID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)
	out := make([]domain.Design, 0)
	for cur.Next(ctx) {
		var doc designDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

func (r *MongoDesigns) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type lineItemDoc struct {
	Product       primitive.ObjectID   `bson:"product,omitempty"`
	Design        primitive.ObjectID   `bson:"design,omitempty"`
	Name          string               `bson:"name,omitempty"`
	Quantity      int64                `bson:"quantity"`
	UnitPrice     primitive.Decimal128 `bson:"unitPrice"`
	Size          string               `bson:"size,omitempty"`
	Color         string               `bson:"color,omitempty"`
	Notes         string               `bson:"notes,omitempty"`
	Customization map[string]string    `bson:"customization,omitempty"`
}

type trackingDoc struct {
	Status string    `bson:"status"`
	Note   string    `bson:"note,omitempty"`
	Actor  string    `bson:"actor"`
	At     time.Time `bson:"at"`
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	UserID          string               `bson:"userId"`
	Items           []lineItemDoc        `bson:"items"`
	ShippingAddress domain.Address       `bson:"shippingAddress"`
	PaymentMethod   string               `bson:"paymentMethod,omitempty"`
	PaymentStatus   string               `bson:"paymentStatus"`
	TransactionID   string               `bson:"transactionId,omitempty"`
	Subtotal        primitive.Decimal128 `bson:"subtotal"`
	Tax             primitive.Decimal128 `bson:"tax"`
	Shipping        primitive.Decimal128 `bson:"shipping"`
	Total           primitive.Decimal128 `bson:"total"`
	Status          string               `bson:"status"`
	Tracking        []trackingDoc        `bson:"tracking"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func newOrderDoc(o *domain.Order) (orderDoc, error) {
	var conv decimals
	doc := orderDoc{
		UserID:          o.UserID,
		Items:           make([]lineItemDoc, 0, len(o.Items)),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.Payment.Method,
		PaymentStatus:   string(o.Payment.Status),
		TransactionID:   o.Payment.TransactionID,
		Subtotal:        conv.to(o.Subtotal),
		Tax:             conv.to(o.Tax),
		Shipping:        conv.to(o.Shipping),
		Total:           conv.to(o.Total),
		Status:          string(o.Status),
		Tracking:        make([]trackingDoc, 0, len(o.Tracking)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		li := lineItemDoc{
			Name:          it.Name,
			Quantity:      it.Quantity,
			UnitPrice:     conv.to(it.UnitPrice),
			Size:          it.Size,
			Color:         it.Color,
			Notes:         it.Notes,
			Customization: it.Customization,
		}
		oid, err := parseObjectID(it.Ref.RefID())
		if err != nil {
			return orderDoc{}, err
		}
		switch it.Ref.(type) {
		case domain.PhysicalRef:
			li.Product = oid
		case domain.CustomRef:
			li.Design = oid
		}
		doc.Items = append(doc.Items, li)
	}
	for _, ev := range o.Tracking {
		doc.Tracking = append(doc.Tracking, trackingDoc{Status: string(ev.Status), Note: ev.Note, Actor: ev.Actor, At: ev.At})
	}
	if conv.err != nil {
		return orderDoc{}, conv.err
	}
	return doc, nil
}

func (d orderDoc) toDomain() (domain.Order, error) {
	var conv decimals
	o := domain.Order{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Items:           make([]domain.LineItem, 0, len(d.Items)),
		ShippingAddress: d.ShippingAddress,
		Payment: domain.PaymentInfo{
			Method:        d.PaymentMethod,
			Status:        domain.PaymentStatus(d.PaymentStatus),
			TransactionID: d.TransactionID,
		},
		Subtotal:  conv.from(d.Subtotal),
		Tax:       conv.from(d.Tax),
		Shipping:  conv.from(d.Shipping),
		Total:     conv.from(d.Total),
		Status:    domain.OrderStatus(d.Status),
		Tracking:  make([]domain.TrackingEvent, 0, len(d.Tracking)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, li := range d.Items {
		var ref domain.ItemRef = domain.PhysicalRef{ProductID: li.Product.Hex()}
		if !li.Design.IsZero() {
			ref = domain.CustomRef{DesignID: li.Design.Hex()}
		}
		o.Items = append(o.Items, domain.LineItem{
			Ref:           ref,
			Name:          li.Name,
			Quantity:      li.Quantity,
			UnitPrice:     conv.from(li.UnitPrice),
			Size:          li.Size,
			Color:         li.Color,
			Notes:         li.Notes,
			Customization: li.Customization,
		})
	}
	for _, ev := range d.Tracking {
		o.Tracking = append(o.Tracking, domain.TrackingEvent{Status: domain.OrderStatus(ev.Status), Note: ev.Note, Actor: ev.Actor, At: ev.At})
	}
	return o, conv.err
}

// MongoOrders implements OrderRepository on the orders collection.
type MongoOrders struct{ coll *mongo.Collection }

var _ OrderRepository = (*MongoOrders)(nil)

func (r *MongoOrders) Create(ctx context.Context, o *domain.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapMongoErr(err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

func (r *MongoOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapMongoErr(err)
	}
	o, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MongoOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	filter := bson.M{}
	if userID != "" {
		filter["userId"] = userID
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, mapMongoErr(err)
	}
	defer cur.Close(ctx)
	out := make([]domain.Order, 0)
	for cur.Next(ctx) {
		var doc orderDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		o, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, cur.Err()
}

func (r *MongoOrders) Update(ctx context.Context, o *domain.Order) error {
	oid, err := parseObjectID(o.ID)
	if err != nil {
		return err
	}
	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return mapMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoOrders) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapMongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
