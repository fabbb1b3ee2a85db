package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"atelier/internal/domain"
)

// Needs a replica set, e.g. ATELIER_TEST_MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("ATELIER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ATELIER_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("atelier_test_%d", time.Now().UnixNano())
	store, err := NewMongo(ctx, uri, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if err == nil {
			_ = client.Database(dbName).Drop(context.Background())
			_ = client.Disconnect(context.Background())
		}
		_ = store.Close(context.Background())
	})

	runStoreContract(t, store, primitive.NewObjectID().Hex())
}

func TestMongoDecimalRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "29.99", "1234567.89", "0.01"} {
		v, err := toDecimal128(decimal.RequireFromString(s))
		require.NoError(t, err)
		d, err := fromDecimal128(v)
		require.NoError(t, err)
		require.Equal(t, s, d.String())
	}
}

func TestMongoDecimal_TooManyDigits(t *testing.T) {
	huge := decimal.RequireFromString("1234567890123456789012345678901234567.89")
	_, err := toDecimal128(huge)
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = newProductDoc(&domain.Product{Name: "Gold tee", SKU: "G-1", Price: huge})
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = newOrderDoc(&domain.Order{Subtotal: huge})
	require.ErrorIs(t, err, ErrInvalidValue)
}
