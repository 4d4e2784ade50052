package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixtures writes a full set of minimal table files into dir, then
// applies overrides for individual tables.
func writeFixtures(t *testing.T, dir string, overrides map[string]string) {
	t.Helper()

	files := map[string]string{
		"orders.csv": "order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_customer_date,order_estimated_delivery_date\n" +
			"o1,c1,delivered,2023-05-10 14:30:00,2023-05-10 15:00:00,2023-05-15 09:00:00,2023-05-20 00:00:00\n",
		"order_items.csv": "order_id,order_item_id,product_id,price,freight_value\n" +
			"o1,1,p1,100.00,10.00\n",
		"products.csv":  "product_id,product_category_name\np1,beleza_saude\n",
		"customers.csv": "customer_id,customer_city,customer_state,customer_zip_code_prefix\nc1,Sao Paulo,sp,01310\n",
		"order_reviews.csv":  "order_id,review_score\no1,5\n",
		"order_payments.csv": "order_id,payment_type,payment_installments,payment_value\no1,credit_card,1,110.00\n",
	}
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, nil)

	loader := NewLoader(NewLocalSource(dir))
	tables, err := loader.LoadAll(context.Background())
	require.NoError(t, err)

	require.Len(t, tables.Orders, 1)
	order := tables.Orders[0]
	assert.Equal(t, "o1", order.OrderID)
	assert.Equal(t, "delivered", order.Status)
	require.NotNil(t, order.PurchaseTimestamp)
	assert.Equal(t, 2023, order.PurchaseTimestamp.Year())
	assert.Equal(t, time.May, order.PurchaseTimestamp.Month())
	require.NotNil(t, order.DeliveredTimestamp)
	require.NotNil(t, order.EstimatedDeliveryTimestamp)

	require.Len(t, tables.OrderItems, 1)
	item := tables.OrderItems[0]
	assert.Equal(t, 1, item.ItemSequence)
	require.NotNil(t, item.Price)
	assert.Equal(t, 100.0, *item.Price)
	require.NotNil(t, item.FreightValue)
	assert.Equal(t, 10.0, *item.FreightValue)

	require.Len(t, tables.Customers, 1)
	assert.Equal(t, "sao paulo", tables.Customers[0].City)
	assert.Equal(t, "SP", tables.Customers[0].State)

	require.Len(t, tables.Reviews, 1)
	require.NotNil(t, tables.Reviews[0].Score)
	assert.Equal(t, 5.0, *tables.Reviews[0].Score)

	require.Len(t, tables.Payments, 1)
	assert.Equal(t, "credit_card", tables.Payments[0].Type)

	assert.Equal(t, 0, loader.Stats().UnparsableTimestamps)
	assert.Equal(t, 0, loader.Stats().UnparsableNumbers)
}

func TestLoadTolerantParsing(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{
		"orders.csv": "order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_customer_date,order_estimated_delivery_date\n" +
			"o1,c1,delivered,not-a-date,,2023-05-15 09:00:00,2023-05-20 00:00:00\n" +
			"o2,c2,shipped,2023-06-01 10:00:00,,,\n",
		"order_items.csv": "order_id,order_item_id,product_id,price,freight_value\n" +
			"o1,1,p1,abc,10.00\n" +
			"o2,1,p1,50.00,\n",
	})

	loader := NewLoader(NewLocalSource(dir))
	tables, err := loader.LoadAll(context.Background())
	require.NoError(t, err)

	// Unparsable timestamp becomes nil, not an error
	assert.Nil(t, tables.Orders[0].PurchaseTimestamp)
	// Empty timestamps are nil without counting as unparsable
	assert.Nil(t, tables.Orders[1].DeliveredTimestamp)
	assert.Equal(t, 1, loader.Stats().UnparsableTimestamps)

	// Unparsable price becomes nil; empty freight is nil uncounted
	assert.Nil(t, tables.OrderItems[0].Price)
	assert.Nil(t, tables.OrderItems[1].FreightValue)
	require.NotNil(t, tables.OrderItems[1].Price)
	assert.Equal(t, 50.0, *tables.OrderItems[1].Price)
	assert.Equal(t, 1, loader.Stats().UnparsableNumbers)
}

func TestLoadMalformedRowsCounted(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{
		"orders.csv": "order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_customer_date,order_estimated_delivery_date\n" +
			"o1,c1,delivered,2023-05-10 14:30:00,,2023-05-15 09:00:00,2023-05-20 00:00:00\n" +
			",c9,delivered,2023-06-01 10:00:00,,,\n",
		"order_reviews.csv": "order_id,review_score\n" +
			"o1,5\n" +
			",4\n",
	})

	loader := NewLoader(NewLocalSource(dir))
	tables, err := loader.LoadAll(context.Background())
	require.NoError(t, err)

	// Keyless rows are dropped, not loaded with empty identifiers.
	require.Len(t, tables.Orders, 1)
	assert.Equal(t, "o1", tables.Orders[0].OrderID)
	require.Len(t, tables.Reviews, 1)

	assert.Equal(t, 2, loader.Stats().MalformedRows)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, nil)
	require.NoError(t, os.Remove(filepath.Join(dir, "order_payments.csv")))

	loader := NewLoader(NewLocalSource(dir))
	_, err := loader.LoadAll(context.Background())

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr), "want *LoadError, got %v", err)
	assert.Equal(t, TablePayments, loadErr.Table)
}

func TestLoadMissingColumns(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{
		"orders.csv": "order_id,customer_id\no1,c1\n",
	})

	loader := NewLoader(NewLocalSource(dir))
	_, err := loader.LoadAll(context.Background())

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr), "want *SchemaError, got %v", err)
	assert.Equal(t, TableOrders, schemaErr.Table)
	assert.Contains(t, schemaErr.Missing, "order_status")
	assert.Contains(t, schemaErr.Missing, "order_purchase_timestamp")
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, map[string]string{"products.csv": ""})

	loader := NewLoader(NewLocalSource(dir))
	_, err := loader.LoadAll(context.Background())

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr), "want *SchemaError, got %v", err)
	assert.Equal(t, TableProducts, schemaErr.Table)
}

func TestLocalSourceSignature(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir, nil)
	source := NewLocalSource(dir)

	sig1, err := source.Signature(context.Background())
	require.NoError(t, err)
	sig2, err := source.Signature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2, "signature must be stable for unchanged files")

	// Touching a file with different content must change the signature
	path := filepath.Join(dir, "orders.csv")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(content, []byte("o9,c9,canceled,2023-01-01 00:00:00,,,\n")...), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	sig3, err := source.Signature(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, sig1, sig3, "signature must change when a file changes")
}
