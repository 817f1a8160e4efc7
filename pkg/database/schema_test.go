package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDeclaresPipelineTables(t *testing.T) {
	for _, table := range []string{"products", "customers", "carts", "cart_lines", "orders", "order_items", "payments", "shipments", "fulfillment_failures", "outbox"} {
		assert.True(t, strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table+" ("), table)
	}
}

func TestStockCannotGoNegative(t *testing.T) {
	assert.Contains(t, Schema, "CHECK (stock >= 0)")
}
