package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, ValidationRate(0, 0))
	assert.Zero(t, ValidationRate(-1, 3))
	assert.InDelta(t, 100.0, ValidationRate(4, 4), 1e-9)
	assert.InDelta(t, 66.666, ValidationRate(3, 2), 1e-3)
}

func TestProductRecordClone(t *testing.T) {
	t.Parallel()

	orig := ProductRecord{SKU: "DS-1", Accessories: []string{"Support"}, Filters: []string{"IP"}}
	c := orig.Clone()
	c.Accessories[0] = "changed"
	c.Filters = append(c.Filters, "extra")

	assert.Equal(t, "Support", orig.Accessories[0])
	assert.Equal(t, []string{"IP"}, orig.Filters)
	assert.Equal(t, "DS-1", c.SKU)
}
