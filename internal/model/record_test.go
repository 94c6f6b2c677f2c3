package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTraceNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "002191046216", NormalizeTraceNumber("0021-9104-6216"))
	assert.Equal(t, "002191046216", NormalizeTraceNumber(" 0021 9104 6216 "))
	assert.Equal(t, "002191046216", NormalizeTraceNumber("002191046216"))
	assert.Equal(t, "", NormalizeTraceNumber("  "))
}

func TestIsLabelNumber(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLabelNumber("L00123456789"))
	assert.True(t, IsLabelNumber("l-0012345678"))
	assert.True(t, IsLabelNumber(" L 0012345678"))
	assert.False(t, IsLabelNumber("002191046216"))
	assert.False(t, IsLabelNumber(""))
}

func TestIsValidTraceNumber(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidTraceNumber("002191046216"))
	assert.True(t, IsValidTraceNumber("0021-9104-6216"))
	assert.False(t, IsValidTraceNumber("12345"))
	assert.False(t, IsValidTraceNumber("L00123456789"))
	assert.False(t, IsValidTraceNumber("0021910462167"))
}

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	bare := TraceRecord{TraceNumber: "002191046216"}
	withEmptyDelivery := TraceRecord{TraceNumber: "002191046216", Delivery: &Delivery{}}
	assert.Equal(t, bare.IdentityKey(), withEmptyDelivery.IdentityKey())

	a := TraceRecord{TraceNumber: "002191046216", Delivery: &Delivery{Destination: "서울길원초등학교"}}
	b := TraceRecord{TraceNumber: "002191046216", Delivery: &Delivery{Destination: "부산동성초등학교"}}
	assert.NotEqual(t, a.IdentityKey(), b.IdentityKey())

	c := TraceRecord{TraceNumber: "002191046216", Delivery: &Delivery{Destination: "서울길원초등학교", WeightKg: "14.1"}}
	assert.NotEqual(t, a.IdentityKey(), c.IdentityKey())
}
