// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scimcore/schema"
	"scimcore/utils"
)

func TestMillisDateTimeConverters(t *testing.T) {
	millis := MillisDateTimeDeserializer("2011-05-13T04:42:34Z")
	require.IsType(t, int64(0), millis)

	back := MillisDateTimeSerializer(millis)
	assert.Equal(t, "2011-05-13T04:42:34Z", back)

	// a round trip through the current time stays intact
	now := utils.DateTime()
	assert.Equal(t, now, MillisDateTimeSerializer(MillisDateTimeDeserializer(now)))

	// values that are not datetimes ride through untouched
	assert.Equal(t, "garbage", MillisDateTimeDeserializer("garbage"))
	assert.Equal(t, true, MillisDateTimeSerializer(true))
}

func TestIntegerRejectsFractions(t *testing.T) {
	at := schema.NewAttrType("age", "integer")

	vi := checkSimpleValue(at, float64(25))
	assert.False(t, vi.HasErrors())

	vi = checkSimpleValue(at, float64(25.5))
	assert.Equal(t, []int{2}, vi.CodesAt())

	vi = checkSimpleValue(at, "25")
	assert.Equal(t, []int{2}, vi.CodesAt())
}

func TestDecimalKeepsPrecision(t *testing.T) {
	at := schema.NewAttrType("weight", "decimal")

	vi := checkSimpleValue(at, json.Number("12.3456789012345678901"))
	assert.False(t, vi.HasErrors())

	d, ok := toDecimal(json.Number("12.3456789012345678901"))
	require.True(t, ok)
	assert.Equal(t, "12.3456789012345678901", d.String())
}

func TestReferenceWellFormedness(t *testing.T) {
	at := schema.NewAttrType("profileUrl", "reference")
	at.ReferenceTypes = []string{"external"}

	for _, ok := range []string{
		"https://example.com/Users/2819c223",
		"/Users/2819c223",
		"urn:ietf:params:scim:schemas:core:2.0:User",
	} {
		vi := checkSimpleValue(at, ok)
		assert.False(t, vi.HasErrors(), "reference %s must be accepted", ok)
	}

	vi := checkSimpleValue(at, "not a uri")
	assert.Equal(t, []int{16}, vi.CodesAt())
}

func TestCustomValidatorIssues(t *testing.T) {
	at := schema.NewAttrType("userName", "string")
	at.Validators = []schema.ValueValidator{
		func(v interface{}) error {
			if v == "forbidden" {
				return assert.AnError
			}
			return nil
		},
	}

	vi := checkSimpleValue(at, "allowed")
	assert.False(t, vi.HasErrors())

	vi = checkSimpleValue(at, "forbidden")
	assert.Equal(t, []int{4}, vi.CodesAt())
}

func TestNullValueIsBadType(t *testing.T) {
	at := schema.NewAttrType("nickName", "string")

	vi := checkSimpleValue(at, nil)
	assert.Equal(t, []int{2}, vi.CodesAt())
}
