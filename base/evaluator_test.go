// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scimcore/schema"
)

func evalAgainst(t *testing.T, filter string, data map[string]interface{}) bool {
	t.Helper()

	node, vi := ParseFilter(filter)
	require.False(t, vi.HasErrors(), "filter %s did not parse: %v", filter, vi.ToMap(true))

	return EvaluateFilter(node, FromMap(data), schema.NewUserResourceType())
}

func TestComplexGroupEvaluation(t *testing.T) {
	filter := `emails[type eq 'work' and value co '@example.com']`

	matched := evalAgainst(t, filter, map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "a@example.com"},
		},
	})
	assert.True(t, matched)

	matched = evalAgainst(t, filter, map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"type": "home", "value": "a@example.com"},
		},
	})
	assert.False(t, matched)

	// the whole group must hold on one element, not across elements
	matched = evalAgainst(t, filter, map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "a@other.org"},
			map[string]interface{}{"type": "home", "value": "a@example.com"},
		},
	})
	assert.False(t, matched)
}

func TestProjectedSubAttrEvaluation(t *testing.T) {
	// outside a complex group a sub-attribute of a multi-valued complex
	// attribute means "any element matches"
	matched := evalAgainst(t, `emails.value co 'example.com'`, map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"type": "home", "value": "x@other.org"},
			map[string]interface{}{"type": "work", "value": "y@example.com"},
		},
	})
	assert.True(t, matched)
}

func TestUnknownAttrsNeverMatch(t *testing.T) {
	data := map[string]interface{}{"userName": "bjensen"}

	assert.False(t, evalAgainst(t, `frobnicator eq 'x'`, data))
	assert.False(t, evalAgainst(t, `frobnicator pr`, data))
	assert.True(t, evalAgainst(t, `not (frobnicator pr)`, data))
}

func TestCaseSemantics(t *testing.T) {
	data := map[string]interface{}{"userName": "BJensen", "id": "ABC"}

	// userName is not case exact
	assert.True(t, evalAgainst(t, `userName eq 'bjensen'`, data))
	assert.True(t, evalAgainst(t, `userName sw 'bj'`, data))

	// id is case exact
	assert.False(t, evalAgainst(t, `id eq 'abc'`, data))
	assert.True(t, evalAgainst(t, `id eq 'ABC'`, data))
}

func TestOrderingComparisons(t *testing.T) {
	data := map[string]interface{}{
		"userName": "bjensen",
		"meta": map[string]interface{}{
			"created": "2011-05-13T04:42:34Z",
		},
	}

	assert.True(t, evalAgainst(t, `meta.created gt '2011-01-01T00:00:00Z'`, data))
	assert.False(t, evalAgainst(t, `meta.created lt '2011-01-01T00:00:00Z'`, data))
	assert.True(t, evalAgainst(t, `meta.created le '2011-05-13T04:42:34Z'`, data))

	// lexicographic ordering on strings
	assert.True(t, evalAgainst(t, `userName gt 'a'`, data))
	assert.False(t, evalAgainst(t, `userName gt 'z'`, data))
}

func TestEvaluationIsTotalBoolean(t *testing.T) {
	// F(d) == !(not F)(d) over present and missing inputs
	filters := []string{
		`userName eq 'bjensen'`,
		`nickName pr`,
		`emails[type eq 'work']`,
		`active eq true`,
	}

	datas := []map[string]interface{}{
		{"userName": "bjensen"},
		{},
		{"emails": []interface{}{map[string]interface{}{"type": "work"}}},
		{"active": false},
	}

	rt := schema.NewUserResourceType()

	for _, f := range filters {
		node, vi := ParseFilter(f)
		require.False(t, vi.HasErrors())

		negated, vi := ParseFilter("not (" + f + ")")
		require.False(t, vi.HasErrors())

		for _, d := range datas {
			sd := FromMap(d)
			assert.Equal(t,
				EvaluateFilter(node, sd, rt),
				!EvaluateFilter(negated, sd, rt),
				"filter %s against %v", f, d)
		}
	}
}

func TestLogicalEvaluation(t *testing.T) {
	data := map[string]interface{}{"userName": "bjensen", "active": true}

	assert.True(t, evalAgainst(t, `userName eq 'bjensen' and active eq true`, data))
	assert.False(t, evalAgainst(t, `userName eq 'other' and active eq true`, data))
	assert.True(t, evalAgainst(t, `userName eq 'other' or active eq true`, data))
	assert.True(t, evalAgainst(t, `not (userName eq 'other') and active eq true`, data))
}

func TestValidateFilterComplexGroupTarget(t *testing.T) {
	rt := schema.NewUserResourceType()

	// name is complex but not multi-valued
	node, vi := ParseFilter(`name[givenName eq 'Barbara']`)
	require.False(t, vi.HasErrors())

	vi = ValidateFilter(node, rt)
	assert.True(t, vi.HasErrors())
	assert.Equal(t, []int{102}, vi.CodesAt())
}
