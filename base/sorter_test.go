// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scimcore/schema"
)

func resourcesFrom(userNames ...interface{}) []*ScimData {
	out := make([]*ScimData, len(userNames))
	for i, un := range userNames {
		obj := map[string]interface{}{"id": "x"}
		if un != nil {
			obj["userName"] = un
		}
		out[i] = FromMap(obj)
	}

	return out
}

func userNamesOf(resources []*ScimData) []interface{} {
	out := make([]interface{}, len(resources))
	for i, r := range resources {
		v := r.Get("userName")
		if IsMissing(v) {
			out[i] = nil
		} else {
			out[i] = v
		}
	}

	return out
}

func TestAscendingSort(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("userName", "ascending")
	require.Nil(t, err)

	sorted, err := st.Sort(resourcesFrom("charlie", "alice", "bob"), rt)
	require.Nil(t, err)

	assert.Equal(t, []interface{}{"alice", "bob", "charlie"}, userNamesOf(sorted))
}

func TestDescendingSort(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("userName", "descending")
	require.Nil(t, err)

	sorted, err := st.Sort(resourcesFrom("charlie", "alice", "bob"), rt)
	require.Nil(t, err)

	assert.Equal(t, []interface{}{"charlie", "bob", "alice"}, userNamesOf(sorted))
}

func TestMissingValuesSortLast(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("userName", "ascending")
	require.Nil(t, err)

	sorted, err := st.Sort(resourcesFrom(nil, "bob", "alice"), rt)
	require.Nil(t, err)
	assert.Equal(t, []interface{}{"alice", "bob", nil}, userNamesOf(sorted))

	// present values come first regardless of the order
	st, err = NewSorter("userName", "descending")
	require.Nil(t, err)

	sorted, err = st.Sort(resourcesFrom(nil, "bob", "alice"), rt)
	require.Nil(t, err)
	assert.Equal(t, []interface{}{"bob", "alice", nil}, userNamesOf(sorted))
}

func TestSortIsIdempotentAndStable(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("userName", "ascending")
	require.Nil(t, err)

	a := FromMap(map[string]interface{}{"userName": "same", "id": "1"})
	b := FromMap(map[string]interface{}{"userName": "same", "id": "2"})
	c := FromMap(map[string]interface{}{"userName": "aaa", "id": "3"})

	sorted, err := st.Sort([]*ScimData{a, b, c}, rt)
	require.Nil(t, err)

	// equal keys keep their relative order
	assert.Equal(t, "3", sorted[0].Get("id"))
	assert.Equal(t, "1", sorted[1].Get("id"))
	assert.Equal(t, "2", sorted[2].Get("id"))

	again, err := st.Sort(sorted, rt)
	require.Nil(t, err)
	assert.Equal(t, sorted, again)
}

func TestSortByMultiValuedComplexPrefersPrimary(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("emails", "ascending")
	require.Nil(t, err)

	withPrimary := FromMap(map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "zzz@x.com"},
			map[string]interface{}{"value": "aaa@x.com", "primary": true},
		},
	})

	other := FromMap(map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "mmm@x.com"},
		},
	})

	sorted, err := st.Sort([]*ScimData{other, withPrimary}, rt)
	require.Nil(t, err)

	// the primary element's value (aaa) sorts before mmm
	first, _ := sorted[0].Get("emails").([]interface{})
	require.NotEmpty(t, first)
	assert.True(t, sorted[0] == withPrimary)
}

func TestSortCaseExactness(t *testing.T) {
	rt := schema.NewUserResourceType()

	// userName is not case exact, so casing must not affect the order
	st, err := NewSorter("userName", "ascending")
	require.Nil(t, err)

	sorted, err := st.Sort(resourcesFrom("Bob", "alice"), rt)
	require.Nil(t, err)
	assert.Equal(t, []interface{}{"alice", "Bob"}, userNamesOf(sorted))
}

func TestSortByUnknownAttrIsUsageError(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("frobnicator", "ascending")
	require.Nil(t, err)

	_, err = st.Sort(resourcesFrom("a"), rt)
	assert.NotNil(t, err)
}

func TestInOrder(t *testing.T) {
	rt := schema.NewUserResourceType()

	st, err := NewSorter("userName", "ascending")
	require.Nil(t, err)

	ok, err := st.InOrder(resourcesFrom("alice", "bob"), rt)
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = st.InOrder(resourcesFrom("bob", "alice"), rt)
	require.Nil(t, err)
	assert.False(t, ok)
}
