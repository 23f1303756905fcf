// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"scimcore/schema"
)

// A Sorter produces the rfc7644 section 3.4.2.3 total order over a
// collection of resources. Immutable and safe for concurrent use.
type Sorter struct {
	By        schema.BoundedAttrRep
	Ascending bool
}

// NewSorter builds a sorter for the given attribute path and order.
// Order is "ascending" or "descending", empty defaults to ascending.
func NewSorter(sortBy string, sortOrder string) (*Sorter, error) {
	rep, err := schema.ParseAttrRep(sortBy)
	if err != nil {
		return nil, err
	}

	asc := true
	switch strings.ToLower(sortOrder) {
	case "", "ascending":
	case "descending":
		asc = false
	default:
		return nil, errors.Errorf("unknown sort order '%s'", sortOrder)
	}

	return &Sorter{By: rep, Ascending: asc}, nil
}

// Sort orders the given resources in place and returns them. The sort
// is stable: resources that compare equal keep their relative order, so
// sorting twice is idempotent. Sorting by an attribute unknown to the
// resource type is a caller mistake.
func (st *Sorter) Sort(resources []*ScimData, rt *schema.ResourceType) ([]*ScimData, error) {
	atType := rt.ResolveRep(st.By)
	if atType == nil {
		return nil, errors.Errorf("no attribute type found with the name %s in the resource type %s", st.By.String(), rt.Name)
	}

	keyType := sortKeyType(atType)

	sort.SliceStable(resources, func(i, j int) bool {
		cmp := st.compareResources(resources[i], resources[j], keyType)
		if st.Ascending {
			return cmp < 0
		}

		return cmp > 0
	})

	return resources, nil
}

// InOrder reports whether the given resources already honor the sort.
func (st *Sorter) InOrder(resources []*ScimData, rt *schema.ResourceType) (bool, error) {
	atType := rt.ResolveRep(st.By)
	if atType == nil {
		return false, errors.Errorf("no attribute type found with the name %s in the resource type %s", st.By.String(), rt.Name)
	}

	keyType := sortKeyType(atType)

	for i := 1; i < len(resources); i++ {
		cmp := st.compareResources(resources[i-1], resources[i], keyType)
		if !st.Ascending {
			cmp = -cmp
		}

		if cmp > 0 {
			return false, nil
		}
	}

	return true, nil
}

// sortKeyType resolves the attribute whose values actually become sort
// keys: for a multi-valued complex attribute that is its "value"
// sub-attribute.
func sortKeyType(atType *schema.AttrType) *schema.AttrType {
	if atType.IsComplex() {
		if value := atType.GetSubAt("value"); value != nil {
			return value
		}
	}

	return atType
}

// compareResources compares the sort keys of two resources. Present
// values always order before Missing, regardless of direction, which is
// why the missing check sits outside the asc/desc flip.
func (st *Sorter) compareResources(a *ScimData, b *ScimData, keyType *schema.AttrType) int {
	av := st.sortKey(a)
	bv := st.sortKey(b)

	aMissing := !present(av)
	bMissing := !present(bv)

	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		if st.Ascending {
			return 1
		}
		return -1
	case bMissing:
		if st.Ascending {
			return -1
		}
		return 1
	}

	return compareKeys(keyType, av, bv)
}

// sortKey extracts the value a resource is ordered by. For a
// multi-valued complex attribute the primary element wins, otherwise
// the first element is used, which keeps the choice deterministic.
func (st *Sorter) sortKey(sd *ScimData) interface{} {
	v := sd.GetRep(st.By)
	if IsMissing(v) {
		return Missing
	}

	arr, ok := v.([]interface{})
	if !ok {
		return v
	}

	if len(arr) == 0 {
		return Missing
	}

	var key interface{} = Missing

	for i, e := range arr {
		obj, isObj := e.(*ScimData)
		if !isObj {
			if i == 0 {
				key = e
			}
			continue
		}

		if i == 0 {
			key = obj.Get("value")
		}

		if primary, ok := toBool(obj.Get("primary")); ok && primary {
			key = obj.Get("value")
			break
		}
	}

	return key
}

func compareKeys(keyType *schema.AttrType, a interface{}, b interface{}) int {
	switch strings.ToLower(keyType.Type) {
	case "integer", "decimal":
		ad, aOk := toDecimal(a)
		bd, bOk := toDecimal(b)
		if aOk && bOk {
			return ad.Cmp(bd)
		}

	case "datetime":
		as, aOk := toStr(a)
		bs, bOk := toStr(b)
		if aOk && bOk {
			at, err1 := time.Parse(time.RFC3339, as)
			bt, err2 := time.Parse(time.RFC3339, bs)
			if err1 == nil && err2 == nil {
				return at.Compare(bt)
			}
		}

	case "boolean":
		ab, aOk := toBool(a)
		bb, bOk := toBool(b)
		if aOk && bOk {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			}
			return 1
		}
	}

	as, aOk := toStr(a)
	bs, bOk := toStr(b)
	if !aOk || !bOk {
		return 0
	}

	if !keyType.CaseExact {
		as = strings.ToLower(as)
		bs = strings.ToLower(bs)
	}

	return strings.Compare(as, bs)
}
