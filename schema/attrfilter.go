// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"strings"
)

// An AttrFilter selects attribute definitions by representation. With
// Include set the listed attributes are kept, otherwise they are
// dropped. Attributes the protocol pins to a resource (schemas, id,
// externalId, meta), required attributes and attributes returned always
// survive the filter in either mode.
type AttrFilter struct {
	Include bool
	Reps    []BoundedAttrRep
}

func NewInclusionFilter(reps ...BoundedAttrRep) *AttrFilter {
	return &AttrFilter{Include: true, Reps: reps}
}

func NewExclusionFilter(reps ...BoundedAttrRep) *AttrFilter {
	return &AttrFilter{Include: false, Reps: reps}
}

var protectedAttrNames = map[string]bool{"schemas": true, "id": true, "externalid": true, "meta": true}

func isProtectedAttr(at *AttrType) bool {
	if at.Required || at.IsReturnedAlways() {
		return true
	}

	if at.parent != nil {
		return false
	}

	return protectedAttrNames[at.NormName]
}

// listed reports whether the attribute, or its parent, appears in the
// filter's representation list.
func (af *AttrFilter) listed(at *AttrType) bool {
	for _, rep := range af.Reps {
		if rep.HasSchema() && len(at.SchemaId) != 0 && !strings.EqualFold(rep.Schema, at.SchemaId) {
			continue
		}

		if at.parent != nil {
			if !strings.EqualFold(rep.Attr, at.parent.Name) {
				continue
			}

			if !rep.HasSubAttr() || strings.EqualFold(rep.SubAttr, at.Name) {
				return true
			}

			continue
		}

		if strings.EqualFold(rep.Attr, at.Name) {
			// a rep naming a sub-attribute keeps the parent around in
			// inclusion mode but drops only the sub-attribute when excluding
			if !rep.HasSubAttr() || af.Include {
				return true
			}
		}
	}

	return false
}

// Keep reports whether the given attribute definition survives the
// filter.
func (af *AttrFilter) Keep(at *AttrType) bool {
	if af == nil || isProtectedAttr(at) {
		return true
	}

	if af.Include {
		return af.listed(at)
	}

	return !af.listed(at)
}
