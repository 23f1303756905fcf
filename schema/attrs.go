// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// Attrs is an ordered collection of attribute definitions addressable
// by AttrRep. Lookup is case insensitive, iteration follows the order
// of registration.
type Attrs struct {
	list []*AttrType
	norm map[string]*AttrType
}

func NewAttrs() *Attrs {
	return &Attrs{list: make([]*AttrType, 0), norm: make(map[string]*AttrType)}
}

func (ats *Attrs) Add(at *AttrType) error {
	key := strings.ToLower(at.Name)
	if _, present := ats.norm[key]; present {
		return errors.Errorf("duplicate attribute name '%s'", at.Name)
	}

	ats.list = append(ats.list, at)
	ats.norm[key] = at
	return nil
}

func (ats *Attrs) Len() int {
	return len(ats.list)
}

// List returns the attributes in registration order. The returned slice
// must not be modified.
func (ats *Attrs) List() []*AttrType {
	return ats.list
}

// Get resolves the given representation to an attribute definition,
// descending into the sub-attribute when one is named. Returns nil when
// nothing matches.
func (ats *Attrs) Get(ar AttrRep) *AttrType {
	at := ats.norm[strings.ToLower(ar.Attr)]
	if at == nil {
		return nil
	}

	if !ar.HasSubAttr() {
		return at
	}

	if !at.IsComplex() {
		return nil
	}

	return at.GetSubAt(ar.SubAttr)
}

func (ats *Attrs) GetByName(name string) *AttrType {
	return ats.norm[strings.ToLower(name)]
}

// BoundedAttrs partitions attribute definitions by their owning schema
// URI. The base schema comes first, extensions follow in registration
// order.
type BoundedAttrs struct {
	uriOrder []string
	byUri    map[string]*Attrs // key is the lowercase URI
	display  map[string]string // lowercase URI to declared URI
}

func NewBoundedAttrs() *BoundedAttrs {
	return &BoundedAttrs{
		uriOrder: make([]string, 0),
		byUri:    make(map[string]*Attrs),
		display:  make(map[string]string),
	}
}

func (bas *BoundedAttrs) AddSchema(uri string, ats *Attrs) {
	key := strings.ToLower(uri)
	if _, present := bas.byUri[key]; !present {
		bas.uriOrder = append(bas.uriOrder, key)
		bas.display[key] = uri
	}

	bas.byUri[key] = ats
}

// SchemaUris returns the owning schema URIs in registration order,
// using their declared casing.
func (bas *BoundedAttrs) SchemaUris() []string {
	uris := make([]string, len(bas.uriOrder))
	for i, k := range bas.uriOrder {
		uris[i] = bas.display[k]
	}

	return uris
}

func (bas *BoundedAttrs) SchemaAttrs(uri string) *Attrs {
	return bas.byUri[strings.ToLower(uri)]
}

// Get resolves the given bounded representation. When the representation
// carries no schema URI every partition is searched in registration
// order, the first match wins.
func (bas *BoundedAttrs) Get(br BoundedAttrRep) *AttrType {
	if br.HasSchema() {
		ats := bas.byUri[strings.ToLower(br.Schema)]
		if ats == nil {
			return nil
		}

		return ats.Get(br.AttrRep())
	}

	for _, k := range bas.uriOrder {
		if at := bas.byUri[k].Get(br.AttrRep()); at != nil {
			return at
		}
	}

	return nil
}
