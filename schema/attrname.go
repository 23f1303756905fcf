// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const URI_DELIM = ":"

const ATTR_DELIM = "."

// ATTRNAME   = ALPHA *(nameChar)
// nameChar   = "-" / "_" / DIGIT / ALPHA
// see section 2.1 of rfc7643, the '$' prefix of "$ref" is handled separately
var validNameRegex = regexp.MustCompile(`^[A-Za-z][0-9A-Za-z_-]*$`)

// ValidAttrName reports whether the given name is a legal attribute name.
// The "$ref" sub-attribute is the single RFC-sanctioned exception to the
// leading-ALPHA rule.
func ValidAttrName(name string) bool {
	if name == "$ref" {
		return true
	}

	return validNameRegex.MatchString(name)
}

// An AttrRep identifies an attribute, and optionally one of its
// sub-attributes, local to a schema. The display casing given at
// construction is preserved, comparison is case insensitive.
type AttrRep struct {
	Attr    string
	SubAttr string
}

func NewAttrRep(attr string) AttrRep {
	return AttrRep{Attr: attr}
}

func NewSubAttrRep(attr string, subAttr string) AttrRep {
	return AttrRep{Attr: attr, SubAttr: subAttr}
}

func (ar AttrRep) HasSubAttr() bool {
	return len(ar.SubAttr) != 0
}

func (ar AttrRep) String() string {
	if ar.HasSubAttr() {
		return ar.Attr + ATTR_DELIM + ar.SubAttr
	}

	return ar.Attr
}

func (ar AttrRep) Equal(other AttrRep) bool {
	return strings.EqualFold(ar.Attr, other.Attr) && strings.EqualFold(ar.SubAttr, other.SubAttr)
}

// A BoundedAttrRep identifies an attribute, and optionally one of its
// sub-attributes, within a schema identified by its URI. The URI is
// compared case insensitively as well.
type BoundedAttrRep struct {
	Schema    string
	Attr      string
	SubAttr   string
	Extension bool
}

func NewBoundedAttrRep(schemaUri string, attr string, subAttr string) BoundedAttrRep {
	return BoundedAttrRep{Schema: schemaUri, Attr: attr, SubAttr: subAttr}
}

func (br BoundedAttrRep) HasSchema() bool {
	return len(br.Schema) != 0
}

func (br BoundedAttrRep) HasSubAttr() bool {
	return len(br.SubAttr) != 0
}

// String returns the canonical form schemaUri:attr.subAttr, the short
// form is returned when no schema URI is bound.
func (br BoundedAttrRep) String() string {
	s := br.Attr
	if br.HasSubAttr() {
		s += ATTR_DELIM + br.SubAttr
	}

	if br.HasSchema() {
		s = br.Schema + URI_DELIM + s
	}

	return s
}

func (br BoundedAttrRep) Equal(other BoundedAttrRep) bool {
	return strings.EqualFold(br.Schema, other.Schema) &&
		strings.EqualFold(br.Attr, other.Attr) &&
		strings.EqualFold(br.SubAttr, other.SubAttr)
}

func (br BoundedAttrRep) AttrRep() AttrRep {
	return AttrRep{Attr: br.Attr, SubAttr: br.SubAttr}
}

// SplitPath splits an attribute path of the form [uri:]attr[.sub] into
// its components. The URI, if any, ends at the last ':' because attribute
// names can never contain one. The '.' is looked up only after the URI
// since URNs routinely contain dots (e.g. ...:core:2.0:User).
func SplitPath(path string) (uri string, attr string, subAttr string) {
	colonPos := strings.LastIndex(path, URI_DELIM)
	if colonPos > 0 {
		uri = path[:colonPos]
		path = path[colonPos+1:]
	}

	dotPos := strings.IndexRune(path, '.')
	if dotPos > 0 {
		attr = path[:dotPos]
		subAttr = path[dotPos+1:]
	} else {
		attr = path
	}

	return uri, attr, subAttr
}

// ParseAttrRep parses a [uri:]attr[.sub] path into a BoundedAttrRep.
// A malformed path is a caller mistake and is returned as an error.
func ParseAttrRep(path string) (BoundedAttrRep, error) {
	uri, attr, subAttr := SplitPath(path)

	br := BoundedAttrRep{Schema: uri, Attr: attr, SubAttr: subAttr}

	if !ValidAttrName(attr) {
		return br, errors.Errorf("invalid attribute name '%s' in the path %s", attr, path)
	}

	if len(subAttr) != 0 && !ValidAttrName(subAttr) {
		return br, errors.Errorf("invalid sub-attribute name '%s' in the path %s", subAttr, path)
	}

	return br, nil
}
