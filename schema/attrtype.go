// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"strings"
)

var (
	// "any" is internal, it marks envelope attributes whose values are
	// validated structurally elsewhere (e.g. patch op values)
	validTypes = []string{"string", "boolean", "decimal", "integer", "datetime", "binary", "reference", "complex", "any"}

	validMutability = []string{"readonly", "readwrite", "immutable", "writeonly"}

	validReturned = []string{"always", "never", "default", "request"}

	validUniqueness = []string{"none", "server", "global"}
)

// A ValueValidator performs an additional, attribute specific check on a
// single deserialized value. A non-nil error is reported as a bad value
// semantics issue on the attribute's location.
type ValueValidator func(value interface{}) error

// A ValueConverter transforms a single value during serialization or
// deserialization. Converters never validate, callers validate first.
type ValueConverter func(value interface{}) interface{}

// The definition of an attribute's type.
// All the fields are named identical to those defined in the schema definition
// in rfc7643 so that schema JSON files can be parsed using Go's default unmarshaller
type AttrType struct {
	Name            string      // name
	Type            string      // type
	Description     string      // description
	CaseExact       bool        // caseExact
	MultiValued     bool        // multiValued
	Mutability      string      // mutability
	Required        bool        // required
	Returned        string      // returned
	Uniqueness      string      // uniqueness
	SubAttributes   []*AttrType // subAttributes
	ReferenceTypes  []string    // referenceTypes
	CanonicalValues []string    // canonicalValues
	CanonicalExact  bool        `json:"-"` // a value outside CanonicalValues is an error, not a warning
	NormName        string      `json:"-"` // the lowercase form of Name
	SubAttrMap      map[string]*AttrType
	SchemaId        string           // schema's ID
	parent          *AttrType        // parent attribute
	Validators      []ValueValidator `json:"-"`
	Serializer      ValueConverter   `json:"-"`
	Deserializer    ValueConverter   `json:"-"`
}

// see section https://tools.ietf.org/html/rfc7643#section-2.2 for the defaults
func newAttrType() *AttrType {
	return &AttrType{Required: false, CaseExact: false, Mutability: "readWrite", Returned: "default", Uniqueness: "none", Type: "string"}
}

// NewAttrType returns an attribute definition of the given type with
// the rfc7643 section 2.2 defaults filled in.
func NewAttrType(name string, atType string) *AttrType {
	at := newAttrType()
	at.Name = name
	at.NormName = strings.ToLower(name)
	if len(atType) != 0 {
		at.Type = atType
	}

	return at
}

func (attr *AttrType) IsComplex() bool {
	return strings.ToLower(attr.Type) == "complex"
}

func (attr *AttrType) IsReference() bool {
	return strings.ToLower(attr.Type) == "reference"
}

func (attr *AttrType) IsSimple() bool {
	return !attr.IsComplex()
}

func (attr *AttrType) IsReadOnly() bool {
	return strings.ToLower(attr.Mutability) == "readonly"
}

func (attr *AttrType) IsImmutable() bool {
	return strings.ToLower(attr.Mutability) == "immutable"
}

func (attr *AttrType) IsWriteOnly() bool {
	return strings.ToLower(attr.Mutability) == "writeonly"
}

func (attr *AttrType) IsReturnedAlways() bool {
	return strings.ToLower(attr.Returned) == "always"
}

func (attr *AttrType) IsReturnedNever() bool {
	return strings.ToLower(attr.Returned) == "never"
}

func (attr *AttrType) IsReturnedOnRequest() bool {
	return strings.ToLower(attr.Returned) == "request"
}

func (attr *AttrType) IsStringFamily() bool {
	switch strings.ToLower(attr.Type) {
	case "string", "reference", "binary", "datetime":
		return true
	}

	return false
}

func (attr *AttrType) Parent() *AttrType {
	return attr.parent
}

// FullPath returns the schema qualified path of this attribute,
// e.g. urn:ietf:params:scim:schemas:core:2.0:User:name.givenName
func (attr *AttrType) FullPath() string {
	p := attr.Name
	if attr.parent != nil {
		p = attr.parent.Name + ATTR_DELIM + p
	}

	if len(attr.SchemaId) != 0 {
		p = attr.SchemaId + URI_DELIM + p
	}

	return p
}

// HasCanonicalValue reports whether the given value is one of the
// declared canonical values, honoring the attribute's case exactness.
func (attr *AttrType) HasCanonicalValue(val string) bool {
	for _, cv := range attr.CanonicalValues {
		if attr.CaseExact {
			if cv == val {
				return true
			}
		} else if strings.EqualFold(cv, val) {
			return true
		}
	}

	return false
}

// GetSubAt returns the definition of the named sub-attribute, nil when
// this attribute is not complex or has no such sub-attribute.
func (attr *AttrType) GetSubAt(name string) *AttrType {
	if attr.SubAttrMap == nil {
		return nil
	}

	return attr.SubAttrMap[strings.ToLower(name)]
}

// sets the default values on the missing common fields of schema's attribute type definitions
func setAttrDefaults(attr *AttrType) {
	if len(attr.Mutability) == 0 {
		attr.Mutability = "readWrite"
	}

	if len(attr.Returned) == 0 {
		attr.Returned = "default"
	}

	if len(attr.Uniqueness) == 0 {
		attr.Uniqueness = "none"
	}

	if len(attr.Type) == 0 {
		attr.Type = "string"
	}

	attr.NormName = strings.ToLower(attr.Name)

	for _, sa := range attr.SubAttributes {
		setAttrDefaults(sa)
	}
}

// add missing default sub-attributes https://tools.ietf.org/html/rfc7643#section-2.4
func addDefSubAttrs(attr *AttrType) {
	defArr := [5]*AttrType{}

	typeAttr := newAttrType()
	typeAttr.Name = "type"
	defArr[0] = typeAttr

	primaryAttr := newAttrType()
	primaryAttr.Name = "primary"
	primaryAttr.Type = "boolean"
	defArr[1] = primaryAttr

	displayAttr := newAttrType()
	displayAttr.Name = "display"
	displayAttr.Mutability = "immutable"
	defArr[2] = displayAttr

	valueAttr := newAttrType()
	valueAttr.Name = "value"
	defArr[3] = valueAttr

	refAttr := newAttrType()
	refAttr.Name = "$ref"
	refAttr.Type = "reference"
	refAttr.ReferenceTypes = []string{"external"}
	defArr[4] = refAttr

	for _, a := range defArr {
		key := strings.ToLower(a.Name)
		if attr.SubAttrMap[key] == nil {
			a.NormName = key
			a.SchemaId = attr.SchemaId
			a.parent = attr
			attr.SubAttrMap[key] = a
			attr.SubAttributes = append(attr.SubAttributes, a)
		}
	}
}

func exists(val string, list []string) bool {
	for _, token := range list {
		if token == val {
			return true
		}
	}

	return false
}
