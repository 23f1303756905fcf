// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"encoding/json"
	"strings"

	"github.com/hashicorp/go-multierror"
	logger "github.com/juju/loggo"
	"github.com/pkg/errors"
)

var log logger.Logger

func init() {
	log = logger.GetLogger("scimcore.schema")
}

// Definition of a schema: a named, URI identified, ordered set of
// attribute definitions. A Schema is immutable once constructed and is
// safe for concurrent use.
type Schema struct {
	Id          string // id
	Name        string // name
	PluralName  string // pluralName
	Endpoint    string // endpoint
	Description string // description
	Attributes  []*AttrType
	AttrMap     map[string]*AttrType
	RequiredAts []string

	// names of attribute pairs that must not appear together in one payload
	ExclusiveAts [][]string

	AtsAlwaysRtn  map[string]int // names of attributes that are always returned
	AtsNeverRtn   map[string]int // names of attributes that are never returned
	AtsRequestRtn map[string]int // names of attributes that are returned if requested
	AtsDefaultRtn map[string]int // names of attributes that are returned by default
}

// NewSchema parses the given schema definition data and returns a schema
// instance after successful validation of the definition.
func NewSchema(data []byte) (*Schema, error) {
	return NewFilteredSchema(data, nil)
}

// NewFilteredSchema parses the given schema definition data keeping only
// the attributes selected by the given filter. Required attributes and
// the attributes the protocol mandates are kept regardless.
func NewFilteredSchema(data []byte, af *AttrFilter) (*Schema, error) {
	sc := &Schema{}

	err := json.Unmarshal(data, sc)
	if err != nil {
		return nil, err
	}

	for _, at := range sc.Attributes {
		setAttrDefaults(at)
	}

	if af != nil {
		kept := make([]*AttrType, 0, len(sc.Attributes))
		for _, at := range sc.Attributes {
			if af.Keep(at) {
				at.SubAttributes = filterSubAts(af, at)
				kept = append(kept, at)
			}
		}
		sc.Attributes = kept
	}

	err = validate(sc)
	if err != nil {
		return nil, err
	}

	return sc, nil
}

func filterSubAts(af *AttrFilter, parent *AttrType) []*AttrType {
	if !parent.IsComplex() {
		return parent.SubAttributes
	}

	kept := make([]*AttrType, 0, len(parent.SubAttributes))
	for _, sa := range parent.SubAttributes {
		sa.parent = parent // set early, Keep() consults the parent
		if af.Keep(sa) {
			kept = append(kept, sa)
		}
	}

	return kept
}

// BuildSchema constructs a schema programmatically from the given
// attribute definitions. Intended for the API message schemas that have
// no JSON definition files.
func BuildSchema(id string, name string, pluralName string, endpoint string, attrs ...*AttrType) *Schema {
	sc := &Schema{Id: id, Name: name, PluralName: pluralName, Endpoint: endpoint, Attributes: attrs}
	for _, at := range sc.Attributes {
		setAttrDefaults(at)
	}

	err := validate(sc)
	if err != nil {
		// the definitions are compiled in, a bad one is a bug
		panic(err)
	}

	return sc
}

func validate(sc *Schema) error {
	var ve *multierror.Error

	if len(sc.Id) == 0 {
		ve = multierror.Append(ve, errors.New("schema id is required"))
	}

	if len(sc.Attributes) == 0 {
		ve = multierror.Append(ve, errors.New("a schema should contain atleast one attribute"))
		return ve
	}

	sc.AttrMap = make(map[string]*AttrType)
	sc.RequiredAts = make([]string, 0)

	for _, attr := range sc.Attributes {
		validateAttrType(attr, sc, &ve)
		key := strings.ToLower(attr.Name)
		if _, present := sc.AttrMap[key]; present {
			ve = multierror.Append(ve, errors.Errorf("duplicate attribute name '%s' in schema %s", attr.Name, sc.Id))
			continue
		}

		sc.AttrMap[key] = attr
		if attr.Required {
			sc.RequiredAts = append(sc.RequiredAts, key)
		}
	}

	sc.collectReturnAttrs()

	return ve.ErrorOrNil()
}

func validateAttrType(attr *AttrType, sc *Schema, ve **multierror.Error) {
	if !ValidAttrName(attr.Name) {
		*ve = multierror.Append(*ve, errors.Errorf("invalid attribute name '%s'", attr.Name))
	}

	atType := strings.ToLower(attr.Type)
	if !exists(atType, validTypes) {
		*ve = multierror.Append(*ve, errors.Errorf("invalid type '%s' for attribute %s", attr.Type, attr.Name))
	}

	atMut := strings.ToLower(attr.Mutability)
	if !exists(atMut, validMutability) {
		*ve = multierror.Append(*ve, errors.Errorf("invalid mutability '%s' for attribute %s", attr.Mutability, attr.Name))
	}

	atRet := strings.ToLower(attr.Returned)
	if !exists(atRet, validReturned) {
		*ve = multierror.Append(*ve, errors.Errorf("invalid returned '%s' for attribute %s", attr.Returned, attr.Name))
	}

	atUniq := strings.ToLower(attr.Uniqueness)
	if !exists(atUniq, validUniqueness) {
		*ve = multierror.Append(*ve, errors.Errorf("invalid uniqueness '%s' for attribute %s", attr.Uniqueness, attr.Name))
	}

	if attr.IsReference() && (len(attr.ReferenceTypes) == 0) {
		*ve = multierror.Append(*ve, errors.Errorf("no referenceTypes set for attribute %s", attr.Name))
	}

	if attr.IsComplex() && (len(attr.SubAttributes) == 0) {
		*ve = multierror.Append(*ve, errors.Errorf("no subattributes set for attribute %s", attr.Name))
	}

	attr.SchemaId = sc.Id

	if attr.IsComplex() {
		log.Tracef("validating sub-attributes of attributetype %s", attr.Name)
		if attr.SubAttrMap == nil {
			attr.SubAttrMap = make(map[string]*AttrType)
		}

		for _, sa := range attr.SubAttributes {
			if sa.IsComplex() {
				*ve = multierror.Append(*ve, errors.Errorf("sub-attribute %s of attribute %s cannot be complex", sa.Name, attr.Name))
			}

			validateAttrType(sa, sc, ve)
			sa.parent = attr
			attr.SubAttrMap[strings.ToLower(sa.Name)] = sa
		}

		if attr.MultiValued {
			addDefSubAttrs(attr)
		}
	}
}

func (sc *Schema) collectReturnAttrs() {
	sc.AtsAlwaysRtn = make(map[string]int)
	sc.AtsNeverRtn = make(map[string]int)
	sc.AtsRequestRtn = make(map[string]int)
	sc.AtsDefaultRtn = make(map[string]int)

	for _, attr := range sc.Attributes {
		switch strings.ToLower(attr.Returned) {
		case "always":
			sc.AtsAlwaysRtn[attr.NormName] = 1
		case "never":
			sc.AtsNeverRtn[attr.NormName] = 1
		case "request":
			sc.AtsRequestRtn[attr.NormName] = 1
		default:
			sc.AtsDefaultRtn[attr.NormName] = 1
		}
	}
}

// GetAtType resolves a name or a dotted name.sub path to an attribute
// definition of this schema. Returns nil when nothing matches.
func (sc *Schema) GetAtType(name string) *AttrType {
	normName := strings.ToLower(name)

	if strings.ContainsRune(normName, '.') {
		arr := strings.SplitN(normName, ".", 2)
		parent := sc.AttrMap[arr[0]]

		if parent == nil || !parent.IsComplex() {
			return nil
		}

		return parent.SubAttrMap[arr[1]]
	}

	return sc.AttrMap[normName]
}

// Attrs returns the ordered, case insensitively addressable collection
// of this schema's attributes.
func (sc *Schema) Attrs() *Attrs {
	ats := NewAttrs()
	for _, at := range sc.Attributes {
		// duplicates were rejected at construction
		ats.Add(at)
	}

	return ats
}
