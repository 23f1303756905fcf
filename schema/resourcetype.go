// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// A SchemaExtension is the registration of an extension schema on a
// resource type.
type SchemaExtension struct {
	Schema   *Schema
	Required bool
}

// A ResourceType composes a main schema with zero or more schema
// extensions into the validated contract of a SCIM resource (e.g. User,
// Group). Immutable after the last Extend call and safe for concurrent
// use.
type ResourceType struct {
	Id               string
	Name             string
	Endpoint         string
	Description      string
	Schema           string // URI of the main schema
	SchemaExtensions []*SchemaExtension

	schemas    map[string]*Schema // lowercase URI to schema, main and extensions
	mainSchema *Schema
}

// NewResourceType builds a resource type over the given main schema.
// The common attributes schemas, id, externalId and meta are injected
// into the main schema if the definition did not carry them.
func NewResourceType(name string, endpoint string, description string, mainSchema *Schema) (*ResourceType, error) {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return nil, errors.New("name attribute of the resourcetype cannot be empty")
	}

	endpoint = path.Clean(strings.TrimSpace(endpoint))
	if len(endpoint) == 0 || endpoint == "." {
		return nil, errors.New("endpoint attribute of the resourcetype cannot be empty")
	}

	if mainSchema == nil {
		return nil, errors.New("main schema of the resourcetype cannot be nil")
	}

	rt := &ResourceType{Id: name, Name: name, Endpoint: endpoint, Description: description}
	rt.Schema = mainSchema.Id
	rt.schemas = make(map[string]*Schema)
	rt.schemas[strings.ToLower(mainSchema.Id)] = mainSchema
	rt.mainSchema = mainSchema
	rt.SchemaExtensions = make([]*SchemaExtension, 0)

	addCommonAttrs(mainSchema)
	log.Debugf("created resourcetype %s with main schema %s", rt.Name, rt.Schema)

	return rt, nil
}

// Extend registers the given schema as an extension of this resource
// type. Extending twice with the same URI, or with the main schema's
// URI, is a caller mistake.
func (rt *ResourceType) Extend(sc *Schema, required bool) error {
	if sc == nil {
		return errors.New("extension schema cannot be nil")
	}

	key := strings.ToLower(sc.Id)
	if _, present := rt.schemas[key]; present {
		return errors.Errorf("schema %s is already registered on resourcetype %s", sc.Id, rt.Name)
	}

	rt.schemas[key] = sc
	rt.SchemaExtensions = append(rt.SchemaExtensions, &SchemaExtension{Schema: sc, Required: required})
	log.Debugf("registered extension schema %s on resourcetype %s", sc.Id, rt.Name)

	return nil
}

// Returns the main schema of the given resourcetype
func (rt *ResourceType) GetMainSchema() *Schema {
	return rt.mainSchema
}

// Returns the schema identified by the URI associated with the given
// resourcetype. URIs compare case insensitively.
func (rt *ResourceType) GetSchema(urnId string) *Schema {
	return rt.schemas[strings.ToLower(urnId)]
}

// SchemaUris returns the main schema URI followed by the extension URIs
// in registration order.
func (rt *ResourceType) SchemaUris() []string {
	uris := make([]string, 0, len(rt.SchemaExtensions)+1)
	uris = append(uris, rt.Schema)
	for _, ext := range rt.SchemaExtensions {
		uris = append(uris, ext.Schema.Id)
	}

	return uris
}

// GetAtType resolves an attribute path of the form [uri:]attr[.sub]
// against all schemas associated with this resourcetype. When no URI is
// prefixed the main schema is searched first, then the extensions in
// registration order. Returns nil when nothing matches.
func (rt *ResourceType) GetAtType(atPath string) *AttrType {
	uri, attr, subAttr := SplitPath(atPath)

	local := attr
	if len(subAttr) != 0 {
		local = attr + ATTR_DELIM + subAttr
	}

	if len(uri) != 0 {
		sc := rt.GetSchema(uri)
		if sc == nil {
			return nil
		}

		return sc.GetAtType(local)
	}

	if at := rt.mainSchema.GetAtType(local); at != nil {
		return at
	}

	for _, ext := range rt.SchemaExtensions {
		if at := ext.Schema.GetAtType(local); at != nil {
			return at
		}
	}

	return nil
}

// ResolveRep resolves a bounded representation to an attribute
// definition, nil when nothing matches.
func (rt *ResourceType) ResolveRep(br BoundedAttrRep) *AttrType {
	if br.HasSchema() {
		sc := rt.GetSchema(br.Schema)
		if sc == nil {
			return nil
		}

		return sc.Attrs().Get(br.AttrRep())
	}

	return rt.GetAtType(br.AttrRep().String())
}

// BoundedAttrs returns the attributes of the main schema and every
// extension partitioned by owning schema URI.
func (rt *ResourceType) BoundedAttrs() *BoundedAttrs {
	bas := NewBoundedAttrs()
	bas.AddSchema(rt.Schema, rt.mainSchema.Attrs())
	for _, ext := range rt.SchemaExtensions {
		bas.AddSchema(ext.Schema.Id, ext.Schema.Attrs())
	}

	return bas
}

// IsExtensionUri reports whether the given URI identifies one of the
// registered extension schemas.
func (rt *ResourceType) IsExtensionUri(uri string) bool {
	for _, ext := range rt.SchemaExtensions {
		if strings.EqualFold(ext.Schema.Id, uri) {
			return true
		}
	}

	return false
}

func addCommonAttrs(mainSchema *Schema) {
	if mainSchema.AttrMap["schemas"] != nil {
		// common attributes were added already, e.g. when the schema is
		// shared by more than one resourcetype
		return
	}

	schemasAttr := newAttrType()
	schemasAttr.Name = "schemas"
	schemasAttr.NormName = schemasAttr.Name
	schemasAttr.Required = true
	schemasAttr.CaseExact = true
	schemasAttr.Returned = "always"
	schemasAttr.MultiValued = true
	schemasAttr.SchemaId = mainSchema.Id
	mainSchema.Attributes = append(mainSchema.Attributes, schemasAttr)
	mainSchema.AttrMap[schemasAttr.Name] = schemasAttr
	mainSchema.RequiredAts = append(mainSchema.RequiredAts, schemasAttr.Name)
	mainSchema.AtsAlwaysRtn[schemasAttr.Name] = 1

	// id
	idAttr := newAttrType()
	idAttr.Name = "id"
	idAttr.NormName = idAttr.Name
	idAttr.Required = true
	idAttr.Returned = "always"
	idAttr.CaseExact = true
	idAttr.MultiValued = false
	idAttr.Mutability = "readOnly"
	idAttr.Uniqueness = "server"
	idAttr.SchemaId = mainSchema.Id
	mainSchema.Attributes = append(mainSchema.Attributes, idAttr)
	mainSchema.AttrMap[idAttr.Name] = idAttr
	mainSchema.RequiredAts = append(mainSchema.RequiredAts, idAttr.Name)
	mainSchema.AtsAlwaysRtn[idAttr.Name] = 1

	// externalId
	externalIdAttr := newAttrType()
	externalIdAttr.Name = "externalId"
	externalIdAttr.NormName = strings.ToLower(externalIdAttr.Name)
	externalIdAttr.CaseExact = true
	externalIdAttr.SchemaId = mainSchema.Id
	mainSchema.Attributes = append(mainSchema.Attributes, externalIdAttr)
	mainSchema.AttrMap[externalIdAttr.NormName] = externalIdAttr
	mainSchema.AtsDefaultRtn[externalIdAttr.NormName] = 1

	// meta
	metaAttr := newAttrType()
	metaAttr.Name = "meta"
	metaAttr.NormName = metaAttr.Name
	metaAttr.Type = "complex"
	metaAttr.Returned = "default"
	metaAttr.MultiValued = false
	metaAttr.Mutability = "readOnly"
	metaAttr.SchemaId = mainSchema.Id
	metaAttr.SubAttrMap = make(map[string]*AttrType)
	mainSchema.Attributes = append(mainSchema.Attributes, metaAttr)
	mainSchema.AttrMap[metaAttr.Name] = metaAttr
	mainSchema.AtsDefaultRtn[metaAttr.Name] = 1

	addMetaSubAttr(metaAttr, "resourceType", "string", true)
	addMetaSubAttr(metaAttr, "created", "datetime", false)
	addMetaSubAttr(metaAttr, "lastModified", "datetime", false)
	addMetaSubAttr(metaAttr, "location", "reference", false)
	addMetaSubAttr(metaAttr, "version", "string", true)
}

func addMetaSubAttr(metaAttr *AttrType, name string, atType string, caseExact bool) {
	sa := newAttrType()
	sa.Name = name
	sa.NormName = strings.ToLower(name)
	sa.Type = atType
	sa.CaseExact = caseExact
	sa.Mutability = "readOnly"
	if atType == "reference" {
		sa.ReferenceTypes = []string{"uri"}
	}
	sa.SchemaId = metaAttr.SchemaId
	sa.parent = metaAttr
	metaAttr.SubAttrMap[sa.NormName] = sa
	metaAttr.SubAttributes = append(metaAttr.SubAttributes, sa)
}
