// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import (
	"embed"
	"io/ioutil"
)

//go:embed resources/*.json
var resourceFiles embed.FS

// Parses the given schema file and returns a schema instance after successfully parsing
func LoadSchema(name string) (*Schema, error) {
	data, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, err
	}

	log.Debugf("loading schema from file %s", name)

	return NewSchema(data)
}

func loadEmbedded(name string) *Schema {
	data, err := resourceFiles.ReadFile("resources/" + name)
	if err != nil {
		panic(err)
	}

	sc, err := NewSchema(data)
	if err != nil {
		// the bundled definitions are compiled in, a bad one is a bug
		panic(err)
	}

	return sc
}

// CoreUserSchema returns a fresh copy of the rfc7643 User schema
// definition.
func CoreUserSchema() *Schema {
	return loadEmbedded("user.json")
}

// CoreGroupSchema returns a fresh copy of the rfc7643 Group schema
// definition.
func CoreGroupSchema() *Schema {
	return loadEmbedded("group.json")
}

// EnterpriseUserSchema returns a fresh copy of the rfc7643 enterprise
// User extension schema definition.
func EnterpriseUserSchema() *Schema {
	return loadEmbedded("enterprise_user.json")
}

// NewUserResourceType builds the standard User resource type with the
// enterprise extension registered as optional.
func NewUserResourceType() *ResourceType {
	rt, err := NewResourceType("User", "/Users", "User Account", CoreUserSchema())
	if err != nil {
		panic(err)
	}

	err = rt.Extend(EnterpriseUserSchema(), false)
	if err != nil {
		panic(err)
	}

	return rt
}

// NewGroupResourceType builds the standard Group resource type.
func NewGroupResourceType() *ResourceType {
	rt, err := NewResourceType("Group", "/Groups", "Group", CoreGroupSchema())
	if err != nil {
		panic(err)
	}

	return rt
}
