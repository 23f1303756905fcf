// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package validator

import (
	"scimcore/base"
	"scimcore/conf"
	"scimcore/schema"
)

// ServiceProviderConfigGet validates GET /ServiceProviderConfig
// exchanges against the rfc7643 section 5 schema.
type ServiceProviderConfigGet struct {
	cfg *conf.ScimConfig
}

func NewServiceProviderConfigGet(cfg *conf.ScimConfig) *ServiceProviderConfigGet {
	return &ServiceProviderConfigGet{cfg: cfg}
}

func (v *ServiceProviderConfigGet) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()

	// rfc7644 section 4: filtering the configuration endpoints is not
	// defined
	if req.Query != nil && len(req.Query["filter"]) != 0 {
		vi.AddError(base.NotSupported(), true, "query_string", "filter")
	}

	return vi
}

func (v *ServiceProviderConfigGet) ValidateResponse(resp *Response) *base.ValidationIssues {
	vi := base.NewIssues()

	if resp.StatusCode >= 300 {
		vi.Merge(validateErrorBody(resp))
		return vi
	}

	validateStatus(vi, resp, 200)

	sd := bodyData(resp.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateMessage(schema.SpConfigSchema(), sd, nil), "body")

	return vi
}

// metaListValidator is the shared shape of the /Schemas and
// /ResourceTypes listings: a ListResponse whose items follow one meta
// schema.
type metaListValidator struct {
	itemSchema *schema.Schema
}

func (mv *metaListValidator) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()

	if req.Query != nil && len(req.Query["filter"]) != 0 {
		vi.AddError(base.NotSupported(), true, "query_string", "filter")
	}

	return vi
}

func (mv *metaListValidator) ValidateResponse(resp *Response) *base.ValidationIssues {
	vi := base.NewIssues()

	if resp.StatusCode >= 300 {
		vi.Merge(validateErrorBody(resp))
		return vi
	}

	validateStatus(vi, resp, 200)

	sd := bodyData(resp.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateMessage(schema.ListResponseSchema(), sd, nil), "body")

	items, _ := sd.Get("Resources").([]interface{})
	for i, raw := range items {
		item, ok := raw.(*base.ScimData)
		if !ok {
			vi.AddError(base.BadType("complex"), false, "body", "Resources", i)
			continue
		}

		vi.Merge(base.ValidateMessage(mv.itemSchema, item, nil), "body", "Resources", i)
	}

	return vi
}

// SchemasGet validates GET /Schemas exchanges.
type SchemasGet struct {
	metaListValidator
}

func NewSchemasGet() *SchemasGet {
	return &SchemasGet{metaListValidator{itemSchema: schema.SchemaDefSchema()}}
}

// ResourceTypesGet validates GET /ResourceTypes exchanges.
type ResourceTypesGet struct {
	metaListValidator
}

func NewResourceTypesGet() *ResourceTypesGet {
	return &ResourceTypesGet{metaListValidator{itemSchema: schema.ResourceTypeSchema()}}
}
