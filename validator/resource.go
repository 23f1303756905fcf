// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package validator

import (
	"scimcore/base"
	"scimcore/conf"
	"scimcore/schema"
)

// resourceValidator carries what every per-resource endpoint validator
// needs: the resource type contract and the service provider
// configuration.
type resourceValidator struct {
	rt  *schema.ResourceType
	cfg *conf.ScimConfig
}

func (rv *resourceValidator) validateResourceResponse(resp *Response, expectedStatus ...int) *base.ValidationIssues {
	vi := base.NewIssues()

	if resp.StatusCode >= 300 {
		vi.Merge(validateErrorBody(resp))
		return vi
	}

	validateStatus(vi, resp, expectedStatus...)

	sd := bodyData(resp.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateResource(rv.rt, sd, responsePresence(resp)), "body")

	return vi
}

// ResourceObjectGet validates GET /Resource/{id} exchanges.
type ResourceObjectGet struct {
	resourceValidator
}

func NewResourceObjectGet(rt *schema.ResourceType, cfg *conf.ScimConfig) *ResourceObjectGet {
	return &ResourceObjectGet{resourceValidator{rt: rt, cfg: cfg}}
}

func (v *ResourceObjectGet) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()
	queryPresence(req, vi)
	return vi
}

func (v *ResourceObjectGet) ValidateResponse(resp *Response) *base.ValidationIssues {
	return v.validateResourceResponse(resp, 200)
}

// ResourcesPost validates POST /Resources exchanges: a creation request
// must carry every required writable attribute and none the server
// issues, the response reports the created resource with status 201.
type ResourcesPost struct {
	resourceValidator
}

func NewResourcesPost(rt *schema.ResourceType, cfg *conf.ScimConfig) *ResourcesPost {
	return &ResourcesPost{resourceValidator{rt: rt, cfg: cfg}}
}

func (v *ResourcesPost) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()
	queryPresence(req, vi)

	sd := bodyData(req.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	pc, _ := base.NewPresenceConfig(base.REQUEST, nil, false)
	pc.RequireRequired = true

	vi.Merge(base.ValidateResource(v.rt, sd, pc), "body")

	return vi
}

func (v *ResourcesPost) ValidateResponse(resp *Response) *base.ValidationIssues {
	return v.validateResourceResponse(resp, 201)
}

// ResourceObjectPut validates PUT /Resource/{id} exchanges. Immutable
// attributes may be absent, whether a provided value equals the stored
// one is a stateful question this library leaves to its caller.
type ResourceObjectPut struct {
	resourceValidator
}

func NewResourceObjectPut(rt *schema.ResourceType, cfg *conf.ScimConfig) *ResourceObjectPut {
	return &ResourceObjectPut{resourceValidator{rt: rt, cfg: cfg}}
}

func (v *ResourceObjectPut) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()
	queryPresence(req, vi)

	sd := bodyData(req.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	pc, _ := base.NewPresenceConfig(base.REQUEST, nil, false)
	pc.RequireRequired = true

	vi.Merge(base.ValidateResource(v.rt, sd, pc), "body")

	return vi
}

func (v *ResourceObjectPut) ValidateResponse(resp *Response) *base.ValidationIssues {
	return v.validateResourceResponse(resp, 200)
}

// ResourceObjectPatch validates PATCH /Resource/{id} exchanges: the
// PatchOp envelope, every operation's path and value, and a response
// that is either the patched resource or an empty 204.
type ResourceObjectPatch struct {
	resourceValidator
}

func NewResourceObjectPatch(rt *schema.ResourceType, cfg *conf.ScimConfig) *ResourceObjectPatch {
	return &ResourceObjectPatch{resourceValidator{rt: rt, cfg: cfg}}
}

func (v *ResourceObjectPatch) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()
	queryPresence(req, vi)

	if v.cfg != nil && !v.cfg.Patch.Supported {
		vi.AddError(base.NotSupported(), false, "body")
		return vi
	}

	sd := bodyData(req.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateMessage(schema.PatchOpSchema(), sd, nil), "body")

	pr, parseIssues := base.ParsePatchRequest(sd)
	vi.Merge(parseIssues, "body")

	vi.Merge(base.ValidatePatchOps(pr, v.rt), "body")

	return vi
}

func (v *ResourceObjectPatch) ValidateResponse(resp *Response) *base.ValidationIssues {
	if resp.StatusCode == 204 {
		vi := base.NewIssues()
		if len(resp.Body) != 0 {
			vi.AddError(base.MustNotBeReturned(), true, "body")
		}
		return vi
	}

	return v.validateResourceResponse(resp, 200)
}

// ResourceObjectDelete validates DELETE /Resource/{id} exchanges: an
// empty 204 on success.
type ResourceObjectDelete struct {
	resourceValidator
}

func NewResourceObjectDelete(rt *schema.ResourceType, cfg *conf.ScimConfig) *ResourceObjectDelete {
	return &ResourceObjectDelete{resourceValidator{rt: rt, cfg: cfg}}
}

func (v *ResourceObjectDelete) ValidateRequest(req *Request) *base.ValidationIssues {
	return base.NewIssues()
}

func (v *ResourceObjectDelete) ValidateResponse(resp *Response) *base.ValidationIssues {
	vi := base.NewIssues()

	if resp.StatusCode >= 300 {
		vi.Merge(validateErrorBody(resp))
		return vi
	}

	validateStatus(vi, resp, 204)

	if len(resp.Body) != 0 {
		vi.AddError(base.MustNotBeReturned(), true, "body")
	}

	return vi
}
