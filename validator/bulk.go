// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package validator

import (
	"strconv"
	"strings"

	"scimcore/base"
	"scimcore/conf"
	"scimcore/schema"
)

var bulkMethods = []string{"POST", "PUT", "PATCH", "DELETE"}

// BulkOperations validates /Bulk exchanges: the request envelope, every
// operation's method, path and payload, the configured operation count
// cap, and the error budget declared by failOnErrors.
type BulkOperations struct {
	cfg *conf.ScimConfig
	rts []*schema.ResourceType
}

func NewBulkOperations(cfg *conf.ScimConfig, rts ...*schema.ResourceType) *BulkOperations {
	return &BulkOperations{cfg: cfg, rts: rts}
}

func (v *BulkOperations) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()

	if v.cfg != nil && !v.cfg.Bulk.Supported {
		vi.AddError(base.NotSupported(), false, "body")
		return vi
	}

	sd := bodyData(req.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateMessage(schema.BulkRequestSchema(), sd, nil), "body")

	ops, _ := sd.Get("Operations").([]interface{})

	if v.cfg != nil && v.cfg.Bulk.MaxOperations > 0 && len(ops) > v.cfg.Bulk.MaxOperations {
		vi.AddError(base.TooManyBulkOperations(v.cfg.Bulk.MaxOperations), true, "body", "Operations")
	}

	for i, raw := range ops {
		op, ok := raw.(*base.ScimData)
		if !ok {
			vi.AddError(base.BadType("complex"), false, "body", "Operations", i)
			continue
		}

		v.validateRequestOp(op, i, vi)
	}

	return vi
}

func (v *BulkOperations) validateRequestOp(op *base.ScimData, i int, vi *base.ValidationIssues) {
	method, _ := op.Get("method").(string)
	method = strings.ToUpper(strings.TrimSpace(method))

	if len(method) == 0 {
		vi.AddError(base.MissingRequired(), false, "body", "Operations", i, "method")
	} else if !methodKnown(method) {
		vi.AddError(base.MustBeOneOf(bulkMethods), true, "body", "Operations", i, "method")
	}

	path, pathOk := op.Get("path").(string)
	if !pathOk || len(strings.TrimSpace(path)) == 0 {
		vi.AddError(base.MissingRequired(), false, "body", "Operations", i, "path")
	} else if !v.knownResourcePath(path, method) {
		vi.AddError(base.UnknownOperationResource(), true, "body", "Operations", i, "path")
	}

	if method == "POST" {
		if _, ok := op.Get("bulkId").(string); !ok {
			vi.AddError(base.MissingRequired(), false, "body", "Operations", i, "bulkId")
		}
	}

	switch method {
	case "POST", "PUT", "PATCH":
		data := op.Get("data")
		if !present(data) {
			vi.AddError(base.MissingRequired(), false, "body", "Operations", i, "data")
		} else if _, ok := data.(*base.ScimData); !ok {
			vi.AddError(base.BadType("complex"), false, "body", "Operations", i, "data")
		}

	case "DELETE":
		if present(op.Get("data")) {
			vi.AddError(base.MustNotBeProvided(), true, "body", "Operations", i, "data")
		}
	}
}

func present(v interface{}) bool {
	if v == nil || base.IsMissing(v) {
		return false
	}

	if s, ok := v.(string); ok {
		return len(s) != 0
	}

	return true
}

func methodKnown(method string) bool {
	for _, m := range bulkMethods {
		if m == method {
			return true
		}
	}

	return false
}

// knownResourcePath reports whether the operation path targets the
// endpoint of one of the supported resource types. A POST targets the
// collection itself, the other methods a resource below it.
func (v *BulkOperations) knownResourcePath(path string, method string) bool {
	path = strings.TrimSpace(path)

	for _, rt := range v.rts {
		endpoint := rt.Endpoint
		if strings.EqualFold(path, endpoint) {
			return method == "POST" || method == ""
		}

		if len(path) > len(endpoint)+1 && strings.EqualFold(path[:len(endpoint)+1], endpoint+"/") {
			return method != "POST"
		}
	}

	return false
}

func (v *BulkOperations) ValidateResponse(resp *Response) *base.ValidationIssues {
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

	vi.Merge(base.ValidateMessage(schema.BulkResponseSchema(), sd, nil), "body")

	ops, _ := sd.Get("Operations").([]interface{})

	errorCount := 0

	for i, raw := range ops {
		op, ok := raw.(*base.ScimData)
		if !ok {
			vi.AddError(base.BadType("complex"), false, "body", "Operations", i)
			continue
		}

		method, _ := op.Get("method").(string)
		method = strings.ToUpper(strings.TrimSpace(method))
		if len(method) != 0 && !methodKnown(method) {
			vi.AddError(base.MustBeOneOf(bulkMethods), true, "body", "Operations", i, "method")
		}

		status, ok := op.Get("status").(string)
		if !ok || len(status) == 0 {
			vi.AddError(base.MissingRequired(), false, "body", "Operations", i, "status")
			continue
		}

		code, err := strconv.Atoi(status)
		if err != nil {
			vi.AddError(base.BadValueSyntax(), false, "body", "Operations", i, "status")
			continue
		}

		if code >= 400 {
			errorCount++

			// a failed operation reports the error envelope
			if response, ok := op.Get("response").(*base.ScimData); ok {
				vi.Merge(base.ValidateMessage(schema.ErrorSchema(), response, nil), "body", "Operations", i, "response")
			}
			continue
		}

		if method != "DELETE" && !present(op.Get("location")) {
			vi.AddError(base.MissingRequired(), false, "body", "Operations", i, "location")
		}
	}

	// failOnErrors is an upper bound on the number of failed operations
	// a bulk response may carry
	if resp.FailOnErrors > 0 && errorCount > resp.FailOnErrors {
		vi.AddError(base.TooManyBulkErrors(resp.FailOnErrors), true, "body", "Operations")
	}

	return vi
}
