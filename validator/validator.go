// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

// Package validator checks SCIM requests and responses, one validator
// per protocol endpoint. Validators are stateless: they consume already
// decoded bodies and return coded issue trees, they never touch the
// network or any storage.
package validator

import (
	"strconv"
	"strings"

	logger "github.com/juju/loggo"

	"scimcore/base"
	"scimcore/schema"
)

var log logger.Logger

func init() {
	log = logger.GetLogger("scimcore.validator")
}

// A Request carries the already decoded pieces of an inbound call. The
// query map holds the raw query-string parameters.
type Request struct {
	Body    map[string]interface{}
	Headers map[string]string
	Query   map[string]string
}

// A Response carries a returned status code and body, plus the request
// context needed to judge a listing: the filter, the sorter and the
// pagination window the client asked for.
type Response struct {
	StatusCode int
	Body       map[string]interface{}
	Headers    map[string]string

	PresenceConfig *base.PresenceConfig
	Filter         *base.FilterNode
	Sorter         *base.Sorter
	StartIndex     int
	Count          int // requested count, negative when not requested

	// FailOnErrors mirrors the bulk request's failOnErrors value,
	// negative when not requested
	FailOnErrors int
}

// Validator is the contract every endpoint validator satisfies. Issues
// come back keyed under body, status, headers and query_string.
type Validator interface {
	ValidateRequest(req *Request) *base.ValidationIssues
	ValidateResponse(resp *Response) *base.ValidationIssues
}

func bodyData(body map[string]interface{}) *base.ScimData {
	if body == nil {
		return nil
	}

	return base.FromMap(body)
}

// validateStatus flags the response status when it is not one of the
// expected success codes.
func validateStatus(vi *base.ValidationIssues, resp *Response, expected ...int) {
	for _, e := range expected {
		if resp.StatusCode == e {
			return
		}
	}

	parts := make([]string, len(expected))
	for i, e := range expected {
		parts[i] = strconv.Itoa(e)
	}

	vi.AddError(base.BadStatusCode(strings.Join(parts, " or ")), true, "status")
}

// validateErrorBody checks an error response: the envelope shape, the
// status field range and its agreement with the transport status code.
func validateErrorBody(resp *Response) *base.ValidationIssues {
	vi := base.NewIssues()

	sd := bodyData(resp.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateMessage(schema.ErrorSchema(), sd, nil), "body")

	statusVal := sd.Get("status")
	if statusStr, ok := statusVal.(string); ok {
		code, err := strconv.Atoi(statusStr)
		if err != nil || code < 300 || code >= 600 {
			vi.AddError(base.BadErrorStatus(), true, "body", "status")
		} else if code != resp.StatusCode {
			vi.AddError(base.BadStatusCode(strconv.Itoa(resp.StatusCode)), true, "body", "status")
		}
	}

	return vi
}

// responsePresence picks the presence configuration of a response,
// falling back to a bare RESPONSE direction.
func responsePresence(resp *Response) *base.PresenceConfig {
	if resp.PresenceConfig != nil {
		return resp.PresenceConfig
	}

	pc, _ := base.NewPresenceConfig(base.RESPONSE, nil, false)
	return pc
}

// queryPresence builds the response presence configuration out of the
// request's attributes and excludedAttributes parameters, flagging the
// mutually exclusive use of both.
func queryPresence(req *Request, vi *base.ValidationIssues) {
	if req.Query == nil {
		return
	}

	attrs := req.Query["attributes"]
	excluded := req.Query["excludedAttributes"]

	if len(strings.TrimSpace(attrs)) != 0 && len(strings.TrimSpace(excluded)) != 0 {
		vi.AddError(base.MutuallyExclusive("excludedAttributes"), true, "query_string", "attributes")
		vi.AddError(base.MutuallyExclusive("attributes"), true, "query_string", "excludedAttributes")
	}
}

// ErrorValidator validates error response bodies on their own, used
// when a caller wants to check a failure it produced or received.
type ErrorValidator struct{}

func NewErrorValidator() *ErrorValidator {
	return &ErrorValidator{}
}

func (v *ErrorValidator) ValidateRequest(req *Request) *base.ValidationIssues {
	return base.NewIssues()
}

func (v *ErrorValidator) ValidateResponse(resp *Response) *base.ValidationIssues {
	return validateErrorBody(resp)
}
