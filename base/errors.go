// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"encoding/json"

	logger "github.com/juju/loggo"
)

var log logger.Logger

func init() {
	log = logger.GetLogger("scimcore.base")
}

var (
	TempRedirect      = "307"
	PermRedirect      = "308"
	BadRequest        = "400"
	UnAuthorized      = "401"
	Forbidden         = "403"
	NotFound          = "404"
	Conflict          = "409"
	PreCondFailed     = "412"
	PayloadTooLarge   = "413"
	InternalServerErr = "500"
	NotImplemented    = "501"
)

var (
	ST_INVALIDFILTER = "invalidFilter"
	ST_TOOMANY       = "tooMany"
	ST_UNIQUENESS    = "uniqueness"
	ST_MUTABILITY    = "mutability"
	ST_INVALIDSYNTAX = "invalidSyntax"
	ST_INVALIDPATH   = "invalidPath"
	ST_NOTARGET      = "noTarget"
	ST_INVALIDVALUE  = "invalidValue"
	ST_INVALIDVERS   = "invalidVers"
	ST_SENSITIVE     = "sensitive"
)

// ScimError is the rfc7644 section 3.12 error envelope. Callers that
// need a protocol level error body build one from the collected
// validation issues.
type ScimError struct {
	Schemas  []string `json:"schemas"`
	ScimType string   `json:"scimType,omitempty"`
	Detail   string   `json:"detail,omitempty"`
	Status   string   `json:"status"`
	code     int      // the Status value as an integer
}

func (se *ScimError) Serialize() []byte {
	data, err := json.Marshal(se)
	if err != nil {
		return []byte(err.Error())
	}

	return data
}

func (se *ScimError) Error() string {
	return string(se.Serialize())
}

func (se ScimError) Code() int {
	return se.code
}

func NewError() *ScimError {
	return &ScimError{Schemas: []string{"urn:ietf:params:scim:api:messages:2.0:Error"}}
}

func NewBadRequestError(detail string) *ScimError {
	err := NewError()
	err.Detail = detail
	err.code = 400
	err.Status = BadRequest
	return err
}

func NewNotFoundError(detail string) *ScimError {
	err := NewError()
	err.Detail = detail
	err.code = 404
	err.Status = NotFound
	return err
}

func NewInternalserverError(detail string) *ScimError {
	err := NewError()
	err.Detail = detail
	err.code = 500
	err.Status = InternalServerErr
	return err
}

// NewFromIssues builds a bad request error body out of the first reported
// validation error: its scimType, when it has one, and its message as the
// detail when no detail is given.
func NewFromIssues(vi *ValidationIssues, detail string) *ScimError {
	err := NewBadRequestError(detail)

	for _, le := range vi.Errors() {
		if len(le.Errors) == 0 {
			continue
		}

		first := le.Errors[0]
		if len(first.ScimType) != 0 {
			err.ScimType = first.ScimType
		}

		if len(detail) == 0 {
			err.Detail = first.Message
		}

		break
	}

	return err
}
