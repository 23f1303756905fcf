// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"fmt"
	"strconv"
	"strings"
)

// A ValidationError is a single coded data issue. Errors with the same
// code are considered equal, the message carries the filled-in template
// for display.
type ValidationError struct {
	Code     int
	Message  string
	ScimType string
}

// A ValidationWarning is an informational data issue that never gates
// downstream behavior.
type ValidationWarning struct {
	Code    int
	Message string
}

// LocatedErrors groups the errors reported at one location. Location
// segments are attribute names or array indices rendered as strings.
type LocatedErrors struct {
	Location []string
	Errors   []*ValidationError
}

type LocatedWarnings struct {
	Location []string
	Warnings []*ValidationWarning
}

const locSep = "\x1f"

// ValidationIssues keeps track of validation errors and warnings, each
// tagged with the location it was discovered at. Issues accumulate
// during a single validation call, the collection never short-circuits.
type ValidationIssues struct {
	errOrder  []string
	errs      map[string]*LocatedErrors
	warnOrder []string
	warns     map[string]*LocatedWarnings
	stop      map[string]bool
}

func NewIssues() *ValidationIssues {
	return &ValidationIssues{
		errs:  make(map[string]*LocatedErrors),
		warns: make(map[string]*LocatedWarnings),
		stop:  make(map[string]bool),
	}
}

// Loc builds a location path out of string and int segments.
func Loc(parts ...interface{}) []string {
	loc := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			loc[i] = v
		case int:
			loc[i] = strconv.Itoa(v)
		default:
			loc[i] = fmt.Sprint(v)
		}
	}

	return loc
}

// AddError records the given error at the location. With proceed set to
// false the location is marked so that dependent checks can skip it,
// see CanProceed.
func (vi *ValidationIssues) AddError(e *ValidationError, proceed bool, location ...interface{}) {
	loc := Loc(location...)
	key := strings.Join(loc, locSep)

	le := vi.errs[key]
	if le == nil {
		le = &LocatedErrors{Location: loc, Errors: make([]*ValidationError, 0, 1)}
		vi.errs[key] = le
		vi.errOrder = append(vi.errOrder, key)
	}

	le.Errors = append(le.Errors, e)

	if !proceed {
		vi.stop[key] = true
	}
}

func (vi *ValidationIssues) AddWarning(w *ValidationWarning, location ...interface{}) {
	loc := Loc(location...)
	key := strings.Join(loc, locSep)

	lw := vi.warns[key]
	if lw == nil {
		lw = &LocatedWarnings{Location: loc, Warnings: make([]*ValidationWarning, 0, 1)}
		vi.warns[key] = lw
		vi.warnOrder = append(vi.warnOrder, key)
	}

	lw.Warnings = append(lw.Warnings, w)
}

// Merge pulls every issue of other into this collection, prefixing the
// locations with the given segments.
func (vi *ValidationIssues) Merge(other *ValidationIssues, location ...interface{}) {
	if other == nil {
		return
	}

	prefix := Loc(location...)

	for _, key := range other.errOrder {
		le := other.errs[key]
		newLoc := append(append([]string{}, prefix...), le.Location...)
		newKey := strings.Join(newLoc, locSep)

		dst := vi.errs[newKey]
		if dst == nil {
			dst = &LocatedErrors{Location: newLoc}
			vi.errs[newKey] = dst
			vi.errOrder = append(vi.errOrder, newKey)
		}

		dst.Errors = append(dst.Errors, le.Errors...)

		if other.stop[key] {
			vi.stop[newKey] = true
		}
	}

	for _, key := range other.warnOrder {
		lw := other.warns[key]
		newLoc := append(append([]string{}, prefix...), lw.Location...)
		newKey := strings.Join(newLoc, locSep)

		dst := vi.warns[newKey]
		if dst == nil {
			dst = &LocatedWarnings{Location: newLoc}
			vi.warns[newKey] = dst
			vi.warnOrder = append(vi.warnOrder, newKey)
		}

		dst.Warnings = append(dst.Warnings, lw.Warnings...)
	}
}

// HasErrors reports whether any error was recorded at or below the
// given location. With no location the whole collection is checked.
func (vi *ValidationIssues) HasErrors(location ...interface{}) bool {
	prefix := strings.Join(Loc(location...), locSep)

	for key := range vi.errs {
		if matchesPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// CanProceed reports whether no blocking error was recorded at the
// given location or at any of its ancestors.
func (vi *ValidationIssues) CanProceed(location ...interface{}) bool {
	loc := Loc(location...)

	for i := 0; i <= len(loc); i++ {
		key := strings.Join(loc[:i], locSep)
		if vi.stop[key] {
			return false
		}
	}

	return true
}

func matchesPrefix(key string, prefix string) bool {
	if len(prefix) == 0 {
		return true
	}

	if key == prefix {
		return true
	}

	return strings.HasPrefix(key, prefix+locSep)
}

// Errors returns the located errors in discovery order.
func (vi *ValidationIssues) Errors() []*LocatedErrors {
	all := make([]*LocatedErrors, 0, len(vi.errOrder))
	for _, key := range vi.errOrder {
		all = append(all, vi.errs[key])
	}

	return all
}

func (vi *ValidationIssues) Warnings() []*LocatedWarnings {
	all := make([]*LocatedWarnings, 0, len(vi.warnOrder))
	for _, key := range vi.warnOrder {
		all = append(all, vi.warns[key])
	}

	return all
}

// ErrorCount returns the total number of recorded errors across all
// locations.
func (vi *ValidationIssues) ErrorCount() int {
	count := 0
	for _, le := range vi.errs {
		count += len(le.Errors)
	}

	return count
}

// CodesAt returns the error codes recorded at exactly the given
// location, in discovery order.
func (vi *ValidationIssues) CodesAt(location ...interface{}) []int {
	key := strings.Join(Loc(location...), locSep)
	le := vi.errs[key]
	if le == nil {
		return nil
	}

	codes := make([]int, len(le.Errors))
	for i, e := range le.Errors {
		codes[i] = e.Code
	}

	return codes
}

// WarningCodesAt returns the warning codes recorded at exactly the
// given location.
func (vi *ValidationIssues) WarningCodesAt(location ...interface{}) []int {
	key := strings.Join(Loc(location...), locSep)
	lw := vi.warns[key]
	if lw == nil {
		return nil
	}

	codes := make([]int, len(lw.Warnings))
	for i, w := range lw.Warnings {
		codes[i] = w.Code
	}

	return codes
}

// ToMap renders the issue trees as a nested map. Leaves carry the coded
// issues under the _errors and _warnings keys.
func (vi *ValidationIssues) ToMap(withMessages bool) map[string]interface{} {
	out := make(map[string]interface{})

	for _, key := range vi.errOrder {
		le := vi.errs[key]
		leaf := descend(out, le.Location)
		arr, _ := leaf["_errors"].([]interface{})
		for _, e := range le.Errors {
			entry := map[string]interface{}{"code": e.Code}
			if withMessages {
				entry["error"] = e.Message
			}
			arr = append(arr, entry)
		}
		leaf["_errors"] = arr
	}

	for _, key := range vi.warnOrder {
		lw := vi.warns[key]
		leaf := descend(out, lw.Location)
		arr, _ := leaf["_warnings"].([]interface{})
		for _, w := range lw.Warnings {
			entry := map[string]interface{}{"code": w.Code}
			if withMessages {
				entry["error"] = w.Message
			}
			arr = append(arr, entry)
		}
		leaf["_warnings"] = arr
	}

	return out
}

func descend(out map[string]interface{}, location []string) map[string]interface{} {
	current := out
	for _, part := range location {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}

	return current
}

// ----------------- the error catalogue -----------------

func newVErr(code int, scimType string, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, ScimType: scimType, Message: fmt.Sprintf(format, args...)}
}

func BadValueSyntax() *ValidationError {
	return newVErr(1, ST_INVALIDSYNTAX, "bad value syntax")
}

func BadType(expected string) *ValidationError {
	return newVErr(2, ST_INVALIDVALUE, "bad type, expecting '%s'", expected)
}

func BadEncoding(expected string) *ValidationError {
	return newVErr(3, ST_INVALIDVALUE, "bad encoding, expecting '%s'", expected)
}

func BadValueContent(reason string) *ValidationError {
	if len(reason) == 0 {
		reason = "bad value content"
	}
	return &ValidationError{Code: 4, ScimType: ST_INVALIDVALUE, Message: reason}
}

func MissingRequired() *ValidationError {
	return newVErr(5, ST_INVALIDVALUE, "missing")
}

func MustNotBeProvided() *ValidationError {
	return newVErr(6, ST_INVALIDVALUE, "must not be provided")
}

func MustNotBeReturned() *ValidationError {
	return newVErr(7, ST_INVALIDVALUE, "must not be returned")
}

func MustBeEqualTo(value interface{}) *ValidationError {
	return newVErr(8, ST_INVALIDVALUE, "must be equal to %v", value)
}

func MustBeOneOf(expected []string) *ValidationError {
	return newVErr(9, ST_INVALIDVALUE, "must be one of: %s", strings.Join(expected, ", "))
}

func DuplicateValue() *ValidationError {
	return newVErr(10, ST_INVALIDVALUE, "duplicate value")
}

func MutuallyExclusive(other string) *ValidationError {
	return newVErr(11, ST_INVALIDVALUE, "mutually exclusive with '%s'", other)
}

func MissingMainSchema() *ValidationError {
	return newVErr(12, ST_INVALIDVALUE, "schemas array missing base schema")
}

func MissingSchemaExtension(uri string) *ValidationError {
	return newVErr(13, ST_INVALIDVALUE, "schemas array missing extension %s", uri)
}

func UnknownSchema(uri string) *ValidationError {
	return newVErr(14, ST_INVALIDVALUE, "unknown schema URI %s", uri)
}

func MultiplePrimaryValues() *ValidationError {
	return newVErr(15, ST_INVALIDVALUE, "more than one 'primary' set to true")
}

func BadReference() *ValidationError {
	return newVErr(16, ST_INVALIDVALUE, "unknown reference target")
}

func BadAttrName(name string) *ValidationError {
	return newVErr(17, ST_INVALIDVALUE, "bad attribute name \"%s\"", name)
}

func BadErrorStatus() *ValidationError {
	return newVErr(18, ST_INVALIDVALUE, "bad error status value")
}

func BadStatusCode(expected string) *ValidationError {
	return newVErr(19, ST_INVALIDVALUE, "bad status code, expecting '%s'", expected)
}

func BadNumberOfResources(reason string) *ValidationError {
	return newVErr(20, ST_INVALIDVALUE, "bad number of returned resources, %s", reason)
}

func NotMatchingFilter() *ValidationError {
	return newVErr(21, ST_INVALIDFILTER, "returned resource does not match filter")
}

func NotSorted() *ValidationError {
	return newVErr(22, ST_INVALIDVALUE, "resources not sorted")
}

func UnknownOperationResource() *ValidationError {
	return newVErr(25, ST_INVALIDVALUE, "unknown bulk operation resource")
}

func TooManyBulkOperations(max int) *ValidationError {
	return newVErr(26, ST_TOOMANY, "bulk operations exceed configured max (%d)", max)
}

func TooManyBulkErrors(max int) *ValidationError {
	return newVErr(27, ST_INVALIDVALUE, "too many errors in bulk response (max %d)", max)
}

func UnknownModificationTarget() *ValidationError {
	return newVErr(28, ST_NOTARGET, "unknown modification target")
}

func AttrNotModifiable() *ValidationError {
	return newVErr(29, ST_MUTABILITY, "attribute not modifiable")
}

func AttrNotRemovable() *ValidationError {
	return newVErr(30, ST_MUTABILITY, "attribute not removable")
}

func NotSupported() *ValidationError {
	return newVErr(31, ST_INVALIDVALUE, "value not supported")
}

func UnbalancedParentheses() *ValidationError {
	return newVErr(100, ST_INVALIDFILTER, "unbalanced parentheses")
}

func UnbalancedBrackets() *ValidationError {
	return newVErr(101, ST_INVALIDFILTER, "unbalanced complex-attribute brackets")
}

func ComplexSubAttribute(attr string, subAttr string) *ValidationError {
	return newVErr(102, ST_INVALIDFILTER, "complex group on sub-attribute '%s' of '%s'", subAttr, attr)
}

func MissingOperand(operator string, expression string) *ValidationError {
	return newVErr(103, ST_INVALIDFILTER, "missing operand for operator '%s' in expression '%s'", operator, expression)
}

func UnknownOperator(operator string, expression string) *ValidationError {
	return newVErr(104, ST_INVALIDFILTER, "unknown operator '%s' in expression '%s'", operator, expression)
}

func EmptyExpression() *ValidationError {
	return newVErr(105, ST_INVALIDFILTER, "empty parenthesized expression")
}

func BadFilterExpression(expression string) *ValidationError {
	return newVErr(106, ST_INVALIDFILTER, "bad filter expression '%s'", expression)
}

func InnerComplexGroup() *ValidationError {
	return newVErr(107, ST_INVALIDFILTER, "nested complex group")
}

func EmptyComplexGroup(attr string) *ValidationError {
	return newVErr(108, ST_INVALIDFILTER, "empty complex group '%s'", attr)
}

func BadOperand(value string) *ValidationError {
	return newVErr(109, ST_INVALIDFILTER, "unrecognized operand '%s'", value)
}

func IncompatibleOperand(value string, operator string) *ValidationError {
	return newVErr(110, ST_INVALIDFILTER, "operand '%s' incompatible with operator '%s'", value, operator)
}

// ----------------- the warning catalogue -----------------

// WarnShouldBeOneOf carries the canonical-values code, the same number
// as the strict-context error, so codes stay stable across severities.
func WarnShouldBeOneOf(expected []string) *ValidationWarning {
	return &ValidationWarning{Code: 9, Message: fmt.Sprintf("value should be one of: %s", strings.Join(expected, ", "))}
}

// WarnDuplicateTypeValuePair flags a multi-valued complex attribute
// carrying the same type-value pair more than once.
func WarnDuplicateTypeValuePair() *ValidationWarning {
	return &ValidationWarning{Code: 10, Message: "multi-valued complex attribute should contain a given type-value pair no more than once"}
}

// WarnUnexpectedContent flags content that is legal but surprising.
func WarnUnexpectedContent(reason string) *ValidationWarning {
	return &ValidationWarning{Code: 3, Message: fmt.Sprintf("unexpected content, %s", reason)}
}
