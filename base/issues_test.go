// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueCollection(t *testing.T) {
	vi := NewIssues()
	assert.False(t, vi.HasErrors())

	vi.AddError(BadType("string"), true, "id")
	vi.AddError(MissingRequired(), false, "userName")
	vi.AddWarning(WarnShouldBeOneOf([]string{"work", "home"}), "emails", 0, "type")

	assert.True(t, vi.HasErrors())
	assert.True(t, vi.HasErrors("id"))
	assert.False(t, vi.HasErrors("emails"))

	assert.Equal(t, []int{2}, vi.CodesAt("id"))
	assert.Equal(t, []int{5}, vi.CodesAt("userName"))
	assert.Equal(t, []int{9}, vi.WarningCodesAt("emails", 0, "type"))

	assert.True(t, vi.CanProceed("id"))
	assert.False(t, vi.CanProceed("userName"))
	assert.False(t, vi.CanProceed("userName", "sub"))
}

func TestIssueMergeWithPrefix(t *testing.T) {
	inner := NewIssues()
	inner.AddError(BadType("integer"), false, "id")
	inner.AddError(MissingRequired(), false)

	outer := NewIssues()
	outer.Merge(inner, "Resources", 0)

	assert.Equal(t, []int{2}, outer.CodesAt("Resources", 0, "id"))
	assert.Equal(t, []int{5}, outer.CodesAt("Resources", 0))
	assert.False(t, outer.CanProceed("Resources", 0, "id"))
}

func TestIssueToMap(t *testing.T) {
	vi := NewIssues()
	vi.AddError(BadType("string"), true, "Resources", 0, "id")
	vi.AddError(MissingRequired(), false, "Resources", 1, "id")

	out := vi.ToMap(false)

	resources, ok := out["Resources"].(map[string]interface{})
	require.True(t, ok)

	first, ok := resources["0"].(map[string]interface{})
	require.True(t, ok)

	firstId, ok := first["id"].(map[string]interface{})
	require.True(t, ok)

	errs, ok := firstId["_errors"].([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, map[string]interface{}{"code": 2}, errs[0])

	second := resources["1"].(map[string]interface{})
	secondErrs := second["id"].(map[string]interface{})["_errors"].([]interface{})
	assert.Equal(t, map[string]interface{}{"code": 5}, secondErrs[0])
}

func TestIssueToMapWithMessages(t *testing.T) {
	vi := NewIssues()
	vi.AddError(BadStatusCode("201"), true, "status")

	out := vi.ToMap(true)
	status := out["status"].(map[string]interface{})
	errs := status["_errors"].([]interface{})
	entry := errs[0].(map[string]interface{})

	assert.Equal(t, 19, entry["code"])
	assert.Equal(t, "bad status code, expecting '201'", entry["error"])
}

func TestScimErrorFromIssues(t *testing.T) {
	vi := NewIssues()
	vi.AddError(AttrNotModifiable(), true, "Operations", 0, "path")

	se := NewFromIssues(vi, "")
	assert.Equal(t, "400", se.Status)
	assert.Equal(t, ST_MUTABILITY, se.ScimType)
	assert.Equal(t, "attribute not modifiable", se.Detail)
}

func TestRootLevelIssues(t *testing.T) {
	vi := NewIssues()
	vi.AddError(BadType("object"), false)

	out := vi.ToMap(false)
	errs, ok := out["_errors"].([]interface{})
	require.True(t, ok)
	assert.Len(t, errs, 1)
}
