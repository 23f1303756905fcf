// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scimcore/schema"
)

func patchBody(ops ...map[string]interface{}) *ScimData {
	rawOps := make([]interface{}, len(ops))
	for i, op := range ops {
		rawOps[i] = op
	}

	return FromMap(map[string]interface{}{
		"schemas":    []interface{}{"urn:ietf:params:scim:api:messages:2.0:PatchOp"},
		"Operations": rawOps,
	})
}

func TestParsePatchPath(t *testing.T) {
	var paths = []struct {
		path string
		pass bool
	}{
		{"nickName", true},
		{"name.givenName", true},
		{"emails[type eq 'home']", true},
		{"emails[type eq 'home'].value", true},
		{"urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:employeeNumber", true},
		{"ims[ty", false},
		{"[type eq 'home']", false},
		{"emails[]", false},
		{"emails[type eq 'home'].", false},
		{"", false},
	}

	for _, p := range paths {
		pp, vi := ParsePatchPath(p.path)
		if p.pass {
			if pp == nil || vi.HasErrors() {
				t.Errorf("Failed to parse the valid path %s [%v]", p.path, vi.ToMap(true))
			}
		} else {
			if pp != nil || !vi.HasErrors() {
				t.Errorf("Expected to fail parsing of the path %s, but it succeeded", p.path)
			} else {
				assert.Equal(t, []int{1}, vi.CodesAt(), "path %s", p.path)
			}
		}
	}
}

func TestPatchPathSelectorAndSub(t *testing.T) {
	pp, vi := ParsePatchPath("emails[type eq 'home'].value")
	require.False(t, vi.HasErrors())

	assert.Equal(t, "emails", pp.Path.Attr)
	assert.Equal(t, "value", pp.Path.Sub)
	require.NotNil(t, pp.Selector)
	assert.Equal(t, "eq", pp.Selector.Op)
	assert.Equal(t, "type", pp.Selector.Path.Attr)
}

func TestPatchOpValidation(t *testing.T) {
	rt := schema.NewUserResourceType()

	body := patchBody(
		map[string]interface{}{"op": "replace", "path": "ims[ty"},
		map[string]interface{}{"op": "frobnicate", "path": "nickName", "value": "x"},
		map[string]interface{}{"op": "remove"},
		map[string]interface{}{"op": "replace", "path": "frobnicator", "value": "x"},
		map[string]interface{}{"op": "replace", "path": "id", "value": "x"},
		map[string]interface{}{"op": "remove", "path": "userName"},
	)

	pr, vi := ParsePatchRequest(body)
	vi.Merge(ValidatePatchOps(pr, rt))

	// a broken path and the missing value are reported together
	assert.Equal(t, []int{1}, vi.CodesAt("Operations", 0, "path"))
	assert.Equal(t, []int{5}, vi.CodesAt("Operations", 0, "value"))

	assert.Equal(t, []int{9}, vi.CodesAt("Operations", 1, "op"))
	assert.Equal(t, []int{5}, vi.CodesAt("Operations", 2, "path"))
	assert.Equal(t, []int{28}, vi.CodesAt("Operations", 3, "path"))
	assert.Equal(t, []int{29}, vi.CodesAt("Operations", 4, "path"))

	// userName is required, removing it is forbidden
	assert.Equal(t, []int{30}, vi.CodesAt("Operations", 5, "path"))
}

func TestApplyAddAndReplace(t *testing.T) {
	rt := schema.NewUserResourceType()

	sd := FromMap(map[string]interface{}{
		"schemas":  []interface{}{userUri},
		"id":       "abc",
		"userName": "bjensen",
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "w@x.com"},
		},
	})

	body := patchBody(
		map[string]interface{}{"op": "replace", "path": "nickName", "value": "babs"},
		map[string]interface{}{"op": "add", "path": "emails", "value": map[string]interface{}{"type": "home", "value": "h@x.com"}},
	)

	pr, vi := ParsePatchRequest(body)
	require.False(t, vi.HasErrors())

	vi = ApplyPatch(sd, rt, pr)
	require.False(t, vi.HasErrors(), "%v", vi.ToMap(true))

	assert.Equal(t, "babs", sd.Get("nickName"))

	emails, _ := sd.Get("emails").([]interface{})
	require.Len(t, emails, 2)
}

func TestApplySelected(t *testing.T) {
	rt := schema.NewUserResourceType()

	sd := FromMap(map[string]interface{}{
		"schemas":  []interface{}{userUri},
		"id":       "abc",
		"userName": "bjensen",
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "w@x.com"},
			map[string]interface{}{"type": "home", "value": "h@x.com"},
		},
	})

	body := patchBody(
		map[string]interface{}{"op": "replace", "path": "emails[type eq 'home'].value", "value": "new@x.com"},
	)

	pr, vi := ParsePatchRequest(body)
	require.False(t, vi.HasErrors())

	vi = ApplyPatch(sd, rt, pr)
	require.False(t, vi.HasErrors(), "%v", vi.ToMap(true))

	emails, _ := sd.Get("emails").([]interface{})
	require.Len(t, emails, 2)

	home := emails[1].(*ScimData)
	assert.Equal(t, "new@x.com", home.Get("value"))

	work := emails[0].(*ScimData)
	assert.Equal(t, "w@x.com", work.Get("value"))
}

func TestApplyRemoveSelected(t *testing.T) {
	rt := schema.NewUserResourceType()

	sd := FromMap(map[string]interface{}{
		"schemas":  []interface{}{userUri},
		"id":       "abc",
		"userName": "bjensen",
		"emails": []interface{}{
			map[string]interface{}{"type": "work", "value": "w@x.com"},
			map[string]interface{}{"type": "home", "value": "h@x.com"},
		},
	})

	body := patchBody(
		map[string]interface{}{"op": "remove", "path": "emails[type eq 'home']"},
	)

	pr, vi := ParsePatchRequest(body)
	require.False(t, vi.HasErrors())

	vi = ApplyPatch(sd, rt, pr)
	require.False(t, vi.HasErrors(), "%v", vi.ToMap(true))

	emails, _ := sd.Get("emails").([]interface{})
	require.Len(t, emails, 1)
	assert.Equal(t, "work", emails[0].(*ScimData).Get("type"))
}

func TestApplyRemoveNoTarget(t *testing.T) {
	rt := schema.NewUserResourceType()

	sd := FromMap(map[string]interface{}{
		"schemas":  []interface{}{userUri},
		"id":       "abc",
		"userName": "bjensen",
	})

	body := patchBody(
		map[string]interface{}{"op": "remove", "path": "nickName"},
	)

	pr, vi := ParsePatchRequest(body)
	require.False(t, vi.HasErrors())

	vi = ApplyPatch(sd, rt, pr)
	assert.Equal(t, []int{28}, vi.CodesAt("Operations", 0, "path"))
}

func TestApplyWithoutPath(t *testing.T) {
	rt := schema.NewUserResourceType()

	sd := FromMap(map[string]interface{}{
		"schemas":  []interface{}{userUri},
		"id":       "abc",
		"userName": "bjensen",
	})

	body := patchBody(
		map[string]interface{}{"op": "replace", "value": map[string]interface{}{"nickName": "babs", "title": "Ms"}},
	)

	pr, vi := ParsePatchRequest(body)
	require.False(t, vi.HasErrors())

	vi = ApplyPatch(sd, rt, pr)
	require.False(t, vi.HasErrors(), "%v", vi.ToMap(true))

	assert.Equal(t, "babs", sd.Get("nickName"))
	assert.Equal(t, "Ms", sd.Get("title"))
}

func TestApplyExtensionAttr(t *testing.T) {
	rt := schema.NewUserResourceType()

	sd := FromMap(map[string]interface{}{
		"schemas":  []interface{}{userUri},
		"id":       "abc",
		"userName": "bjensen",
	})

	body := patchBody(
		map[string]interface{}{"op": "add", "path": enterpriseUri + ":employeeNumber", "value": "42"},
	)

	pr, vi := ParsePatchRequest(body)
	require.False(t, vi.HasErrors())

	vi = ApplyPatch(sd, rt, pr)
	require.False(t, vi.HasErrors(), "%v", vi.ToMap(true))

	assert.Equal(t, "42", sd.Get(enterpriseUri+":employeeNumber"))

	// the extension value nests under its URI on serialization
	ext, ok := sd.ToMap()[enterpriseUri].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "42", ext["employeeNumber"])
}
