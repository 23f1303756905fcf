// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFilter(t *testing.T) {
	var filters = []struct {
		f    string
		pass bool
		op   string // root node's operator name
	}{
		{`userName eq 'bjensen'`, true, "eq"},
		{`(   userName eq 'bje\'n\\s en')`, true, "eq"},
		{`userName eq "bjensen" and email co "example.com"`, true, "and"},
		{`not (userName eq 'bjensen' and email co 'example.com')`, true, "not"},
		{`abc eq 1 and not (userName eq 'bjensen' and email co 'example.com')`, true, "and"},
		{`abc pr`, true, "pr"},
		{`userName eq 'bjensen`, false, ""},
		{`userType eq 'Employee' and emails[type eq 'work' and  value co '@example.com']`, true, "and"},
		{`meta.lastModified gt '2011-05-13T04:42:34Z'`, true, "gt"},
		{`title pr or userType eq 'Intern'`, true, "or"},
		{`xyz eq 1 not (userName eq 'invalid filter')`, false, ""},
		{`(and)`, false, ""},
		{`(username eq)`, false, ""},
		{`(username pr)`, true, "pr"},
	}

	for _, f := range filters {
		xpr, vi := ParseFilter(f.f)
		if f.pass {
			if xpr == nil || vi.HasErrors() {
				t.Errorf("Failed to parse the valid filter %s [%v]", f.f, vi.ToMap(true))
				continue
			}

			if xpr.Op != f.op {
				t.Errorf("Invalid root node, expected '%s' but found '%s' after parsing the filter %s", f.op, xpr.Op, f.f)
			}
		} else {
			if xpr != nil || !vi.HasErrors() {
				t.Errorf("Expected to fail parsing of the filter %s, but it succeeded", f.f)
			}
		}
	}
}

func TestFilterErrorCodes(t *testing.T) {
	var filters = []struct {
		f     string
		codes []int
	}{
		{`(userName eq 'a'`, []int{100}},
		{`emails[type eq 'work'`, []int{101}},
		{`()`, []int{105}},
		{`emails[]`, []int{108}},
		{`emails[phones[type eq 'work']]`, []int{107}},
		{`name.givenName[type eq 'work']`, []int{102}},
		{`userName xyz 'a'`, []int{104}},
		{`userName co 15`, []int{110}},
		{`userName sw true`, []int{110}},
		{`age gt null`, []int{110}},
		{`userName eq bjensen`, []int{109}},
		{`userName eq`, []int{103}},
		{`userName eq 'johndoe' or (emails[type neq 'home'] and nickName sw 15)`, []int{104, 110}},
	}

	for _, f := range filters {
		xpr, vi := ParseFilter(f.f)
		assert.Nil(t, xpr, "filter %s must not produce a node", f.f)

		found := make(map[int]bool)
		for _, le := range vi.Errors() {
			for _, e := range le.Errors {
				found[e.Code] = true
			}
		}

		for _, code := range f.codes {
			if !found[code] {
				t.Errorf("Expected code %d while parsing the filter %s, got %v", code, f.f, vi.ToMap(false))
			}
		}
	}
}

func TestNodeHierarchy(t *testing.T) {
	s := `userName eq 'bjensen' and (emails eq 'k@example.com' and (im eq 'z' and id eq '1' ))`
	xpr, vi := ParseFilter(s)
	require.False(t, vi.HasErrors())
	require.NotNil(t, xpr)

	require.Equal(t, "and", xpr.Op)
	require.Len(t, xpr.Children, 2)

	if xpr.Children[0].Op != "eq" || xpr.Children[0].Path.Attr != "userName" {
		t.Errorf("wrong first child")
	}

	child2 := xpr.Children[1]
	if child2.Op != "and" {
		t.Errorf("wrong second child")
	}

	child21 := child2.Children[0]
	if child21.Op != "eq" || child21.Path.Attr != "emails" {
		t.Errorf("wrong second child's AND node's left node")
	}

	child22 := child2.Children[1]
	if child22.Op != "and" {
		t.Errorf("wrong second child's AND node's right node")
	}
}

func TestParentheses(t *testing.T) {
	s := `(emails.type co 'home' and username co 'ss' ) and displayname sw 'j'`
	xpr, vi := ParseFilter(s)
	require.False(t, vi.HasErrors())

	if xpr.Children[1].Path.Attr != "displayname" {
		t.Errorf("Incorrect parse tree when parentheses are present [%s]", xpr.Serialize())
	}

	s = `(emails.type co 'home' and username co 'ss') and (displayname sw 'j' or email.value co 'org')`
	xpr, vi = ParseFilter(s)
	require.False(t, vi.HasErrors())

	if xpr.Children[1].Children[0].Path.Attr != "displayname" || xpr.Children[1].Children[1].Path.Attr != "email" {
		t.Errorf("Incorrect parse tree when parentheses are present [%s]", xpr.Serialize())
	}

	// same as above but with multiple (())
	s = `((emails.type co 'home') and (username co 'ss')) and (((displayname sw 'j') or (email.value co 'org')))`
	xpr, vi = ParseFilter(s)
	require.False(t, vi.HasErrors())

	if xpr.Children[1].Children[0].Path.Attr != "displayname" || xpr.Children[1].Children[1].Path.Attr != "email" {
		t.Errorf("Incorrect parse tree when parentheses are present [%s]", xpr.Serialize())
	}
}

func TestFilterRoundTrip(t *testing.T) {
	filters := []string{
		`userName eq 'bjensen'`,
		`userName eq 'bjensen' and email co 'example.com'`,
		`userName eq 'bjensen' or email co 'example.com' and title pr`,
		`not (title pr)`,
		`emails[type eq 'work' and value co '@example.com']`,
		`urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:employeeNumber eq '42'`,
		`age gt 25 and height le 170.5 and active eq true and nickName ne null`,
		`(userName sw 'b' or userName ew 'n') and not (active eq false)`,
	}

	for _, f := range filters {
		xpr, vi := ParseFilter(f)
		require.False(t, vi.HasErrors(), "filter %s", f)
		require.NotNil(t, xpr, "filter %s", f)

		// parse -> serialize -> parse must produce an equivalent tree
		reparsed, vi2 := ParseFilter(xpr.Serialize())
		require.False(t, vi2.HasErrors(), "serialized form of %s is %s", f, xpr.Serialize())

		if diff := cmp.Diff(xpr.ToMap(), reparsed.ToMap()); diff != "" {
			t.Errorf("filter %s did not survive the serialize round trip:\n%s", f, diff)
		}

		// parse -> to map -> from map -> serialize must stay equivalent
		rebuilt, err := FilterFromMap(xpr.ToMap())
		require.Nil(t, err)

		if diff := cmp.Diff(xpr.ToMap(), rebuilt.ToMap()); diff != "" {
			t.Errorf("filter %s did not survive the map round trip:\n%s", f, diff)
		}
	}
}

func TestFilterSerializedForm(t *testing.T) {
	xpr, vi := ParseFilter(`userName eq "bjensen"`)
	require.False(t, vi.HasErrors())
	assert.Equal(t, `userName eq 'bjensen'`, xpr.Serialize())

	// precedence is re-parenthesized only where meaning demands it
	xpr, vi = ParseFilter(`(a pr or b pr) and c pr`)
	require.False(t, vi.HasErrors())
	assert.Equal(t, `(a pr or b pr) and c pr`, xpr.Serialize())

	xpr, vi = ParseFilter(`a pr or (b pr and c pr)`)
	require.False(t, vi.HasErrors())
	assert.Equal(t, `a pr or b pr and c pr`, xpr.Serialize())
}
