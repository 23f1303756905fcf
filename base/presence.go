// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"strings"

	"github.com/pkg/errors"

	"scimcore/schema"
)

// Data flow directions of a presence check.
const (
	REQUEST  = "REQUEST"
	RESPONSE = "RESPONSE"
)

// A PresenceConfig states which attributes must, may, or must not
// appear in a payload flowing in the given direction.
type PresenceConfig struct {
	Direction string
	AttrReps  []schema.BoundedAttrRep
	Include   bool

	// RequireRequired additionally demands every schema-required,
	// client-writable attribute in a request payload. Set by the create
	// request validator.
	RequireRequired bool
}

func NewPresenceConfig(direction string, reps []schema.BoundedAttrRep, include bool) (*PresenceConfig, error) {
	direction = strings.ToUpper(direction)
	if direction != REQUEST && direction != RESPONSE {
		return nil, errors.Errorf("unknown data direction '%s'", direction)
	}

	return &PresenceConfig{Direction: direction, AttrReps: reps, Include: include}, nil
}

// PresenceConfigFromQuery builds a RESPONSE presence configuration out
// of the attributes / excludedAttributes query parameters. Returns nil
// when neither is given. Supplying both is flagged by the validator,
// attributes wins here.
func PresenceConfigFromQuery(attributes string, excludedAttributes string) (*PresenceConfig, error) {
	csv := attributes
	include := true
	if len(strings.TrimSpace(csv)) == 0 {
		csv = excludedAttributes
		include = false
	}

	reps := SplitAttrCsv(csv)
	if len(reps) == 0 {
		return nil, nil
	}

	return NewPresenceConfig(RESPONSE, reps, include)
}

// SplitAttrCsv parses a comma separated attribute list, the form the
// attributes and excludedAttributes parameters arrive in. Entries that
// are not valid attribute paths are skipped.
func SplitAttrCsv(csv string) []schema.BoundedAttrRep {
	tokens := strings.Split(csv, ",")
	reps := make([]schema.BoundedAttrRep, 0, len(tokens))

	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if len(t) == 0 || t == "." || strings.HasSuffix(t, ".") {
			continue
		}

		rep, err := schema.ParseAttrRep(t)
		if err != nil {
			log.Debugf("skipping invalid attribute path %s in the attribute csv", t)
			continue
		}

		reps = append(reps, rep)
	}

	if len(reps) == 0 {
		return nil
	}

	return reps
}

// listed reports whether the attribute is named by the configuration,
// directly, through its parent, or through one of its sub-attributes.
func (pc *PresenceConfig) listed(at *schema.AttrType) bool {
	for _, rep := range pc.AttrReps {
		if rep.HasSchema() && len(at.SchemaId) != 0 && !strings.EqualFold(rep.Schema, at.SchemaId) {
			continue
		}

		if at.Parent() != nil {
			if !strings.EqualFold(rep.Attr, at.Parent().Name) {
				continue
			}

			if !rep.HasSubAttr() || strings.EqualFold(rep.SubAttr, at.Name) {
				return true
			}

			continue
		}

		if strings.EqualFold(rep.Attr, at.Name) {
			return true
		}
	}

	return false
}

// validatePresence checks one attribute's presence or absence against
// the configuration. The issues carry no location, the caller merges
// them at the attribute's place.
func validatePresence(at *schema.AttrType, value interface{}, pc *PresenceConfig) *ValidationIssues {
	vi := NewIssues()
	if pc == nil {
		return vi
	}

	hasList := len(pc.AttrReps) != 0
	isListed := hasList && pc.listed(at)

	if present(value) {
		if pc.Direction == REQUEST {
			if at.IsReadOnly() {
				vi.AddError(MustNotBeProvided(), true)
			} else if hasList && !pc.Include && isListed {
				vi.AddError(MustNotBeProvided(), true)
			}

			return vi
		}

		// RESPONSE
		switch {
		case at.IsWriteOnly() || at.IsReturnedNever():
			vi.AddError(MustNotBeReturned(), true)

		case at.IsReturnedAlways():
			// always wins over any exclusion

		case at.IsReturnedOnRequest():
			if !(hasList && pc.Include && isListed) {
				vi.AddError(MustNotBeReturned(), true)
			}

		case hasList && pc.Include && !isListed && !at.Required:
			vi.AddError(MustNotBeReturned(), true)

		case hasList && !pc.Include && isListed:
			vi.AddError(MustNotBeReturned(), true)
		}

		return vi
	}

	// the value is missing
	switch {
	case pc.Direction == REQUEST && pc.RequireRequired && at.Required && !at.IsReadOnly():
		vi.AddError(MissingRequired(), false)

	case pc.Direction == REQUEST && hasList && pc.Include && isListed:
		vi.AddError(MissingRequired(), false)

	case pc.Direction == RESPONSE && at.Required && at.IsReturnedAlways():
		vi.AddError(MissingRequired(), false)
	}

	return vi
}
