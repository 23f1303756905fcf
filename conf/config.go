// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package conf

import (
	"encoding/json"

	logger "github.com/juju/loggo"
)

var log logger.Logger

func init() {
	log = logger.GetLogger("scimcore.conf")
}

type AuthenticationScheme struct {
	Description      string
	DocumentationURI string
	Name             string
	Primary          bool
	SpecURI          string
	Type             string
	Notes            string
}

type Bulk struct {
	MaxOperations  int
	MaxPayloadSize int
	Supported      bool
	Notes          string
}

type ChangePassword struct {
	Supported bool
	Notes     string
}

type Etag struct {
	Supported bool
	Notes     string
}

type Filter struct {
	MaxResults int
	Supported  bool
	Notes      string
}

type Patch struct {
	Supported bool
	Notes     string
}

type Sort struct {
	Supported bool
	Notes     string
}

// ScimConfig is the rfc7643 section 5 service provider configuration.
// It is built once during initialization, validators only ever read it.
type ScimConfig struct {
	DocumentationURI      string
	AuthenticationSchemes []AuthenticationScheme
	Bulk                  Bulk
	ChangePassword        ChangePassword
	Etag                  Etag
	Filter                Filter
	Patch                 Patch
	Sort                  Sort
	Notes                 string
}

func DefaultConfig() *ScimConfig {
	scim := &ScimConfig{DocumentationURI: "http://keydap.com/sparrow/scim"}
	oauth := AuthenticationScheme{Type: "oauthbearertoken", Primary: true, Name: "OAuth Bearer Token", Description: "Authentication scheme using the OAuth Bearer Token Standard", SpecURI: "http://www.rfc-editor.org/info/rfc6750", DocumentationURI: "http://keydap.com/sparrow/scim"}
	basic := AuthenticationScheme{Type: "httpbasic", Name: "HTTP Basic", Description: "Authentication scheme using the HTTP Basic Standard", SpecURI: "http://www.rfc-editor.org/info/rfc2617", DocumentationURI: "http://keydap.com/sparrow/scim"}
	scim.AuthenticationSchemes = []AuthenticationScheme{oauth, basic}

	scim.Bulk = Bulk{Supported: true, MaxOperations: 1000, MaxPayloadSize: 1048576}
	scim.ChangePassword = ChangePassword{Supported: true}
	scim.Etag = Etag{Supported: true}
	scim.Filter = Filter{Supported: true, MaxResults: 200}
	scim.Patch = Patch{Supported: true}
	scim.Sort = Sort{Supported: true}

	return scim
}

// ParseConfig reads a service provider configuration out of its JSON
// form.
func ParseConfig(data []byte) (*ScimConfig, error) {
	cf := DefaultConfig()
	err := json.Unmarshal(data, cf)
	if err != nil {
		log.Debugf("failed to parse the scim configuration %#v", err)
		return nil, err
	}

	return cf, nil
}

// ToMap renders the configuration as the resource body served at
// /ServiceProviderConfig.
func (cf *ScimConfig) ToMap() map[string]interface{} {
	schemes := make([]interface{}, len(cf.AuthenticationSchemes))
	for i, as := range cf.AuthenticationSchemes {
		schemes[i] = map[string]interface{}{
			"type":             as.Type,
			"name":             as.Name,
			"description":      as.Description,
			"specUri":          as.SpecURI,
			"documentationUri": as.DocumentationURI,
			"primary":          as.Primary,
		}
	}

	return map[string]interface{}{
		"schemas":          []interface{}{"urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"},
		"documentationUri": cf.DocumentationURI,
		"patch":            map[string]interface{}{"supported": cf.Patch.Supported},
		"bulk": map[string]interface{}{
			"supported":      cf.Bulk.Supported,
			"maxOperations":  cf.Bulk.MaxOperations,
			"maxPayloadSize": cf.Bulk.MaxPayloadSize,
		},
		"filter": map[string]interface{}{
			"supported":  cf.Filter.Supported,
			"maxResults": cf.Filter.MaxResults,
		},
		"changePassword":        map[string]interface{}{"supported": cf.ChangePassword.Supported},
		"sort":                  map[string]interface{}{"supported": cf.Sort.Supported},
		"etag":                  map[string]interface{}{"supported": cf.Etag.Supported},
		"authenticationSchemes": schemes,
	}
}
