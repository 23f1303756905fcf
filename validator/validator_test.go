// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package validator

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"scimcore/base"
	"scimcore/conf"
	"scimcore/schema"
)

func TestValidator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validator Suite")
}

const userUri = "urn:ietf:params:scim:schemas:core:2.0:User"

var _ = Describe("resource endpoint validation", func() {
	var rt *schema.ResourceType
	var cfg *conf.ScimConfig

	BeforeEach(func() {
		rt = schema.NewUserResourceType()
		cfg = conf.DefaultConfig()
	})

	Context("creating a resource", func() {
		It("accepts a complete creation request", func() {
			v := NewResourcesPost(rt, cfg)
			vi := v.ValidateRequest(&Request{Body: map[string]interface{}{
				"schemas":  []interface{}{userUri},
				"userName": "bjensen",
			}})

			Expect(vi.HasErrors()).To(BeFalse(), "%v", vi.ToMap(true))
		})

		It("demands the required attributes and rejects server issued ones", func() {
			v := NewResourcesPost(rt, cfg)
			vi := v.ValidateRequest(&Request{Body: map[string]interface{}{
				"schemas": []interface{}{userUri},
				"id":      "abc",
			}})

			Expect(vi.CodesAt("body", "userName")).To(Equal([]int{5}))
			Expect(vi.CodesAt("body", "id")).To(Equal([]int{6}))
		})

		It("expects status 201 on the way back", func() {
			v := NewResourcesPost(rt, cfg)
			vi := v.ValidateResponse(&Response{StatusCode: 200, Body: map[string]interface{}{
				"schemas":  []interface{}{userUri},
				"id":       "abc",
				"userName": "bjensen",
			}})

			Expect(vi.CodesAt("status")).To(Equal([]int{19}))
		})
	})

	Context("fetching a resource", func() {
		It("flags attributes that must never be returned", func() {
			v := NewResourceObjectGet(rt, cfg)
			vi := v.ValidateResponse(&Response{StatusCode: 200, Body: map[string]interface{}{
				"schemas":  []interface{}{userUri},
				"id":       "abc",
				"userName": "bjensen",
				"password": "secret",
			}})

			Expect(vi.CodesAt("body", "password")).To(Equal([]int{7}))
		})

		It("flags the mutually exclusive projection parameters", func() {
			v := NewResourceObjectGet(rt, cfg)
			vi := v.ValidateRequest(&Request{Query: map[string]string{
				"attributes":         "userName",
				"excludedAttributes": "emails",
			}})

			Expect(vi.CodesAt("query_string", "attributes")).To(Equal([]int{11}))
			Expect(vi.CodesAt("query_string", "excludedAttributes")).To(Equal([]int{11}))
		})
	})

	Context("patching a resource", func() {
		It("collects all issues of a broken operation", func() {
			v := NewResourceObjectPatch(rt, cfg)
			vi := v.ValidateRequest(&Request{Body: map[string]interface{}{
				"schemas": []interface{}{"urn:ietf:params:scim:api:messages:2.0:PatchOp"},
				"Operations": []interface{}{
					map[string]interface{}{"op": "replace", "path": "ims[ty"},
				},
			}})

			Expect(vi.CodesAt("body", "Operations", 0, "path")).To(Equal([]int{1}))
			Expect(vi.CodesAt("body", "Operations", 0, "value")).To(Equal([]int{5}))
		})

		It("reports patch as unsupported when the provider disables it", func() {
			cfg.Patch.Supported = false
			v := NewResourceObjectPatch(rt, cfg)
			vi := v.ValidateRequest(&Request{Body: map[string]interface{}{}})

			Expect(vi.CodesAt("body")).To(Equal([]int{31}))
		})

		It("accepts an empty 204 response", func() {
			v := NewResourceObjectPatch(rt, cfg)
			vi := v.ValidateResponse(&Response{StatusCode: 204})
			Expect(vi.HasErrors()).To(BeFalse())

			vi = v.ValidateResponse(&Response{StatusCode: 204, Body: map[string]interface{}{"id": "abc"}})
			Expect(vi.CodesAt("body")).To(Equal([]int{7}))
		})
	})

	Context("deleting a resource", func() {
		It("expects an empty 204", func() {
			v := NewResourceObjectDelete(rt, cfg)

			vi := v.ValidateResponse(&Response{StatusCode: 204})
			Expect(vi.HasErrors()).To(BeFalse())

			vi = v.ValidateResponse(&Response{StatusCode: 200})
			Expect(vi.CodesAt("status")).To(Equal([]int{19}))
		})
	})
})

var _ = Describe("listing validation", func() {
	var rt *schema.ResourceType
	var cfg *conf.ScimConfig

	listBody := func(resources ...interface{}) map[string]interface{} {
		return map[string]interface{}{
			"schemas":      []interface{}{"urn:ietf:params:scim:api:messages:2.0:ListResponse"},
			"totalResults": float64(len(resources)),
			"Resources":    resources,
		}
	}

	BeforeEach(func() {
		rt = schema.NewUserResourceType()
		cfg = conf.DefaultConfig()
	})

	It("reports every broken resource of the listing together", func() {
		v := NewResourcesQuery(cfg, rt)

		vi := v.ValidateResponse(&Response{
			StatusCode: 200,
			Count:      -1,
			Body: listBody(
				map[string]interface{}{"schemas": []interface{}{userUri}, "id": float64(42), "userName": "a"},
				map[string]interface{}{"schemas": []interface{}{userUri}, "userName": "b"},
			),
		})

		Expect(vi.CodesAt("body", "Resources", 0, "id")).To(Equal([]int{2}))
		Expect(vi.CodesAt("body", "Resources", 1, "id")).To(Equal([]int{5}))
	})

	It("flags resources that do not match the requested filter", func() {
		v := NewResourcesQuery(cfg, rt)

		filter, vi := base.ParseFilter(`userName sw 'a'`)
		Expect(vi.HasErrors()).To(BeFalse())

		vi = v.ValidateResponse(&Response{
			StatusCode: 200,
			Count:      -1,
			Filter:     filter,
			Body: listBody(
				map[string]interface{}{"schemas": []interface{}{userUri}, "id": "1", "userName": "adam"},
				map[string]interface{}{"schemas": []interface{}{userUri}, "id": "2", "userName": "bob"},
			),
		})

		Expect(vi.CodesAt("body", "Resources", 0)).To(BeNil())
		Expect(vi.CodesAt("body", "Resources", 1)).To(Equal([]int{21}))
	})

	It("flags a listing that violates the requested sort", func() {
		v := NewResourcesQuery(cfg, rt)

		sorter, err := base.NewSorter("userName", "ascending")
		Expect(err).To(BeNil())

		vi := v.ValidateResponse(&Response{
			StatusCode: 200,
			Count:      -1,
			Sorter:     sorter,
			Body: listBody(
				map[string]interface{}{"schemas": []interface{}{userUri}, "id": "1", "userName": "bob"},
				map[string]interface{}{"schemas": []interface{}{userUri}, "id": "2", "userName": "adam"},
			),
		})

		Expect(vi.CodesAt("body", "Resources")).To(Equal([]int{22}))
	})

	It("checks the returned resource count against the envelope", func() {
		v := NewResourcesQuery(cfg, rt)

		body := listBody(
			map[string]interface{}{"schemas": []interface{}{userUri}, "id": "1", "userName": "a"},
			map[string]interface{}{"schemas": []interface{}{userUri}, "id": "2", "userName": "b"},
		)
		body["totalResults"] = float64(1)

		vi := v.ValidateResponse(&Response{StatusCode: 200, Count: -1, Body: body})
		Expect(vi.CodesAt("body", "Resources")).To(Equal([]int{20}))
	})

	It("rejects filtering when the provider disables it", func() {
		cfg.Filter.Supported = false
		v := NewResourcesQuery(cfg, rt)

		vi := v.ValidateRequest(&Request{Query: map[string]string{"filter": `userName pr`}})
		Expect(vi.CodesAt("query_string", "filter")).To(Equal([]int{31}))
	})

	It("collects the filter parse errors under the query string", func() {
		v := NewResourcesQuery(cfg, rt)

		vi := v.ValidateRequest(&Request{Query: map[string]string{"filter": `userName xyz 'a'`}})
		Expect(vi.CodesAt("query_string", "filter")).To(Equal([]int{104}))
	})

	It("validates the search request envelope", func() {
		v := NewSearchRequestPost(cfg, rt)

		vi := v.ValidateRequest(&Request{Body: map[string]interface{}{
			"schemas":            []interface{}{"urn:ietf:params:scim:api:messages:2.0:SearchRequest"},
			"attributes":         []interface{}{"userName"},
			"excludedAttributes": []interface{}{"emails"},
		}})

		Expect(vi.CodesAt("body", "attributes")).To(Equal([]int{11}))
		Expect(vi.CodesAt("body", "excludedAttributes")).To(Equal([]int{11}))
	})
})

var _ = Describe("bulk validation", func() {
	var cfg *conf.ScimConfig
	var users *schema.ResourceType
	var groups *schema.ResourceType

	bulkBody := func(ops ...interface{}) map[string]interface{} {
		return map[string]interface{}{
			"schemas":    []interface{}{"urn:ietf:params:scim:api:messages:2.0:BulkRequest"},
			"Operations": ops,
		}
	}

	BeforeEach(func() {
		cfg = conf.DefaultConfig()
		users = schema.NewUserResourceType()
		groups = schema.NewGroupResourceType()
	})

	It("caps the number of operations", func() {
		cfg.Bulk.MaxOperations = 1
		v := NewBulkOperations(cfg, users, groups)

		vi := v.ValidateRequest(&Request{Body: bulkBody(
			map[string]interface{}{"method": "POST", "path": "/Users", "bulkId": "a", "data": map[string]interface{}{}},
			map[string]interface{}{"method": "POST", "path": "/Users", "bulkId": "b", "data": map[string]interface{}{}},
		)})

		Expect(vi.CodesAt("body", "Operations")).To(Equal([]int{26}))
	})

	It("rejects operations on unknown resources", func() {
		v := NewBulkOperations(cfg, users, groups)

		vi := v.ValidateRequest(&Request{Body: bulkBody(
			map[string]interface{}{"method": "POST", "path": "/Frobnicators", "bulkId": "a", "data": map[string]interface{}{}},
		)})

		Expect(vi.CodesAt("body", "Operations", 0, "path")).To(Equal([]int{25}))
	})

	It("demands a bulkId on POST operations", func() {
		v := NewBulkOperations(cfg, users, groups)

		vi := v.ValidateRequest(&Request{Body: bulkBody(
			map[string]interface{}{"method": "POST", "path": "/Users", "data": map[string]interface{}{}},
		)})

		Expect(vi.CodesAt("body", "Operations", 0, "bulkId")).To(Equal([]int{5}))
	})

	It("bounds the errors of a response by failOnErrors", func() {
		v := NewBulkOperations(cfg, users, groups)

		errBody := map[string]interface{}{
			"schemas": []interface{}{"urn:ietf:params:scim:api:messages:2.0:Error"},
			"status":  "400",
		}

		vi := v.ValidateResponse(&Response{
			StatusCode:   200,
			FailOnErrors: 1,
			Body: map[string]interface{}{
				"schemas": []interface{}{"urn:ietf:params:scim:api:messages:2.0:BulkResponse"},
				"Operations": []interface{}{
					map[string]interface{}{"method": "POST", "status": "400", "response": errBody},
					map[string]interface{}{"method": "POST", "status": "400", "response": errBody},
				},
			},
		})

		Expect(vi.CodesAt("body", "Operations")).To(Equal([]int{27}))
	})
})

var _ = Describe("error body validation", func() {
	It("demands a status within the error range", func() {
		v := NewErrorValidator()

		vi := v.ValidateResponse(&Response{StatusCode: 200, Body: map[string]interface{}{
			"schemas": []interface{}{"urn:ietf:params:scim:api:messages:2.0:Error"},
			"status":  "200",
		}})

		Expect(vi.CodesAt("body", "status")).To(Equal([]int{18}))
	})

	It("demands agreement between the body and the transport status", func() {
		v := NewErrorValidator()

		vi := v.ValidateResponse(&Response{StatusCode: 404, Body: map[string]interface{}{
			"schemas": []interface{}{"urn:ietf:params:scim:api:messages:2.0:Error"},
			"status":  "400",
		}})

		Expect(vi.CodesAt("body", "status")).To(Equal([]int{19}))
	})
})
