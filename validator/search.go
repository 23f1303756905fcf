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

// listValidator implements the response side shared by GET queries and
// POST /.search: the ListResponse envelope, per-item resource
// validation, the filter match, the sort order and the resource count
// consistency.
type listValidator struct {
	cfg *conf.ScimConfig
	rts []*schema.ResourceType
}

// ResourcesQuery validates GET listing exchanges against one or more
// resource types (GET /Users, GET /Groups, or the server root).
type ResourcesQuery struct {
	listValidator
}

func NewResourcesQuery(cfg *conf.ScimConfig, rts ...*schema.ResourceType) *ResourcesQuery {
	return &ResourcesQuery{listValidator{cfg: cfg, rts: rts}}
}

func (v *ResourcesQuery) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()
	queryPresence(req, vi)

	if req.Query == nil {
		return vi
	}

	v.validateFilterParam(req.Query["filter"], vi, "query_string", "filter")
	v.validateSortParams(req.Query["sortBy"], req.Query["sortOrder"], vi, "query_string")

	validateIntParam(req.Query["startIndex"], vi, "query_string", "startIndex")
	validateIntParam(req.Query["count"], vi, "query_string", "count")

	return vi
}

func (v *ResourcesQuery) ValidateResponse(resp *Response) *base.ValidationIssues {
	return v.validateListResponse(resp)
}

func (lv *listValidator) validateFilterParam(filter string, vi *base.ValidationIssues, loc ...interface{}) {
	if len(strings.TrimSpace(filter)) == 0 {
		return
	}

	if lv.cfg != nil && !lv.cfg.Filter.Supported {
		vi.AddError(base.NotSupported(), false, loc...)
		return
	}

	node, filterIssues := base.ParseFilter(filter)
	vi.Merge(filterIssues, loc...)
	if node == nil {
		return
	}

	for _, rt := range lv.rts {
		vi.Merge(base.ValidateFilter(node, rt), loc...)
	}
}

func (lv *listValidator) validateSortParams(sortBy string, sortOrder string, vi *base.ValidationIssues, locPrefix interface{}) {
	if len(strings.TrimSpace(sortBy)) == 0 {
		if len(strings.TrimSpace(sortOrder)) != 0 {
			// sortOrder without sortBy has nothing to act on
			vi.AddError(base.BadValueContent("sortOrder requires sortBy"), true, locPrefix, "sortOrder")
		}
		return
	}

	if lv.cfg != nil && !lv.cfg.Sort.Supported {
		vi.AddError(base.NotSupported(), false, locPrefix, "sortBy")
		return
	}

	if _, err := schema.ParseAttrRep(sortBy); err != nil {
		vi.AddError(base.BadValueSyntax(), false, locPrefix, "sortBy")
	}

	switch strings.ToLower(strings.TrimSpace(sortOrder)) {
	case "", "ascending", "descending":
	default:
		vi.AddError(base.MustBeOneOf([]string{"ascending", "descending"}), true, locPrefix, "sortOrder")
	}
}

func validateIntParam(val string, vi *base.ValidationIssues, loc ...interface{}) {
	if len(strings.TrimSpace(val)) == 0 {
		return
	}

	if _, err := strconv.Atoi(strings.TrimSpace(val)); err != nil {
		vi.AddError(base.BadType("integer"), true, loc...)
	}
}

func (lv *listValidator) validateListResponse(resp *Response) *base.ValidationIssues {
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

	vi.Merge(base.ValidateMessage(schema.ListResponseSchema(), sd, nil), "body")

	resources, _ := sd.Get("Resources").([]interface{})
	log.Debugf("validating a listing of %d resources", len(resources))
	items := make([]*base.ScimData, 0, len(resources))
	itemTypes := make([]*schema.ResourceType, 0, len(resources))

	for i, raw := range resources {
		item, ok := raw.(*base.ScimData)
		if !ok {
			vi.AddError(base.BadType("complex"), false, "body", "Resources", i)
			continue
		}

		rt := lv.resourceTypeOf(item)
		if rt == nil {
			vi.AddError(base.NotSupported(), false, "body", "Resources", i)
			continue
		}

		vi.Merge(base.ValidateResource(rt, item, responsePresence(resp)), "body", "Resources", i)

		if resp.Filter != nil && !base.EvaluateFilter(resp.Filter, item, rt) {
			vi.AddError(base.NotMatchingFilter(), true, "body", "Resources", i)
		}

		items = append(items, item)
		itemTypes = append(itemTypes, rt)
	}

	lv.checkResourceCounts(sd, len(resources), resp, vi)
	lv.checkSortOrder(items, itemTypes, resp, vi)

	return vi
}

// resourceTypeOf picks the resource type whose main schema URI appears
// in the item's schemas array.
func (lv *listValidator) resourceTypeOf(item *base.ScimData) *schema.ResourceType {
	declared, _ := item.Get("schemas").([]interface{})

	for _, rt := range lv.rts {
		for _, e := range declared {
			if uri, ok := e.(string); ok && strings.EqualFold(uri, rt.Schema) {
				return rt
			}
		}
	}

	if len(lv.rts) == 1 && len(declared) == 0 {
		return lv.rts[0]
	}

	return nil
}

func (lv *listValidator) checkResourceCounts(sd *base.ScimData, returned int, resp *Response, vi *base.ValidationIssues) {
	totalResults, totalOk := intAt(sd, "totalResults")
	if !totalOk {
		return // the envelope validation reported the shape problem
	}

	if returned > totalResults {
		vi.AddError(base.BadNumberOfResources("more resources returned than totalResults"), true, "body", "Resources")
	}

	if resp.Count >= 0 && returned > resp.Count {
		vi.AddError(base.BadNumberOfResources("more resources returned than requested by count"), true, "body", "Resources")
	}

	if resp.Count < 0 && returned < totalResults {
		// no pagination was requested, a partial listing needs
		// itemsPerPage to say so
		if _, ok := intAt(sd, "itemsPerPage"); !ok {
			vi.AddError(base.BadNumberOfResources("fewer resources returned than totalResults"), true, "body", "Resources")
		}
	}

	if itemsPerPage, ok := intAt(sd, "itemsPerPage"); ok && itemsPerPage != returned {
		vi.AddError(base.BadNumberOfResources("itemsPerPage does not match the returned resources"), true, "body", "itemsPerPage")
	}

	if lv.cfg != nil && lv.cfg.Filter.MaxResults > 0 && returned > lv.cfg.Filter.MaxResults {
		vi.AddError(base.BadNumberOfResources("more resources returned than the configured maxResults"), true, "body", "Resources")
	}
}

func (lv *listValidator) checkSortOrder(items []*base.ScimData, itemTypes []*schema.ResourceType, resp *Response, vi *base.ValidationIssues) {
	if resp.Sorter == nil || len(items) < 2 {
		return
	}

	// items can belong to different resource types, the sort attribute
	// must resolve on the first one carrying it
	var rt *schema.ResourceType
	for _, it := range itemTypes {
		if it.ResolveRep(resp.Sorter.By) != nil {
			rt = it
			break
		}
	}

	if rt == nil {
		return
	}

	inOrder, err := resp.Sorter.InOrder(items, rt)
	if err != nil {
		return
	}

	if !inOrder {
		vi.AddError(base.NotSorted(), true, "body", "Resources")
	}
}

func intAt(sd *base.ScimData, key string) (int, bool) {
	v := sd.Get(key)
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	}

	if num, ok := v.(interface{ Int64() (int64, error) }); ok {
		if i, err := num.Int64(); err == nil {
			return int(i), true
		}
	}

	return 0, false
}

// SearchRequestPost validates POST /.search (and per-type .search)
// exchanges: the SearchRequest envelope on the way in, a ListResponse
// on the way out.
type SearchRequestPost struct {
	listValidator
}

func NewSearchRequestPost(cfg *conf.ScimConfig, rts ...*schema.ResourceType) *SearchRequestPost {
	return &SearchRequestPost{listValidator{cfg: cfg, rts: rts}}
}

func (v *SearchRequestPost) ValidateRequest(req *Request) *base.ValidationIssues {
	vi := base.NewIssues()

	sd := bodyData(req.Body)
	if sd == nil {
		vi.AddError(base.MissingRequired(), false, "body")
		return vi
	}

	vi.Merge(base.ValidateMessage(schema.SearchRequestSchema(), sd, nil), "body")

	if filter, ok := sd.Get("filter").(string); ok {
		v.validateFilterParam(filter, vi, "body", "filter")
	}

	sortBy, _ := sd.Get("sortBy").(string)
	sortOrder, _ := sd.Get("sortOrder").(string)
	v.validateSortParams(sortBy, sortOrder, vi, "body")

	return vi
}

func (v *SearchRequestPost) ValidateResponse(resp *Response) *base.ValidationIssues {
	return v.validateListResponse(resp)
}
