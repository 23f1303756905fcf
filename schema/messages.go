// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package schema

import "sync"

// URNs of the API message schemas defined by rfc7644 section 8.2 and of
// the core resource schemas defined by rfc7643.
const (
	ErrorUri         = "urn:ietf:params:scim:api:messages:2.0:Error"
	ListResponseUri  = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SearchRequestUri = "urn:ietf:params:scim:api:messages:2.0:SearchRequest"
	PatchOpUri       = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	BulkRequestUri   = "urn:ietf:params:scim:api:messages:2.0:BulkRequest"
	BulkResponseUri  = "urn:ietf:params:scim:api:messages:2.0:BulkResponse"

	UserUri           = "urn:ietf:params:scim:schemas:core:2.0:User"
	GroupUri          = "urn:ietf:params:scim:schemas:core:2.0:Group"
	EnterpriseUserUri = "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"

	SpConfigUri     = "urn:ietf:params:scim:schemas:core:2.0:ServiceProviderConfig"
	ResourceTypeUri = "urn:ietf:params:scim:schemas:core:2.0:ResourceType"
	SchemaUri       = "urn:ietf:params:scim:schemas:core:2.0:Schema"
)

var msgOnce sync.Once

var (
	errorSchema         *Schema
	listResponseSchema  *Schema
	searchRequestSchema *Schema
	patchOpSchema       *Schema
	bulkRequestSchema   *Schema
	bulkResponseSchema  *Schema
	spConfigSchema      *Schema
	resourceTypeSchema  *Schema
	schemaDefSchema     *Schema
)

func buildMessageSchemas() {
	errorSchema = buildErrorSchema()
	listResponseSchema = buildListResponseSchema()
	searchRequestSchema = buildSearchRequestSchema()
	patchOpSchema = buildPatchOpSchema()
	bulkRequestSchema = buildBulkRequestSchema()
	bulkResponseSchema = buildBulkResponseSchema()
	spConfigSchema = buildSpConfigSchema()
	resourceTypeSchema = buildResourceTypeSchema()
	schemaDefSchema = buildSchemaDefSchema()
}

// ErrorSchema returns the schema of the rfc7644 section 3.12 error
// envelope.
func ErrorSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return errorSchema
}

func ListResponseSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return listResponseSchema
}

func SearchRequestSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return searchRequestSchema
}

func PatchOpSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return patchOpSchema
}

func BulkRequestSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return bulkRequestSchema
}

func BulkResponseSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return bulkResponseSchema
}

// SpConfigSchema returns the schema describing the service provider
// configuration resource served at /ServiceProviderConfig.
func SpConfigSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return spConfigSchema
}

// ResourceTypeSchema returns the meta schema of the resource type
// representations served at /ResourceTypes.
func ResourceTypeSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return resourceTypeSchema
}

// SchemaDefSchema returns the meta schema of the schema representations
// served at /Schemas.
func SchemaDefSchema() *Schema {
	msgOnce.Do(buildMessageSchemas)
	return schemaDefSchema
}

func msgAttr(name string, atType string) *AttrType {
	at := NewAttrType(name, atType)
	at.CaseExact = true
	return at
}

func schemasAttr() *AttrType {
	at := msgAttr("schemas", "string")
	at.MultiValued = true
	at.Required = true
	at.Returned = "always"
	return at
}

func buildErrorSchema() *Schema {
	scimType := msgAttr("scimType", "string")
	scimType.CanonicalValues = []string{
		"invalidFilter", "tooMany", "uniqueness", "mutability", "invalidSyntax",
		"invalidPath", "noTarget", "invalidValue", "invalidVers", "sensitive",
	}

	status := msgAttr("status", "string")
	status.Required = true

	return BuildSchema(ErrorUri, "Error", "Errors", "",
		schemasAttr(), scimType, msgAttr("detail", "string"), status)
}

func buildListResponseSchema() *Schema {
	totalResults := msgAttr("totalResults", "integer")
	totalResults.Required = true

	// the Resources attribute is validated per item against the resource
	// schemas, so it is declared opaque here
	resources := msgAttr("Resources", "any")
	resources.MultiValued = true

	return BuildSchema(ListResponseUri, "ListResponse", "ListResponses", "",
		schemasAttr(), totalResults, resources,
		msgAttr("startIndex", "integer"), msgAttr("itemsPerPage", "integer"))
}

func buildSearchRequestSchema() *Schema {
	attributes := msgAttr("attributes", "string")
	attributes.MultiValued = true

	excluded := msgAttr("excludedAttributes", "string")
	excluded.MultiValued = true

	sortOrder := msgAttr("sortOrder", "string")
	sortOrder.CaseExact = false
	sortOrder.CanonicalValues = []string{"ascending", "descending"}
	sortOrder.CanonicalExact = true

	sc := BuildSchema(SearchRequestUri, "SearchRequest", "SearchRequests", "",
		schemasAttr(), attributes, excluded,
		msgAttr("filter", "string"), msgAttr("sortBy", "string"), sortOrder,
		msgAttr("startIndex", "integer"), msgAttr("count", "integer"))

	sc.ExclusiveAts = [][]string{{"attributes", "excludedAttributes"}}
	return sc
}

func buildPatchOpSchema() *Schema {
	// the per-operation rules (op names, path grammar, value and
	// mutability semantics) live in the patch engine, the envelope only
	// pins the shape
	operations := msgAttr("Operations", "any")
	operations.MultiValued = true
	operations.Required = true

	return BuildSchema(PatchOpUri, "PatchOp", "PatchOps", "", schemasAttr(), operations)
}

func buildBulkRequestSchema() *Schema {
	// the per-operation rules live in the bulk validator
	operations := msgAttr("Operations", "any")
	operations.MultiValued = true
	operations.Required = true

	return BuildSchema(BulkRequestUri, "BulkRequest", "BulkRequests", "/Bulk",
		schemasAttr(), msgAttr("failOnErrors", "integer"), operations)
}

func buildBulkResponseSchema() *Schema {
	operations := msgAttr("Operations", "any")
	operations.MultiValued = true
	operations.Required = true

	return BuildSchema(BulkResponseUri, "BulkResponse", "BulkResponses", "/Bulk",
		schemasAttr(), operations)
}

func supportedSection(name string) *AttrType {
	supported := msgAttr("supported", "boolean")
	supported.Required = true

	section := msgAttr(name, "complex")
	section.Required = true
	section.SubAttributes = []*AttrType{supported}
	return section
}

func buildSpConfigSchema() *Schema {
	documentationUri := msgAttr("documentationUri", "reference")
	documentationUri.ReferenceTypes = []string{"external"}

	bulk := supportedSection("bulk")
	maxOperations := msgAttr("maxOperations", "integer")
	maxOperations.Required = true
	maxPayloadSize := msgAttr("maxPayloadSize", "integer")
	maxPayloadSize.Required = true
	bulk.SubAttributes = append(bulk.SubAttributes, maxOperations, maxPayloadSize)

	filter := supportedSection("filter")
	maxResults := msgAttr("maxResults", "integer")
	maxResults.Required = true
	filter.SubAttributes = append(filter.SubAttributes, maxResults)

	authType := msgAttr("type", "string")
	authType.Required = true
	authType.CanonicalValues = []string{"oauth", "oauth2", "oauthbearertoken", "httpbasic", "httpdigest"}
	authName := msgAttr("name", "string")
	authName.Required = true
	authDesc := msgAttr("description", "string")
	authDesc.Required = true
	specUri := msgAttr("specUri", "reference")
	specUri.ReferenceTypes = []string{"external"}
	authDocUri := msgAttr("documentationUri", "reference")
	authDocUri.ReferenceTypes = []string{"external"}
	primary := msgAttr("primary", "boolean")

	authenticationSchemes := msgAttr("authenticationSchemes", "complex")
	authenticationSchemes.MultiValued = true
	authenticationSchemes.Required = true
	authenticationSchemes.SubAttributes = []*AttrType{authType, authName, authDesc, specUri, authDocUri, primary}

	return BuildSchema(SpConfigUri, "Service Provider Configuration", "", "/ServiceProviderConfig",
		schemasAttr(), documentationUri,
		supportedSection("patch"), bulk, filter,
		supportedSection("changePassword"), supportedSection("sort"), supportedSection("etag"),
		authenticationSchemes)
}

func buildResourceTypeSchema() *Schema {
	id := msgAttr("id", "string")

	name := msgAttr("name", "string")
	name.Required = true

	endpoint := msgAttr("endpoint", "reference")
	endpoint.Required = true
	endpoint.ReferenceTypes = []string{"uri"}

	schemaAt := msgAttr("schema", "reference")
	schemaAt.Required = true
	schemaAt.ReferenceTypes = []string{"uri"}

	extSchema := msgAttr("schema", "reference")
	extSchema.Required = true
	extSchema.ReferenceTypes = []string{"uri"}
	extRequired := msgAttr("required", "boolean")
	extRequired.Required = true

	schemaExtensions := msgAttr("schemaExtensions", "complex")
	schemaExtensions.MultiValued = true
	schemaExtensions.SubAttributes = []*AttrType{extSchema, extRequired}

	// the representations served at /ResourceTypes carry no schemas
	// attribute of their own
	return BuildSchema(ResourceTypeUri, "ResourceType", "ResourceTypes", "/ResourceTypes",
		id, name, msgAttr("description", "string"), endpoint, schemaAt, schemaExtensions)
}

func buildSchemaDefSchema() *Schema {
	id := msgAttr("id", "string")
	id.Required = true

	name := msgAttr("name", "string")
	name.Required = true

	attrName := msgAttr("name", "string")
	attrName.Required = true
	attrTypeAt := msgAttr("type", "string")
	attrTypeAt.Required = true
	attrTypeAt.CaseExact = false
	attrTypeAt.CanonicalValues = []string{"string", "boolean", "decimal", "integer", "dateTime", "binary", "reference", "complex"}
	multiValued := msgAttr("multiValued", "boolean")
	multiValued.Required = true
	required := msgAttr("required", "boolean")
	caseExact := msgAttr("caseExact", "boolean")
	mutability := msgAttr("mutability", "string")
	mutability.CanonicalValues = []string{"readOnly", "readWrite", "immutable", "writeOnly"}
	returned := msgAttr("returned", "string")
	returned.CanonicalValues = []string{"always", "never", "default", "request"}
	uniqueness := msgAttr("uniqueness", "string")
	uniqueness.CanonicalValues = []string{"none", "server", "global"}
	canonicalValues := msgAttr("canonicalValues", "string")
	canonicalValues.MultiValued = true
	referenceTypes := msgAttr("referenceTypes", "string")
	referenceTypes.MultiValued = true
	// attribute definitions nest one level deep, the sub-definitions are
	// validated structurally only
	subAttributes := msgAttr("subAttributes", "any")
	subAttributes.MultiValued = true

	attributes := msgAttr("attributes", "complex")
	attributes.MultiValued = true
	attributes.Required = true
	attributes.SubAttributes = []*AttrType{
		attrName, attrTypeAt, multiValued, msgAttr("description", "string"), required,
		caseExact, mutability, returned, uniqueness, canonicalValues, referenceTypes,
		subAttributes,
	}

	return BuildSchema(SchemaUri, "Schema", "Schemas", "/Schemas",
		id, name, msgAttr("description", "string"), attributes)
}
