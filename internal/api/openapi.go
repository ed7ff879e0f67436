package api

import (
	"github.com/JaimeStill/sift/internal/config"
	"github.com/JaimeStill/sift/pkg/openapi"
)

// NewSpec describes the API routes. Storage paths are included only when
// the blob archive is enabled.
func NewSpec(cfg *config.Config, withStorage bool) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(schemas())

	documentID := openapi.PathParam("document_id", "Document ID")
	findingType := openapi.QueryParam("finding_type", "string", "Only findings of this type", false)

	spec.Paths["/upload"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Scan a PDF for sensitive data",
			Tags:    []string{"Upload"},
			RequestBody: &openapi.RequestBody{
				Required: true,
				Content: map[string]*openapi.MediaType{
					"multipart/form-data": {Schema: &openapi.Schema{
						Type:     "object",
						Required: []string{"file"},
						Properties: map[string]*openapi.Schema{
							"file": {Type: "string", Format: "binary"},
						},
					}},
				},
			},
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Scan completed", "UploadResult"),
				400: openapi.ResponseRef("BadRequest"),
				413: openapi.ResponseRef("PayloadTooLarge"),
				422: openapi.ResponseRef("UnprocessableEntity"),
				500: openapi.ResponseRef("InternalError"),
				504: openapi.ResponseRef("GatewayTimeout"),
			},
		},
	}

	spec.Paths["/findings"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List documents with their findings",
			Tags:    []string{"Findings"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("sort", "string", "Sort fields", false),
				openapi.QueryParam("search", "string", "Filename contains", false),
				openapi.QueryParam("doc_id", "string", "Document ID", false),
				openapi.QueryParam("status", "string", "pending, success, or failed", false),
				findingType,
				openapi.QueryParam("from", "string", "Uploaded at or after (RFC 3339 or YYYY-MM-DD)", false),
				openapi.QueryParam("to", "string", "Uploaded before (RFC 3339 or YYYY-MM-DD, inclusive)", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of documents", "DocumentFindingsPage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/findings/{document_id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Get one document's findings",
			Tags:       []string{"Findings"},
			Parameters: []*openapi.Parameter{documentID, findingType},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Document findings", "DocumentFindings"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/findings/stats/summary"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Aggregate statistics",
			Tags:    []string{"Findings"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Statistics", "Statistics"),
			},
		},
	}

	spec.Paths["/documents/{document_id}/metrics"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Unexpired processing metrics for a document",
			Tags:       []string{"Findings"},
			Parameters: []*openapi.Parameter{documentID},
			Responses: map[int]*openapi.Response{
				200: {
					Description: "Metrics",
					Content: map[string]*openapi.MediaType{
						"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("Metric")}},
					},
				},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	if withStorage {
		key := &openapi.Parameter{
			Name:     "key",
			In:       "path",
			Required: true,
			Schema:   &openapi.Schema{Type: "string"},
		}

		spec.Paths["/storage"] = &openapi.PathItem{
			Get: &openapi.Operation{
				Summary: "List archived uploads",
				Tags:    []string{"Storage"},
				Parameters: []*openapi.Parameter{
					openapi.QueryParam("prefix", "string", "Key prefix", false),
					openapi.QueryParam("marker", "string", "Continuation marker", false),
					openapi.QueryParam("max_results", "integer", "Page size", false),
				},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Blob listing", "BlobList"),
					400: openapi.ResponseRef("BadRequest"),
				},
			},
		}
		spec.Paths["/storage/{key}"] = &openapi.PathItem{
			Get: &openapi.Operation{
				Summary:    "Archived upload metadata",
				Tags:       []string{"Storage"},
				Parameters: []*openapi.Parameter{key},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Blob metadata", "BlobMeta"),
					404: openapi.ResponseRef("NotFound"),
				},
			},
		}
		spec.Paths["/storage/download/{key}"] = &openapi.PathItem{
			Get: &openapi.Operation{
				Summary:    "Download an archived upload",
				Tags:       []string{"Storage"},
				Parameters: []*openapi.Parameter{key},
				Responses: map[int]*openapi.Response{
					200: {Description: "PDF content"},
					404: openapi.ResponseRef("NotFound"),
				},
			},
		}
	}

	return spec
}

func schemas() map[string]*openapi.Schema {
	str := &openapi.Schema{Type: "string"}
	integer := &openapi.Schema{Type: "integer"}
	number := &openapi.Schema{Type: "number"}
	uuid := &openapi.Schema{Type: "string", Format: "uuid"}
	timestamp := &openapi.Schema{Type: "string", Format: "date-time"}

	return map[string]*openapi.Schema{
		"PageFault": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page_number": integer,
				"error":       str,
			},
		},
		"Document": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document_id":        uuid,
				"filename":           str,
				"size_bytes":         integer,
				"page_count":         integer,
				"uploaded_at":        timestamp,
				"processing_time_ms": integer,
				"status":             {Type: "string", Enum: []any{"pending", "success", "failed"}},
				"error_message":      str,
				"storage_key":        str,
				"page_faults":        {Type: "array", Items: openapi.SchemaRef("PageFault")},
			},
		},
		"Finding": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"finding_id":   str,
				"document_id":  uuid,
				"finding_type": str,
				"value":        str,
				"page_number":  integer,
				"confidence":   number,
				"context":      str,
				"detected_at":  timestamp,
			},
		},
		"DocumentFindings": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document": openapi.SchemaRef("Document"),
				"findings": {Type: "array", Items: openapi.SchemaRef("Finding")},
				"summary": {
					Type:        "object",
					Description: "Finding counts keyed by type, plus total",
				},
			},
		},
		"DocumentFindingsPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("DocumentFindings")},
				"total":       integer,
				"page":        integer,
				"page_size":   integer,
				"total_pages": integer,
			},
		},
		"UploadResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document_id":        uuid,
				"filename":           str,
				"status":             str,
				"page_count":         integer,
				"findings_count":     integer,
				"processing_time_ms": integer,
				"message":            str,
				"page_faults":        {Type: "array", Items: openapi.SchemaRef("PageFault")},
			},
		},
		"Statistics": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"total_documents":            integer,
				"total_findings":             integer,
				"findings_by_type":           {Type: "object"},
				"average_processing_time_ms": number,
				"total_pages_processed":      integer,
				"documents_with_findings":    integer,
			},
		},
		"Metric": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document_id": uuid,
				"metric_type": str,
				"value":       number,
				"recorded_at": timestamp,
				"expires_at":  timestamp,
			},
		},
		"BlobMeta": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"key":            str,
				"content_type":   str,
				"content_length": integer,
				"last_modified":  timestamp,
				"etag":           str,
			},
		},
		"BlobList": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"blobs":       {Type: "array", Items: openapi.SchemaRef("BlobMeta")},
				"next_marker": str,
			},
		},
	}
}
