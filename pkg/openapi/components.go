package openapi

import "maps"

// NewComponents creates Components with the shared pagination schema and
// the standard error responses.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 20},
					"sort":      {Type: "string", Description: "Comma-separated sort fields. Prefix with - for descending. Example: -uploaded_at,filename"},
				},
			},
			"Error": {
				Type: "object",
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":          ErrorResponse("Invalid request"),
			"NotFound":            ErrorResponse("Resource not found"),
			"PayloadTooLarge":     ErrorResponse("Upload exceeds the maximum size"),
			"UnprocessableEntity": ErrorResponse("Document could not be read"),
			"InternalError":       ErrorResponse("Internal server error"),
			"GatewayTimeout":      ErrorResponse("Processing timed out"),
		},
	}
}

// ErrorResponse creates a response whose body is the shared Error schema.
func ErrorResponse(description string) *Response {
	return ResponseJSON(description, "Error")
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
