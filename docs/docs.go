// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with `swag init -g internal/http/router.go -o docs` after
// changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/batches": {
            "post": {
                "description": "Expands the timeframe into dated slots, applies the owner's quota and fills each slot with one generated idea and one calendar entry.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Batches"],
                "summary": "Generate and schedule a batch of ideas",
                "operationId": "createBatch",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Replays the stored result when reused", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Batch request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "No idea could be created", "schema": {"$ref": "#/definitions/handlers.BatchResponse"}},
                    "201": {"description": "At least one idea created", "schema": {"$ref": "#/definitions/handlers.BatchResponse"}},
                    "400": {"description": "Invalid timeframe, pillars or start date", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Daily limit reached or rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ideas": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Ideas"],
                "summary": "List ideas (paginated)",
                "operationId": "listIdeas",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListIdeasResponse"}},
                    "304": {"description": "Not Modified"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ideas/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Ideas"],
                "summary": "Get an idea by slug",
                "operationId": "getIdea",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Idea slug", "name": "slug", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Idea"}},
                    "404": {"description": "Idea not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ideas/{slug}/export": {
            "get": {
                "produces": ["text/markdown", "text/html"],
                "tags": ["Ideas"],
                "summary": "Export an idea as a brief",
                "operationId": "exportIdea",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "Idea slug", "name": "slug", "in": "path", "required": true},
                    {"enum": ["md", "markdown", "html"], "type": "string", "description": "md or html", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Rendered brief", "schema": {"type": "string"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Idea not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ideas/{id}": {
            "delete": {
                "tags": ["Ideas"],
                "summary": "Delete an idea",
                "operationId": "deleteIdea",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Idea ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Idea not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/calendar": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Calendar"],
                "summary": "List calendar entries",
                "operationId": "listCalendar",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "description": "First day (YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "Last day (YYYY-MM-DD)", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListCalendarResponse"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Invalid date range", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/calendar/{id}": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Calendar"],
                "summary": "Update a calendar entry",
                "operationId": "updateCalendarEntry",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Entry ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "Completion flag", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateCalendarEntryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CalendarEntry"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Entry not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Calendar"],
                "summary": "Delete a calendar entry",
                "operationId": "deleteCalendarEntry",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"},
                    {"type": "string", "format": "uuid", "description": "Entry ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Entry not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/quota": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Quota"],
                "summary": "Current quota",
                "operationId": "getQuota",
                "parameters": [
                    {"type": "string", "description": "Owner ID (demo header)", "name": "X-User-ID", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.QuotaStatus"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Idea": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "owner_id": {"type": "string"},
                "title": {"type": "string"},
                "outline": {"type": "array", "items": {"type": "string"}},
                "mid_mention": {"type": "string"},
                "end_mention": {"type": "string"},
                "thumbnail_idea": {"type": "string"},
                "interaction_question": {"type": "string"},
                "category": {"type": "string"},
                "subcategory": {"type": "string"},
                "length_bucket": {"type": "string"},
                "slug": {"type": "string"},
                "is_public": {"type": "boolean"},
                "source": {"type": "string", "enum": ["provider", "fallback"]},
                "model": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.CalendarEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "owner_id": {"type": "string"},
                "date": {"type": "string", "example": "2024-03-04"},
                "title": {"type": "string"},
                "idea_ref": {"type": "string"},
                "pillar": {"type": "string"},
                "completed": {"type": "boolean"},
                "color_tag": {"type": "string"},
                "notes": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.CreateBatchRequest": {
            "type": "object",
            "properties": {
                "timeframe": {"type": "string", "example": "week"},
                "start_date": {"type": "string", "example": "2024-03-04"},
                "pillars": {"type": "array", "items": {"type": "string"}, "example": ["tips", "stories"]},
                "category": {"type": "string", "example": "education"},
                "subcategory": {"type": "string", "example": "study-skills"},
                "length_bucket": {"type": "string", "example": "30-60s"},
                "focus": {"type": "string"},
                "style": {"type": "string"},
                "tone": {"type": "string"}
            }
        },
        "handlers.BatchResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "tier": {"type": "string"},
                "collapsed": {"type": "boolean"},
                "timeframe_slots": {"type": "integer"},
                "requested_count": {"type": "integer"},
                "count": {"type": "integer"},
                "stopped_early": {"type": "boolean"},
                "ideas": {"type": "array", "items": {"$ref": "#/definitions/domain.Idea"}},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/domain.CalendarEntry"}},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/services.SlotReport"}}
            }
        },
        "services.SlotReport": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "date": {"type": "string"},
                "pillar": {"type": "string"},
                "status": {"type": "string", "enum": ["generated", "fallback", "unscheduled", "skipped"]},
                "model": {"type": "string"},
                "attempts": {"type": "integer"},
                "idea_id": {"type": "string"},
                "slug": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "handlers.ListIdeasResponse": {
            "type": "object",
            "properties": {
                "ideas": {"type": "array", "items": {"$ref": "#/definitions/domain.Idea"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListCalendarResponse": {
            "type": "object",
            "properties": {
                "from": {"type": "string"},
                "to": {"type": "string"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/domain.CalendarEntry"}}
            }
        },
        "handlers.UpdateCalendarEntryRequest": {
            "type": "object",
            "required": ["completed"],
            "properties": {
                "completed": {"type": "boolean", "example": true}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "services.QuotaStatus": {
            "type": "object",
            "properties": {
                "tier": {"type": "string"},
                "generated_today": {"type": "integer"},
                "daily_limit_enabled": {"type": "boolean"},
                "daily_limit": {"type": "integer"},
                "remaining": {"type": "integer"},
                "unlimited": {"type": "boolean"},
                "max_batch_size": {"type": "integer"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Ideas API",
	Description:      "Batch generation and scheduling of short-form content ideas.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
