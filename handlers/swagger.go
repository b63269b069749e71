package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the whiteboard service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>compdash-whiteboard - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "compdash-whiteboard", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Item": {
        "type": "object",
        "required": ["id", "kind", "x", "y", "content"],
        "properties": {
          "id": {"type": "string", "maxLength": 80},
          "kind": {"type": "string", "enum": ["note", "image", "text"]},
          "x": {"type": "number", "minimum": -200000, "maximum": 200000},
          "y": {"type": "number", "minimum": -200000, "maximum": 200000},
          "content": {"type": "string", "maxLength": 10000},
          "color": {"type": "string", "maxLength": 32},
          "rotationDegrees": {"type": "number", "minimum": -360, "maximum": 360},
          "author": {"type": "string", "maxLength": 60},
          "clientUpdatedAt": {"type": "number", "minimum": 0},
          "deleted": {"type": "boolean"}
        }
      },
      "Whiteboard": {
        "type": "object",
        "properties": {
          "documentId": {"type": "string"},
          "items": {"type": "array", "maxItems": 500, "items": {"$ref": "#/components/schemas/Item"}},
          "version": {"type": "integer", "minimum": 0},
          "updatedAt": {"type": "string", "format": "date-time", "nullable": true}
        }
      },
      "WriteRequest": {
        "type": "object",
        "required": ["baseVersion", "items"],
        "properties": {
          "baseVersion": {"type": "number", "minimum": 0},
          "items": {"type": "array", "items": {}}
        }
      },
      "Conflict": {
        "type": "object",
        "properties": {
          "error": {"type": "string", "example": "version_conflict"},
          "message": {"type": "string"},
          "current": {"$ref": "#/components/schemas/Whiteboard"}
        }
      }
    }
  },
  "paths": {
    "/api/documents/{id}": {
      "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
      "get": {
        "summary": "Read a whiteboard",
        "parameters": [{"name": "If-None-Match", "in": "header", "schema": {"type": "string"}}],
        "responses": {
          "200": {"description": "current state with ETag", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Whiteboard"}}}},
          "304": {"description": "unchanged since the given ETag"},
          "500": {"description": "storage error"}
        }
      },
      "put": {
        "summary": "Replace the whiteboard items when baseVersion is current",
        "parameters": [{"name": "X-Actor", "in": "header", "schema": {"type": "string"}}],
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/WriteRequest"}}}},
        "responses": {
          "200": {"description": "saved", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Whiteboard"}}}},
          "400": {"description": "invalid body or baseVersion"},
          "409": {"description": "stale baseVersion", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Conflict"}}}},
          "500": {"description": "storage error"}
        }
      },
      "patch": {
        "summary": "Same as PUT",
        "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/WriteRequest"}}}},
        "responses": {"200": {"description": "saved"}, "400": {"description": "invalid"}, "409": {"description": "conflict"}}
      }
    },
    "/api/documents/{id}/assets": {
      "post": {
        "summary": "Upload an image for an image item",
        "requestBody": {"content": {"multipart/form-data": {"schema": {"type": "object", "properties": {"file": {"type": "string", "format": "binary"}}}}}},
        "responses": {"201": {"description": "stored; returns key, url and presignedUrl"}, "400": {"description": "missing file"}, "413": {"description": "too large"}, "415": {"description": "not an image"}}
      }
    },
    "/api/documents/{id}/assets/{name}": {
      "get": {"summary": "Download an uploaded image", "responses": {"200": {"description": "image bytes"}, "404": {"description": "not found"}}}
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
