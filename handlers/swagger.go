package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>ibtikar-backend - Swagger</title>
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

// Minimal OpenAPI document covering the main surface.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "ibtikar-backend", "version": "v0.1.0" },
  "paths": {
    "/auth/register": {
      "post": { "summary": "Create account and profile", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"displayName":{"type":"string"},"role":{"type":"string","enum":["creator","company"]}}}}}}, "responses": { "201": { "description": "tokens returned" }, "400": { "description": "invalid input or duplicate" } } }
    },
    "/auth/login": {
      "post": { "summary": "Verify credentials", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "authentication failed" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get own profile", "responses": { "200": { "description": "profile" }, "401": { "description": "unauthenticated or profile missing" } } }
    },
    "/api/v1/me/profile": {
      "put": { "summary": "Merge profile fields", "responses": { "200": { "description": "updated profile" } } }
    },
    "/api/v1/projects": {
      "get": { "summary": "Browse listings", "responses": { "200": { "description": "listings" } } },
      "post": { "summary": "Post a listing (company)", "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/projects/{id}/status": {
      "patch": { "summary": "Advance listing status", "responses": { "200": { "description": "updated" }, "400": { "description": "invalid transition" } } }
    },
    "/api/v1/projects/{id}/applications": {
      "get": { "summary": "Listing applications (owner)", "responses": { "200": { "description": "applications" } } },
      "post": { "summary": "Apply to a listing (creator)", "responses": { "201": { "description": "filed" }, "409": { "description": "closed or duplicate" } } }
    },
    "/api/v1/payments": {
      "get": { "summary": "Own payments", "responses": { "200": { "description": "payments" } } },
      "post": { "summary": "Open a pending payment (company)", "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/payments/{id}/complete": {
      "post": { "summary": "Settle a payment", "responses": { "200": { "description": "transaction" }, "409": { "description": "already completed" } } }
    },
    "/api/v1/messages/{peerId}": {
      "get": { "summary": "Conversation history", "responses": { "200": { "description": "messages oldest first" } } }
    },
    "/api/v1/messages/{peerId}/live": {
      "get": { "summary": "Live conversation feed (websocket)", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
