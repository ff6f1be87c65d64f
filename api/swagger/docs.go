// Package swagger registers the OpenAPI document served at /swagger.
// Regenerate with `swag init -g cmd/api/main.go -o api/swagger` after
// changing handler annotations.
package swagger

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
        "/login": {"post": {"tags": ["auth"], "summary": "Login user", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/refresh": {"post": {"tags": ["auth"], "summary": "Refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/logout": {"post": {"tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Get current user", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Create a new staff user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/api/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get user by ID", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Update user", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Delete user", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/users/{id}/roles": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "List a user's roles", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Replace a user's roles", "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/roles/{roleId}": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Assign a role to a user", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Remove a role from a user", "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/custom-permissions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "List a user's custom permission overrides", "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/custom-permissions/{permissionId}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Set a custom permission override", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Remove a custom permission override", "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/permissions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Effective permissions of a user", "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{id}/permissions/check": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["access"], "summary": "Check one permission for a user", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/roles": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "List roles", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Create role", "responses": {"201": {"description": "Created"}}}
        },
        "/api/roles/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Get role", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Update role", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Delete role", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/roles/{id}/permissions": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Replace role permissions", "responses": {"200": {"description": "OK"}}}
        },
        "/api/roles/{id}/permissions/{permissionId}": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Grant permission to role", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["roles"], "summary": "Revoke permission from role", "responses": {"200": {"description": "OK"}}}
        },
        "/api/permissions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "List permissions", "responses": {"200": {"description": "OK"}}}
        },
        "/api/permissions/sync": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["permissions"], "summary": "Sync permission catalog", "responses": {"200": {"description": "OK"}}}
        },
        "/api/audit-logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Get audit logs", "responses": {"200": {"description": "OK"}}}
        },
        "/api/statistics": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Statistics"], "summary": "Get Dashboard Statistics", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid date format"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "AmeenHub Access API",
	Description:      "Staff authentication, roles, permission grants and per-user overrides for the AmeenHub admin panel.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
