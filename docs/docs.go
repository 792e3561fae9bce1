// Package docs holds the swagger document served at /swagger. Regenerate it
// with `swag init -g cmd/server/main.go`.
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
        "/api/v1/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/api/v1/auth/login": {"post": {"tags": ["auth"], "summary": "Log in", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/v1/quizzes": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["quizzes"], "summary": "List quizzes", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["quizzes"], "summary": "Create a quiz", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/quizzes/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["quizzes"], "summary": "Get a quiz", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["quizzes"], "summary": "Update a quiz", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["quizzes"], "summary": "Delete a quiz", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/quizzes/{id}/questions": {"post": {"security": [{"BearerAuth": []}], "tags": ["questions"], "summary": "Add a question", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}},
        "/api/v1/questions/{id}": {"delete": {"security": [{"BearerAuth": []}], "tags": ["questions"], "summary": "Delete a question", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/sessions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "List host sessions", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Host a quiz", "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}, "422": {"description": "Unprocessable Entity"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/sessions/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Host view of a session", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/sessions/{id}/config": {"put": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Configure a waiting session", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/sessions/{id}/start": {"post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Start the game", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/v1/sessions/{id}/end": {"post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "End the game", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/sessions/{id}/play": {"post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Join your own session as a player", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/sessions/{id}/leaderboard": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Session leaderboard", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/sessions/{id}/events": {"get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Session event log", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/sessions": {"get": {"tags": ["play"], "summary": "Find a session by PIN", "parameters": [{"type": "string", "name": "pin", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/play/join": {"post": {"tags": ["play"], "summary": "Join a session", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/sessions/{id}": {"get": {"tags": ["play"], "summary": "Session state for a participant", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/sessions/{id}/questions": {"get": {"tags": ["play"], "summary": "Questions of the session", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/sessions/{id}/leaderboard": {"get": {"tags": ["play"], "summary": "Session leaderboard", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/responses": {"put": {"tags": ["play"], "summary": "Record an interaction with a question", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/finish": {"post": {"tags": ["play"], "summary": "Finish answering", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/score": {"post": {"tags": ["play"], "summary": "Compute own score", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/play/leave": {"post": {"tags": ["play"], "summary": "Leave the waiting room", "responses": {"200": {"description": "OK"}}}},
        "/ws/session/{id}": {"get": {"tags": ["websocket"], "summary": "Change stream of a session", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Enter \"Bearer {token}\"",
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
	Title:            "Quiz Live API",
	Description:      "Live quiz sessions: hosting, joining by PIN, timed play and scoring",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
