// Package docs holds the OpenAPI document served at /swagger/doc.json.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "List the model registry",
                "responses": {"200": {"description": "OK", "schema": {"type": "object"}}}
            }
        },
        "/class-analysis": {
            "get": {
                "produces": ["application/json"],
                "summary": "Analyze the whole class",
                "parameters": [
                    {"$ref": "#/parameters/files"},
                    {"$ref": "#/parameters/modelKey"},
                    {"$ref": "#/parameters/groupCol"},
                    {"$ref": "#/parameters/studentCol"},
                    {"$ref": "#/parameters/feedbackCol"},
                    {"$ref": "#/parameters/dateCol"},
                    {"$ref": "#/parameters/progressId"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ClassAnalysis"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/group-analysis": {
            "get": {
                "produces": ["application/json"],
                "summary": "Analyze one group",
                "parameters": [
                    {"$ref": "#/parameters/files"},
                    {"$ref": "#/parameters/modelKey"},
                    {"$ref": "#/parameters/groupCol"},
                    {"$ref": "#/parameters/studentCol"},
                    {"$ref": "#/parameters/feedbackCol"},
                    {"$ref": "#/parameters/dateCol"},
                    {"$ref": "#/parameters/progressId"},
                    {"$ref": "#/parameters/groupName"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GroupAnalysis"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/student-analysis": {
            "get": {
                "produces": ["application/json"],
                "summary": "Analyze one student and evaluate their feedback",
                "parameters": [
                    {"$ref": "#/parameters/files"},
                    {"$ref": "#/parameters/modelKey"},
                    {"$ref": "#/parameters/groupCol"},
                    {"$ref": "#/parameters/studentCol"},
                    {"$ref": "#/parameters/feedbackCol"},
                    {"$ref": "#/parameters/dateCol"},
                    {"$ref": "#/parameters/progressId"},
                    {"$ref": "#/parameters/groupName"},
                    {"$ref": "#/parameters/studentName"},
                    {"$ref": "#/parameters/framework"},
                    {"$ref": "#/parameters/referenceText"},
                    {"$ref": "#/parameters/explain"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/compare-feedback": {
            "get": {
                "produces": ["application/json"],
                "summary": "Student analysis plus a side-by-side view of its evaluation metrics",
                "parameters": [
                    {"$ref": "#/parameters/files"},
                    {"$ref": "#/parameters/modelKey"},
                    {"$ref": "#/parameters/groupCol"},
                    {"$ref": "#/parameters/studentCol"},
                    {"$ref": "#/parameters/feedbackCol"},
                    {"$ref": "#/parameters/dateCol"},
                    {"$ref": "#/parameters/progressId"},
                    {"$ref": "#/parameters/groupName"},
                    {"$ref": "#/parameters/studentName"},
                    {"$ref": "#/parameters/framework"},
                    {"$ref": "#/parameters/referenceText"},
                    {"$ref": "#/parameters/explain"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/datasets": {
            "get": {
                "produces": ["application/json"],
                "summary": "List the CSV files in the raw data directory",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Dataset"}}}}
            }
        },
        "/reports": {
            "get": {
                "produces": ["application/json"],
                "summary": "List stored analyses, newest first",
                "parameters": [
                    {"type": "string", "name": "kind", "in": "query", "enum": ["class", "group", "student", "compare"]},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "503": {"description": "Report store not configured", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get one stored analysis",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Obtain an upload token",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        }
    },
    "parameters": {
        "files": {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "files", "in": "query", "required": true},
        "modelKey": {"type": "string", "name": "model_key", "in": "query"},
        "groupCol": {"type": "string", "name": "group_col", "in": "query"},
        "studentCol": {"type": "string", "name": "student_col", "in": "query"},
        "feedbackCol": {"type": "string", "name": "feedback_col", "in": "query"},
        "dateCol": {"type": "string", "name": "date_col", "in": "query"},
        "progressId": {"type": "string", "name": "progress_id", "in": "query"},
        "groupName": {"type": "string", "name": "group_name", "in": "query", "required": true},
        "studentName": {"type": "string", "name": "student_name", "in": "query", "required": true},
        "framework": {"type": "string", "name": "framework", "in": "query", "default": "ICAP"},
        "referenceText": {"type": "string", "name": "reference_text", "in": "query"},
        "explain": {"type": "boolean", "name": "explain", "in": "query"}
    },
    "definitions": {
        "Error": {"type": "object", "properties": {"error": {"type": "string"}}},
        "Dataset": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "size": {"type": "integer"}, "modifiedAt": {"type": "integer"}}
        },
        "LoginRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "ClassAnalysis": {
            "type": "object",
            "properties": {
                "statistics": {"type": "object"},
                "llm_analysis": {"type": "object"},
                "model_used": {"type": "string"}
            }
        },
        "GroupAnalysis": {
            "type": "object",
            "properties": {
                "statistics": {"type": "object"},
                "llm_analysis": {"type": "object"},
                "model_used": {"type": "string"}
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
	Title:            "FeedbackLens API",
	Description:      "LLM-assisted analysis and evaluation of student feedback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
