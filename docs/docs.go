// Package docs holds the Swagger 2.0 document of the API, served at
// /swagger/*any when SWAGGER_ENABLED is set. Keep it in step with the swag
// annotations on the handlers.
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
        "/compare": {
            "post": {
                "description": "Places the estimate on a 0..100 scale between the cohort's minimum and maximum premium. When the range is missing or degenerate, available is false and a fallback message is returned instead.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Estimates"],
                "summary": "Compare an estimate with its age group",
                "operationId": "comparePremium",
                "parameters": [
                    {
                        "description": "Estimate and cohort analysis",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.CompareRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CompareResponse"}},
                    "400": {"description": "user_price missing or body malformed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the authenticated user's estimates ordered by timestamp, newest first. An empty history is an empty array. Supports a weak ETag via If-None-Match.",
                "produces": ["application/json"],
                "tags": ["History"],
                "summary": "List the caller's estimate history",
                "operationId": "listHistory",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "description": "Maximum records to return", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.HistoryRecord"}},
                        "headers": {"ETag": {"type": "string", "description": "Weak ETag for the current result"}}
                    },
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "401": {"description": "No token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Appends an estimate to the authenticated user's history. A repeated Idempotency-Key returns the first record id with Idempotency-Replayed: true.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["History"],
                "summary": "Save an estimate to the caller's history",
                "operationId": "saveHistory",
                "parameters": [
                    {"type": "string", "description": "Optional idempotency key", "name": "Idempotency-Key", "in": "header"},
                    {
                        "description": "Estimate to save",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.SaveHistoryRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.SaveHistoryResponse"}},
                    "400": {"description": "Invalid record or idempotency key", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "No token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/history/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a single record from the caller's history. Records of other users are reported as not found.",
                "produces": ["application/json"],
                "tags": ["History"],
                "summary": "Get one saved estimate",
                "operationId": "getHistory",
                "parameters": [
                    {"type": "string", "description": "Record ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.HistoryRecord"}},
                    "401": {"description": "No token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Unknown record", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/predict": {
            "post": {
                "description": "Validates that the four feature keys are present and relays the body to the prediction service. The upstream JSON is returned unchanged.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Estimates"],
                "summary": "Estimate an annual premium",
                "operationId": "predictPremium",
                "parameters": [
                    {
                        "description": "Feature vector",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/domain.FeatureInput"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PredictionResult"}},
                    "400": {"description": "Missing feature", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Prediction service failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.AgeGroupAnalysis": {
            "type": "object",
            "properties": {
                "age_range": {"type": "string", "example": "40-49"},
                "avg_premium": {"type": "number", "example": 25000},
                "max_premium": {"type": "number", "example": 40000},
                "min_premium": {"type": "number", "example": 15000}
            }
        },
        "domain.FeatureInput": {
            "type": "object",
            "properties": {
                "age": {"type": "integer", "example": 45},
                "anyTransplants": {"type": "integer", "example": 0},
                "bmi": {"type": "number", "example": 22.86},
                "numberOfMajorSurgeries": {"type": "integer", "example": 1}
            }
        },
        "domain.HistoryRecord": {
            "type": "object",
            "properties": {
                "analysis": {"$ref": "#/definitions/domain.AgeGroupAnalysis"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "input": {"$ref": "#/definitions/domain.FeatureInput"},
                "output": {"type": "number"},
                "owner_id": {"type": "string"},
                "predictor_type": {"type": "string", "enum": ["medical", "car", "life"]},
                "timestamp": {"type": "string"}
            }
        },
        "domain.PredictionResult": {
            "type": "object",
            "properties": {
                "age_group_analysis": {"$ref": "#/definitions/domain.AgeGroupAnalysis"},
                "predicted_premium": {"type": "number", "example": 24500.75}
            }
        },
        "handlers.Amount": {
            "type": "object",
            "properties": {
                "formatted": {"type": "string", "example": "₹2,042"},
                "value": {"type": "integer", "example": 2042}
            }
        },
        "handlers.CompareRequest": {
            "type": "object",
            "properties": {
                "analysis": {"$ref": "#/definitions/domain.AgeGroupAnalysis"},
                "user_price": {"type": "number", "example": 24500.75}
            }
        },
        "handlers.CompareResponse": {
            "type": "object",
            "properties": {
                "annual": {"$ref": "#/definitions/handlers.Amount"},
                "available": {"type": "boolean"},
                "avg": {"$ref": "#/definitions/handlers.Amount"},
                "max": {"$ref": "#/definitions/handlers.Amount"},
                "message": {"type": "string"},
                "min": {"$ref": "#/definitions/handlers.Amount"},
                "monthly": {"$ref": "#/definitions/handlers.Amount"},
                "placement": {
                    "type": "object",
                    "properties": {
                        "avg_percent": {"type": "number"},
                        "user_percent": {"type": "number"}
                    }
                },
                "summary": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "validation_error"},
                "error": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "handlers.SaveHistoryRequest": {
            "type": "object",
            "properties": {
                "analysis": {"$ref": "#/definitions/domain.AgeGroupAnalysis"},
                "input": {"$ref": "#/definitions/domain.FeatureInput"},
                "output": {"type": "number", "example": 24500.75},
                "predictor_type": {"type": "string", "enum": ["medical", "car", "life"], "example": "medical"},
                "timestamp": {"type": "string", "example": "2025-06-01T10:00:00Z"}
            }
        },
        "handlers.SaveHistoryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "141add05-4415-4938-b5a1-17e0d3171aff"},
                "message": {"type": "string", "example": "Prediction saved successfully."}
            }
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
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Insurance Premium API",
	Description:      "Premium estimation gateway with per-user estimate history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
