package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Transfer Approval API",
        "description": "Three-stage approval workflow for employee transfer requests",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Batches", "description": "Transfer slips"},
        {"name": "Transfers", "description": "Transfer request workflow"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/batches": {
            "post": {
                "tags": ["Batches"],
                "summary": "File a transfer slip",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "403": {"description": "Supervisors only"}
                }
            }
        },
        "/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Batch detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/users/leads": {
            "get": {
                "tags": ["Batches"],
                "summary": "Active LEAD accounts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/transfers": {
            "get": {
                "tags": ["Transfers"],
                "summary": "Dashboard listing grouped by batch",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "desc", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "created_from", "in": "query", "type": "string"},
                    {"name": "created_to", "in": "query", "type": "string"},
                    {"name": "approved_by", "in": "query", "type": "string"},
                    {"name": "confirmed_by", "in": "query", "type": "string"},
                    {"name": "requested_by", "in": "query", "type": "string"},
                    {"name": "msnv", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/transfers/{id}": {
            "get": {
                "tags": ["Transfers"],
                "summary": "Transfer request detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/transfers/{id}/approve": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Approve a pending request (designated Lead)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the designated Lead"},
                    "409": {"description": "Not in a pending state"}
                }
            }
        },
        "/transfers/{id}/confirm": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Confirm an approved request (Data Processor)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not in an approved state"}
                }
            }
        },
        "/transfers/{id}/reject": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Reject a request with a reason",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectTransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Reason required"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/transfers/{id}/cancel": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Cancel an own pending request (Supervisor)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Only the original requester"},
                    "409": {"description": "Not in a pending state"}
                }
            }
        },
        "/transfers/bulk": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Apply one action to many requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-row outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown action"}
                }
            }
        },
        "/transfers/export": {
            "get": {
                "tags": ["Transfers"],
                "summary": "Export the filtered listing as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "CreateBatchRequest": {
            "type": "object",
            "properties": {
                "employees": {"type": "string", "description": "Employee codes separated by comma, semicolon, whitespace or newline"},
                "from_code": {"type": "string"},
                "to_code": {"type": "string"},
                "effective_date": {"type": "string", "format": "date"},
                "is_permanent": {"type": "boolean"},
                "description": {"type": "string"},
                "designated_lead_id": {"type": "string"}
            },
            "required": ["employees", "from_code", "to_code", "effective_date", "designated_lead_id"]
        },
        "RejectTransferRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "BulkActionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["approve", "confirm", "reject", "cancel"]},
                "ids": {"type": "array", "items": {"type": "integer"}},
                "reason": {"type": "string"}
            },
            "required": ["action", "ids"]
        },
        "TransferRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "batch_id": {"type": "integer"},
                "msnv": {"type": "string"},
                "from_code": {"type": "string"},
                "to_code": {"type": "string"},
                "effective_date": {"type": "string"},
                "is_permanent": {"type": "boolean"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "CONFIRMED", "REJECTED", "CANCELED"]},
                "requested_by": {"type": "string"},
                "rejection_reason": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "BulkOutcome": {
            "type": "object",
            "properties": {
                "successes": {"type": "integer"},
                "skips": {"type": "integer"},
                "success_lines": {"type": "array", "items": {"type": "string"}},
                "skip_lines": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
