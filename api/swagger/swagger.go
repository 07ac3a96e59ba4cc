package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Smart Attendance API",
        "description": "QR and short-code based attendance tracking for courses and live classes",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Courses", "description": "Course catalogue and enrollment"},
        {"name": "Sessions", "description": "Attendance session lifecycle and QR tokens"},
        {"name": "Attendance", "description": "Scan pipeline and faculty overrides"},
        {"name": "LiveClasses", "description": "Live class presence tracking"},
        {"name": "Students", "description": "Student directory"},
        {"name": "Selfies", "description": "Liveness payload review"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses with full attendance state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCourseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get one course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete a course and everything it owns",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/courses/{id}/banner": {
            "put": {
                "tags": ["Courses"],
                "summary": "Update the course banner image",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}/students": {
            "post": {
                "tags": ["Courses"],
                "summary": "Enroll a directory student into a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Unknown course or student"}
                }
            }
        },
        "/courses/{id}/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Open an attendance session for a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/sessions/{sessionId}": {
            "delete": {
                "tags": ["Sessions"],
                "summary": "Delete a session and its records",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/sessions/{sessionId}/regenerate": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Force-issue a fresh QR token, clearing expiry or the capacity lock",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{sessionId}/token": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get the countdown state of a session's current QR token",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/mark": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance from a QR scan or short code entry",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkRequest"}}
                ],
                "responses": {
                    "200": {"description": "Marked present"},
                    "403": {"description": "Not enrolled"},
                    "409": {"description": "Already marked or limit reached"},
                    "422": {"description": "Invalid or expired code"},
                    "428": {"description": "Liveness selfie required"}
                }
            }
        },
        "/courses/{id}/sessions/{sessionId}/attendance/{studentId}/toggle": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Toggle one attendance record without token validation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}/attendance-summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance summary for every enrolled student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}/attendance/{studentId}/summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance summary for one student in a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}/live-classes": {
            "post": {
                "tags": ["LiveClasses"],
                "summary": "Start a live class, ending any previous one in the course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/courses/{id}/live-classes/{liveClassId}/end": {
            "post": {
                "tags": ["LiveClasses"],
                "summary": "End a live class and finalize open attendee entries",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "liveClassId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already ended"}
                }
            }
        },
        "/courses/{id}/live-classes/{liveClassId}/join": {
            "post": {
                "tags": ["LiveClasses"],
                "summary": "Record a student joining a live class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "liveClassId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}/live-classes/{liveClassId}/leave": {
            "post": {
                "tags": ["LiveClasses"],
                "summary": "Record a student leaving a live class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "liveClassId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List the student directory",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/sessions/{sessionId}/selfies/{studentId}/url": {
            "get": {
                "tags": ["Selfies"],
                "summary": "Issue a time-limited link for a stored selfie",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/selfies": {
            "get": {
                "tags": ["Selfies"],
                "summary": "Serve a selfie via its signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not available"}
                }
            }
        },
        "/reset": {
            "post": {
                "tags": ["Courses"],
                "summary": "Clear all attendance state",
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        }
    },
    "definitions": {
        "CreateCourseRequest": {
            "type": "object",
            "required": ["name", "code"],
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "CreateSessionRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "enum": ["online", "offline"]},
                "limit": {"type": "integer"},
                "liveness_check": {"type": "boolean"}
            }
        },
        "MarkRequest": {
            "type": "object",
            "required": ["code", "student_id"],
            "properties": {
                "code": {"type": "string"},
                "student_id": {"type": "string"},
                "selfie": {"type": "string"}
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
