// Package docs holds the generated Swagger spec for the read-only dashboard
// API. Normally produced by `swag init`; hand-maintained here in the same
// shape swag emits, so gin-swagger's WrapHandler has something to serve.
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
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": { "description": "OK" }
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["system"],
                "summary": "Proxy and host statistics",
                "responses": {
                    "200": { "description": "OK" }
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["users"],
                "summary": "List active users (read-only)",
                "responses": {
                    "200": { "description": "OK" }
                }
            }
        },
        "/activity": {
            "get": {
                "tags": ["activity"],
                "summary": "Recent connection events from the audit trail",
                "responses": {
                    "200": { "description": "OK" }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "socks5gate dashboard API",
	Description:      "Read-only monitoring API for the SOCKS5 proxy: health, stats, active users, and recent connection activity.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
