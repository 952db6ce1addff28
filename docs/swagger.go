// Package docs registers the hnproxy OpenAPI document with swag so that
// gin-swagger can serve it under /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

// @title Hacker News Newest Stories Proxy
// @version 1.0
// @description Cached, filterable and paginated access to the newest Hacker News stories

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func init() {
	swag.Register(swag.Name, &swag.Spec{
		InfoInstanceName: "swagger",
		SwaggerTemplate:  docTemplate,
	})
}

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hacker News Newest Stories Proxy",
        "description": "Cached, filterable and paginated access to the newest Hacker News stories",
        "version": "1.0.0",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        }
    },
    "host": "localhost:8080",
    "basePath": "/",
    "schemes": ["http", "https"],
    "produces": ["application/json"],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "operationId": "healthCheck",
                "responses": {
                    "200": {
                        "description": "Service is healthy",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "status": {"type": "string", "example": "healthy"},
                                "service": {"type": "string", "example": "hnproxy"},
                                "poller_active": {"type": "boolean"}
                            }
                        }
                    }
                }
            }
        },
        "/api/news/newest": {
            "get": {
                "tags": ["News"],
                "summary": "Get Newest Stories",
                "description": "Returns one page of the newest stories that link somewhere, optionally filtered by a case-insensitive title substring. Values below 1 for page and pageSize fall back to 1 and 10.",
                "operationId": "getNewestStories",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer", "default": 1, "description": "1-based page number"},
                    {"name": "pageSize", "in": "query", "type": "integer", "default": 10, "description": "Stories per page"},
                    {"name": "query", "in": "query", "type": "string", "description": "Title substring filter", "maxLength": 500}
                ],
                "responses": {
                    "200": {"description": "Page of stories", "schema": {"$ref": "#/definitions/PagedResult"}},
                    "400": {"description": "Invalid query parameters"},
                    "404": {"description": "No stories found"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/news/newest/rss": {
            "get": {
                "tags": ["News"],
                "summary": "Get Newest Stories as RSS",
                "operationId": "getNewestStoriesRSS",
                "produces": ["application/rss+xml"],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer", "default": 1},
                    {"name": "pageSize", "in": "query", "type": "integer", "default": 10},
                    {"name": "query", "in": "query", "type": "string", "maxLength": 500}
                ],
                "responses": {
                    "200": {"description": "RSS 2.0 document"},
                    "404": {"description": "No stories found"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/news/refresh": {
            "post": {
                "tags": ["News"],
                "summary": "Refresh Story Cache",
                "description": "Drops the cached story id list and reloads it from Hacker News",
                "operationId": "refreshStories",
                "responses": {
                    "200": {"description": "Stories refreshed"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/poller/status": {
            "get": {
                "tags": ["Poller"],
                "summary": "Get Poller Status",
                "operationId": "getPollerStatus",
                "responses": {
                    "200": {"description": "Poller status", "schema": {"$ref": "#/definitions/PollerStatus"}}
                }
            }
        },
        "/api/poller/force-poll": {
            "post": {
                "tags": ["Poller"],
                "summary": "Force Poll",
                "description": "Warms the story cache immediately",
                "operationId": "forcePoll",
                "responses": {
                    "200": {"description": "Cache warmed"},
                    "500": {"description": "Internal server error"}
                }
            }
        },
        "/api/poller/last-polled": {
            "get": {
                "tags": ["Poller"],
                "summary": "Get Last Polled Time",
                "operationId": "getLastPolled",
                "responses": {
                    "200": {
                        "description": "Last warm cycle",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "last_polled": {"type": "string", "format": "date-time"}
                            }
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "Story": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "description": "Hacker News item id"},
                "title": {"type": "string"},
                "url": {"type": "string"},
                "by": {"type": "string", "description": "Submitter"},
                "score": {"type": "integer"},
                "time": {"type": "integer", "description": "Unix time of submission"},
                "type": {"type": "string"}
            }
        },
        "PagedResult": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/Story"}},
                "totalCount": {"type": "integer", "description": "Matching stories before pagination"},
                "currentPage": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "PollerStatus": {
            "type": "object",
            "properties": {
                "is_polling": {"type": "boolean"},
                "interval": {"type": "string"},
                "last_polled": {"type": "string", "format": "date-time"},
                "last_error": {"type": "string"}
            }
        }
    },
    "tags": [
        {"name": "Health", "description": "Health check endpoints"},
        {"name": "News", "description": "Newest story endpoints"},
        {"name": "Poller", "description": "Background cache poller endpoints"}
    ]
}`
