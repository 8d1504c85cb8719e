// Package docs is the OpenAPI description served under /swagger when the
// daemon is built with -tags=swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "tjbridge maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/connect": {
            "post": {
                "tags": [
                    "session"
                ],
                "summary": "Connect the SDK",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ConnectResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ConnectRequest"
                        }
                    }
                ]
            }
        },
        "/status": {
            "get": {
                "tags": [
                    "session"
                ],
                "summary": "Bridge status",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.StatusResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/debug": {
            "put": {
                "tags": [
                    "session"
                ],
                "summary": "Toggle SDK debug logging",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            }
        },
        "/currency": {
            "get": {
                "tags": [
                    "currency"
                ],
                "summary": "Currency balance",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.CurrencyBalance"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/currency/spend": {
            "post": {
                "tags": [
                    "currency"
                ],
                "summary": "Spend currency",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.CurrencyBalance"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.AmountRequest"
                        }
                    }
                ]
            }
        },
        "/currency/award": {
            "post": {
                "tags": [
                    "currency"
                ],
                "summary": "Award currency",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.CurrencyBalance"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.AmountRequest"
                        }
                    }
                ]
            }
        },
        "/purchases": {
            "post": {
                "tags": [
                    "currency"
                ],
                "summary": "Track a purchase",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.PurchaseRequest"
                        }
                    }
                ]
            }
        },
        "/user": {
            "get": {
                "tags": [
                    "user"
                ],
                "summary": "User profile",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.UserProfile"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/user/id": {
            "get": {
                "tags": [
                    "user"
                ],
                "summary": "Get user id",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "user"
                ],
                "summary": "Set user id",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            }
        },
        "/user/level": {
            "get": {
                "tags": [
                    "user"
                ],
                "summary": "Get user level",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "user"
                ],
                "summary": "Set user level",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            }
        },
        "/user/max-level": {
            "get": {
                "tags": [
                    "user"
                ],
                "summary": "Get max level",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "user"
                ],
                "summary": "Set max level",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            }
        },
        "/user/segment": {
            "get": {
                "tags": [
                    "user"
                ],
                "summary": "Get user segment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "user"
                ],
                "summary": "Set user segment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            }
        },
        "/user/tags": {
            "get": {
                "tags": [
                    "user"
                ],
                "summary": "Get user tags",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "user"
                ],
                "summary": "Replace user tags",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            },
            "delete": {
                "tags": [
                    "user"
                ],
                "summary": "Clear user tags",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/user/tags/{tag}": {
            "post": {
                "tags": [
                    "user"
                ],
                "summary": "Add a user tag",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Tag",
                        "name": "tag",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "delete": {
                "tags": [
                    "user"
                ],
                "summary": "Remove a user tag",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Tag",
                        "name": "tag",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/privacy": {
            "get": {
                "tags": [
                    "privacy"
                ],
                "summary": "Privacy snapshot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.PrivacyStatus"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/privacy/{flag}": {
            "get": {
                "tags": [
                    "privacy"
                ],
                "summary": "Get a privacy flag",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Privacy flag",
                        "name": "flag",
                        "in": "path",
                        "required": true,
                        "enum": [
                            "subject-to-gdpr",
                            "user-consent",
                            "below-consent-age",
                            "us-privacy",
                            "opt-out-advertising-id"
                        ]
                    }
                ]
            },
            "put": {
                "tags": [
                    "privacy"
                ],
                "summary": "Set a privacy flag",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Privacy flag",
                        "name": "flag",
                        "in": "path",
                        "required": true,
                        "enum": [
                            "subject-to-gdpr",
                            "user-consent",
                            "below-consent-age",
                            "us-privacy",
                            "opt-out-advertising-id"
                        ]
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.ValueRequest"
                        }
                    }
                ]
            }
        },
        "/placements": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "List placements",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "placements"
                ],
                "summary": "Create a placement",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/types.PlacementStatus"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.CreatePlacementRequest"
                        }
                    }
                ]
            }
        },
        "/placements/{name}": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "Placement state",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.PlacementStatus"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/placements/{name}/request": {
            "post": {
                "tags": [
                    "placements"
                ],
                "summary": "Request content",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.OperationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "boolean",
                        "description": "Set false to answer 202 immediately",
                        "name": "wait",
                        "in": "query"
                    }
                ]
            }
        },
        "/placements/{name}/show": {
            "post": {
                "tags": [
                    "placements"
                ],
                "summary": "Show content",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.OperationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "boolean",
                        "description": "Set false to answer 202 immediately",
                        "name": "wait",
                        "in": "query"
                    }
                ]
            }
        },
        "/placements/{name}/ready": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "Is content ready",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/placements/{name}/available": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "Is content available",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/placements/{name}/currency/{currencyID}": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "Placement currency balance",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Currency id",
                        "name": "currencyID",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "placements"
                ],
                "summary": "Set placement currency balance",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Currency id",
                        "name": "currencyID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.PlacementCurrencyRequest"
                        }
                    }
                ]
            }
        },
        "/placements/{name}/required/{currencyID}": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "Required amount",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Currency id",
                        "name": "currencyID",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "placements"
                ],
                "summary": "Set required amount",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Currency id",
                        "name": "currencyID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.PlacementCurrencyRequest"
                        }
                    }
                ]
            }
        },
        "/placements/{name}/entry-point": {
            "get": {
                "tags": [
                    "placements"
                ],
                "summary": "Entry point",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.ValueResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "tags": [
                    "placements"
                ],
                "summary": "Set entry point",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Placement name",
                        "name": "name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/types.EntryPointRequest"
                        }
                    }
                ]
            }
        },
        "/operations/{id}": {
            "get": {
                "tags": [
                    "operations"
                ],
                "summary": "Pending operation",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.OperationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operation id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "delete": {
                "tags": [
                    "operations"
                ],
                "summary": "Cancel a pending operation",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Native module not linked",
                        "schema": {
                            "$ref": "#/definitions/types.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operation id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/events": {
            "get": {
                "tags": [
                    "events"
                ],
                "summary": "Server-sent bridge events",
                "produces": [
                    "text/event-stream"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Only this placement",
                        "name": "placement",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/types.EventMessage"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "types.AmountRequest": {
            "type": "object",
            "properties": {
                "amount": {
                    "type": "number",
                    "example": 10
                }
            }
        },
        "types.ConnectRequest": {
            "type": "object",
            "properties": {
                "sdk_key": {
                    "type": "string",
                    "example": "sdk-key-from-dashboard"
                },
                "user_id": {
                    "type": "string",
                    "example": "player-42"
                },
                "flags": {
                    "type": "object",
                    "additionalProperties": true
                }
            }
        },
        "types.ConnectResponse": {
            "type": "object",
            "properties": {
                "connected": {
                    "type": "boolean",
                    "example": true
                },
                "warning": {
                    "type": "string"
                }
            }
        },
        "types.CreatePlacementRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "example": "level_complete"
                }
            }
        },
        "types.CurrencyBalance": {
            "type": "object",
            "properties": {
                "currencyName": {
                    "type": "string",
                    "example": "Gems"
                },
                "amount": {
                    "type": "integer",
                    "example": 100
                }
            }
        },
        "types.EntryPointRequest": {
            "type": "object",
            "properties": {
                "entry_point": {
                    "type": "string",
                    "example": "main_menu"
                }
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string",
                    "example": "invalid JSON body"
                },
                "code": {
                    "type": "integer",
                    "example": 400
                }
            }
        },
        "types.EventMessage": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "example": "contentIsReady"
                },
                "placement": {
                    "type": "string"
                },
                "operation_id": {
                    "type": "string"
                },
                "fields": {
                    "type": "object",
                    "additionalProperties": true
                }
            }
        },
        "types.OperationResponse": {
            "type": "object",
            "properties": {
                "operation_id": {
                    "type": "string"
                },
                "notification": {
                    "type": "string",
                    "example": "contentIsReady"
                },
                "seen": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "error": {
                    "type": "string"
                },
                "placement": {
                    "$ref": "#/definitions/types.PlacementStatus"
                }
            }
        },
        "types.PlacementCurrencyRequest": {
            "type": "object",
            "properties": {
                "amount": {
                    "type": "integer",
                    "example": 50
                }
            }
        },
        "types.PlacementStatus": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string",
                    "example": "level_complete"
                },
                "state": {
                    "type": "string",
                    "example": "content_ready"
                },
                "error": {
                    "type": "string"
                },
                "operation_id": {
                    "type": "string"
                }
            }
        },
        "types.PrivacyStatus": {
            "type": "object",
            "properties": {
                "subject_to_gdpr": {
                    "type": "string",
                    "example": "unknown"
                },
                "user_consent": {
                    "type": "string",
                    "example": "unknown"
                },
                "below_consent_age": {
                    "type": "string",
                    "example": "unknown"
                },
                "us_privacy": {
                    "type": "string",
                    "example": "1YNN"
                },
                "opt_out_advertising_id": {
                    "type": "boolean",
                    "example": false
                }
            }
        },
        "types.PurchaseRequest": {
            "type": "object",
            "properties": {
                "currency_code": {
                    "type": "string",
                    "example": "USD"
                },
                "price": {
                    "type": "number",
                    "example": 0.99
                }
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "connected": {
                    "type": "boolean",
                    "example": true
                },
                "subscriptions": {
                    "type": "integer",
                    "example": 2
                },
                "platform": {
                    "type": "string",
                    "example": "android"
                },
                "placements": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/types.PlacementStatus"
                    }
                }
            }
        },
        "types.UserProfile": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "string",
                    "example": "player-42"
                },
                "level": {
                    "type": "integer",
                    "example": 3
                },
                "max_level": {
                    "type": "integer",
                    "example": 10
                },
                "segment": {
                    "type": "string",
                    "example": "payer"
                },
                "tags": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "types.ValueRequest": {
            "type": "object",
            "properties": {
                "string": {
                    "type": "string"
                },
                "int": {
                    "type": "integer"
                },
                "bool": {
                    "type": "boolean"
                },
                "list": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "types.ValueResponse": {
            "type": "object",
            "properties": {
                "value": {}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "tjbridge API",
	Description:      "HTTP API over the Tapjoy offerwall SDK bridge.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
