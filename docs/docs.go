// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/offramp/main.go -o docs
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
		"/intents": {
			"post": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "Quote a crypto-to-fiat sale and reserve the deposit address for it",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"intents"
				],
				"summary": "Create sell intent",
				"parameters": [
					{
						"description": "Intent details",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/settlement.CreateIntentRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Sell intent created",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/dto.IntentDTO"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Invalid request",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"409": {
						"description": "Address already has a pending intent",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"503": {
						"description": "No quote available",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/intents/{id}": {
			"get": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "Get a sell intent with its settlement progress. Admins may read any intent.",
				"produces": [
					"application/json"
				],
				"tags": [
					"intents"
				],
				"summary": "Get sell intent",
				"parameters": [
					{
						"type": "string",
						"description": "Intent ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/usecases.IntentView"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"404": {
						"description": "Intent not found",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/intents/{id}/cancel": {
			"post": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "Cancel a pending sell intent before any deposit is matched to it",
				"produces": [
					"application/json"
				],
				"tags": [
					"intents"
				],
				"summary": "Cancel sell intent",
				"parameters": [
					{
						"type": "string",
						"description": "Intent ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Sell intent cancelled",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/dto.IntentDTO"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"404": {
						"description": "Intent not found",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"409": {
						"description": "Intent is no longer pending",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/intents/{id}/payout-destination": {
			"put": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "Attach or replace the bank account an intent pays out to. A swapped settlement waiting for a destination pays out on the next sweep.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"intents"
				],
				"summary": "Set payout destination",
				"parameters": [
					{
						"type": "string",
						"description": "Intent ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Bank account",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/settlement.PayoutDestinationRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Payout destination updated",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/dto.IntentDTO"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Invalid bank account",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"404": {
						"description": "Intent not found",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"409": {
						"description": "Payout already requested or intent settled",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/webhooks/deposits/{provider}": {
			"post": {
				"description": "Receive a signed deposit notification from a custody or payment provider and settle it against the matching intent",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"webhooks"
				],
				"summary": "Deposit notification",
				"parameters": [
					{
						"type": "string",
						"description": "Deposit provider",
						"name": "provider",
						"in": "path",
						"required": true,
						"enum": [
							"custody",
							"nowpayments"
						]
					},
					{
						"type": "string",
						"description": "Hex HMAC-SHA512 of the raw body (custody)",
						"name": "X-Custody-Signature",
						"in": "header",
						"required": false
					},
					{
						"type": "string",
						"description": "Hex HMAC-SHA512 of the raw body (nowpayments)",
						"name": "x-nowpayments-sig",
						"in": "header",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "Delivery processed",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/usecases.DepositResult"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Invalid signature",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"404": {
						"description": "Unknown provider or no matching intent",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"413": {
						"description": "Body too large",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"422": {
						"description": "Amount outside tolerance",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/webhooks/payouts": {
			"post": {
				"description": "Receive the final status of a requested bank payout",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"webhooks"
				],
				"summary": "Payout callback",
				"parameters": [
					{
						"type": "string",
						"description": "Hex HMAC-SHA512 of the raw body",
						"name": "X-Payout-Signature",
						"in": "header",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Callback processed",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/usecases.PayoutCallbackResult"
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Invalid signature",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"404": {
						"description": "Unknown payout",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/admin/settlements": {
			"get": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "List settlement records, newest first, optionally filtered by state and owner",
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "List settlements",
				"parameters": [
					{
						"type": "integer",
						"description": "Page number",
						"name": "page",
						"in": "query",
						"required": false,
						"default": 1
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "page_size",
						"in": "query",
						"required": false,
						"default": 20
					},
					{
						"type": "string",
						"description": "Comma separated states",
						"name": "state",
						"in": "query",
						"required": false,
						"example": "swap_failed,payout_failed"
					},
					{
						"type": "string",
						"description": "Intent owner",
						"name": "owner",
						"in": "query",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"allOf": [
												{
													"$ref": "#/definitions/utils.ListResponse"
												},
												{
													"type": "object",
													"properties": {
														"items": {
															"type": "array",
															"items": {
																"$ref": "#/definitions/dto.SettlementDTO"
															}
														}
													}
												}
											]
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Invalid filter",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"403": {
						"description": "Forbidden - Requires admin role",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/admin/settlements/{intent_id}/retry": {
			"post": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "Resume a failed swap with its original key, or start a new payout attempt for a failed payout",
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Retry settlement",
				"parameters": [
					{
						"type": "string",
						"description": "Intent ID",
						"name": "intent_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Settlement retried",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"$ref": "#/definitions/usecases.RetrySettlementResult"
										}
									}
								}
							]
						}
					},
					"400": {
						"description": "Settlement needs a payout destination",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"403": {
						"description": "Forbidden - Requires admin role",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"404": {
						"description": "Settlement not found",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"409": {
						"description": "Settlement is not retryable",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		},
		"/admin/unmatched-deposits": {
			"get": {
				"security": [
					{
						"Bearer": []
					}
				],
				"description": "List deposits held for operator triage",
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "List unmatched deposits",
				"parameters": [
					{
						"type": "integer",
						"description": "Page number",
						"name": "page",
						"in": "query",
						"required": false,
						"default": 1
					},
					{
						"type": "integer",
						"description": "Page size",
						"name": "page_size",
						"in": "query",
						"required": false,
						"default": 20
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"allOf": [
								{
									"$ref": "#/definitions/utils.APIResponse"
								},
								{
									"type": "object",
									"properties": {
										"data": {
											"allOf": [
												{
													"$ref": "#/definitions/utils.ListResponse"
												},
												{
													"type": "object",
													"properties": {
														"items": {
															"type": "array",
															"items": {
																"$ref": "#/definitions/dto.UnmatchedDepositDTO"
															}
														}
													}
												}
											]
										}
									}
								}
							]
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					},
					"403": {
						"description": "Forbidden - Requires admin role",
						"schema": {
							"$ref": "#/definitions/utils.APIResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"utils.ErrorInfo": {
			"type": "object",
			"properties": {
				"type": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"details": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				}
			}
		},
		"utils.APIResponse": {
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"data": {},
				"error": {
					"$ref": "#/definitions/utils.ErrorInfo"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"utils.ListResponse": {
			"type": "object",
			"properties": {
				"items": {},
				"total": {
					"type": "integer"
				},
				"page": {
					"type": "integer"
				},
				"page_size": {
					"type": "integer"
				},
				"total_pages": {
					"type": "integer"
				}
			}
		},
		"settlement.PayoutDestinationRequest": {
			"type": "object",
			"properties": {
				"bank_code": {
					"type": "string",
					"maxLength": 16
				},
				"account_number": {
					"type": "string",
					"maxLength": 20,
					"minLength": 6
				},
				"account_name": {
					"type": "string",
					"maxLength": 128
				}
			},
			"required": [
				"account_name",
				"account_number",
				"bank_code"
			]
		},
		"settlement.CreateIntentRequest": {
			"type": "object",
			"properties": {
				"asset": {
					"type": "string"
				},
				"network": {
					"type": "string"
				},
				"sell_amount": {
					"type": "string"
				},
				"receive_currency": {
					"type": "string"
				},
				"deposit_address": {
					"type": "string",
					"maxLength": 128
				},
				"deposit_memo": {
					"type": "string",
					"maxLength": 64
				},
				"payout_destination": {
					"$ref": "#/definitions/settlement.PayoutDestinationRequest"
				}
			},
			"required": [
				"asset",
				"deposit_address",
				"network",
				"sell_amount"
			]
		},
		"dto.PayoutDestinationDTO": {
			"type": "object",
			"properties": {
				"bank_code": {
					"type": "string"
				},
				"account_number": {
					"type": "string"
				},
				"account_name": {
					"type": "string"
				}
			}
		},
		"dto.IntentDTO": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"owner": {
					"type": "string"
				},
				"asset": {
					"type": "string"
				},
				"network": {
					"type": "string"
				},
				"deposit_address": {
					"type": "string"
				},
				"deposit_memo": {
					"type": "string"
				},
				"quoted_sell_amount": {
					"type": "string"
				},
				"quoted_receive_amount": {
					"type": "string"
				},
				"quoted_rate": {
					"type": "string"
				},
				"receive_currency": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"expires_at": {
					"type": "string"
				},
				"payout_destination": {
					"$ref": "#/definitions/dto.PayoutDestinationDTO"
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"dto.ProviderResultDTO": {
			"type": "object",
			"properties": {
				"reference": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"provider_status": {
					"type": "string"
				},
				"error_code": {
					"type": "string"
				},
				"error_message": {
					"type": "string"
				},
				"idempotency_key": {
					"type": "string"
				},
				"recorded_at": {
					"type": "string"
				}
			}
		},
		"dto.SettlementDTO": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"intent_id": {
					"type": "string"
				},
				"owner": {
					"type": "string"
				},
				"asset": {
					"type": "string"
				},
				"network": {
					"type": "string"
				},
				"receive_currency": {
					"type": "string"
				},
				"observed_amount": {
					"type": "string"
				},
				"observed_tx_hash": {
					"type": "string"
				},
				"quoted_sell_amount": {
					"type": "string"
				},
				"quoted_receive_amount": {
					"type": "string"
				},
				"actual_receive_amount": {
					"type": "string"
				},
				"actual_rate": {
					"type": "string"
				},
				"receive_delta": {
					"type": "string"
				},
				"anomaly": {
					"type": "boolean"
				},
				"state": {
					"type": "string"
				},
				"needs_operator": {
					"type": "boolean"
				},
				"swap_attempts": {
					"type": "integer"
				},
				"swap_result": {
					"$ref": "#/definitions/dto.ProviderResultDTO"
				},
				"payout_attempts": {
					"type": "integer"
				},
				"payout_result": {
					"$ref": "#/definitions/dto.ProviderResultDTO"
				},
				"payout_account_number": {
					"type": "string"
				},
				"last_error": {
					"type": "string"
				},
				"credited_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"dto.UnmatchedDepositDTO": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"provider": {
					"type": "string"
				},
				"asset": {
					"type": "string"
				},
				"network": {
					"type": "string"
				},
				"address": {
					"type": "string"
				},
				"memo": {
					"type": "string"
				},
				"amount": {
					"type": "string"
				},
				"tx_hash": {
					"type": "string"
				},
				"provider_tx_id": {
					"type": "string"
				},
				"reason": {
					"type": "string"
				},
				"intent_id": {
					"type": "string"
				},
				"detail": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				}
			}
		},
		"usecases.DepositResult": {
			"type": "object",
			"properties": {
				"outcome": {
					"type": "string"
				},
				"intent_id": {
					"type": "string"
				},
				"settlement_id": {
					"type": "string"
				},
				"state": {
					"type": "string"
				}
			}
		},
		"usecases.PayoutCallbackResult": {
			"type": "object",
			"properties": {
				"outcome": {
					"type": "string"
				},
				"intent_id": {
					"type": "string"
				},
				"state": {
					"type": "string"
				}
			}
		},
		"usecases.RetrySettlementResult": {
			"type": "object",
			"properties": {
				"intent_id": {
					"type": "string"
				},
				"outcome": {
					"type": "string"
				},
				"state": {
					"type": "string"
				}
			}
		},
		"usecases.IntentView": {
			"type": "object",
			"properties": {
				"intent": {
					"$ref": "#/definitions/dto.IntentDTO"
				},
				"settlement": {
					"$ref": "#/definitions/dto.SettlementDTO"
				}
			}
		}
	},
	"securityDefinitions": {
		"Bearer": {
			"description": "Type \"Bearer\" followed by a space and the JWT.",
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Offramp API",
	Description:      "Sell intents, provider webhooks and operator settlement endpoints.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
