// Package docs registers the agora OpenAPI document with swag so
// http-swagger can serve it at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"Bearer": []}],
    "paths": {
        "/api/governance/v1/organizations": {
            "get": {
                "summary": "List organizations in creation order",
                "tags": ["registry"],
                "parameters": [{"$ref": "#/parameters/RequestID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ListOrganizationsResponse"}}}
            },
            "post": {
                "summary": "Create an organization, minting and splitting a fresh ledger or binding an existing one",
                "tags": ["registry"],
                "parameters": [
                    {"$ref": "#/parameters/RequestID"},
                    {"$ref": "#/parameters/UserID"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrganizationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/CreateOrganizationResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Ledger not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/governance/v1/organizations/{organization_id}": {
            "get": {
                "summary": "Organization policy with total supply, quorum threshold and treasury balance",
                "tags": ["registry"],
                "parameters": [{"$ref": "#/parameters/RequestID"}, {"$ref": "#/parameters/OrganizationID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/OrganizationResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/governance/v1/organizations/{organization_id}/proposals": {
            "get": {
                "summary": "List proposals in id order",
                "tags": ["proposals"],
                "parameters": [{"$ref": "#/parameters/RequestID"}, {"$ref": "#/parameters/OrganizationID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ListProposalsResponse"}}}
            },
            "post": {
                "summary": "Create a proposal",
                "tags": ["proposals"],
                "parameters": [
                    {"$ref": "#/parameters/RequestID"},
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/OrganizationID"},
                    {"name": "Idempotency-Key", "in": "header", "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateProposalRequest"}}
                ],
                "responses": {
                    "200": {"description": "Idempotent replay", "schema": {"$ref": "#/definitions/ProposalResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ProposalResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Caller may not create proposals", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}": {
            "get": {
                "summary": "Proposal tally and voting window",
                "tags": ["proposals"],
                "parameters": [{"$ref": "#/parameters/RequestID"}, {"$ref": "#/parameters/OrganizationID"}, {"$ref": "#/parameters/ProposalID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ProposalResponse"}}}
            }
        },
        "/api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}/votes": {
            "get": {
                "summary": "Ballots cast on a proposal",
                "tags": ["proposals"],
                "parameters": [{"$ref": "#/parameters/RequestID"}, {"$ref": "#/parameters/OrganizationID"}, {"$ref": "#/parameters/ProposalID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ListBallotsResponse"}}}
            },
            "post": {
                "summary": "Cast a ballot weighted by the caller's current share balance",
                "tags": ["proposals"],
                "parameters": [
                    {"$ref": "#/parameters/RequestID"},
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/OrganizationID"},
                    {"$ref": "#/parameters/ProposalID"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/BallotResponse"}},
                    "403": {"description": "Not a member", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Already voted, executed or expired", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/governance/v1/organizations/{organization_id}/proposals/{proposal_id}/execute": {
            "post": {
                "summary": "Execute a proposal once quorum is met",
                "tags": ["proposals"],
                "parameters": [{"$ref": "#/parameters/RequestID"}, {"$ref": "#/parameters/UserID"}, {"$ref": "#/parameters/OrganizationID"}, {"$ref": "#/parameters/ProposalID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ExecuteProposalResponse"}},
                    "409": {"description": "Already executed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Quorum not met or insufficient treasury funds", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Executed but the payout was rejected", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/governance/v1/organizations/{organization_id}/treasury": {
            "get": {
                "summary": "Treasury balance",
                "tags": ["treasury"],
                "parameters": [{"$ref": "#/parameters/RequestID"}, {"$ref": "#/parameters/OrganizationID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/TreasuryResponse"}}}
            }
        },
        "/api/governance/v1/organizations/{organization_id}/treasury/deposits": {
            "post": {
                "summary": "Deposit funds into the treasury",
                "tags": ["treasury"],
                "parameters": [
                    {"$ref": "#/parameters/RequestID"},
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/OrganizationID"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AmountRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/TreasuryResponse"}}}
            }
        },
        "/api/shares/v1/ledgers/{ledger_id}": {
            "get": {
                "summary": "Ledger metadata and total supply",
                "tags": ["shares"],
                "parameters": [{"$ref": "#/parameters/LedgerID"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/api/shares/v1/ledgers/{ledger_id}/holdings": {
            "get": {
                "summary": "Non-zero balances, largest first",
                "tags": ["shares"],
                "parameters": [{"$ref": "#/parameters/LedgerID"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/shares/v1/ledgers/{ledger_id}/balances/{holder}": {
            "get": {
                "summary": "Balance of one holder; zero when unknown",
                "tags": ["shares"],
                "parameters": [{"$ref": "#/parameters/LedgerID"}, {"name": "holder", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/shares/v1/ledgers/{ledger_id}/transfers": {
            "post": {
                "summary": "Transfer shares from the caller",
                "tags": ["shares"],
                "parameters": [
                    {"$ref": "#/parameters/RequestID"},
                    {"$ref": "#/parameters/UserID"},
                    {"$ref": "#/parameters/LedgerID"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"to": {"type": "string"}, "amount": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Insufficient balance"}}
            }
        }
    },
    "parameters": {
        "RequestID": {"name": "X-Request-Id", "in": "header", "required": true, "type": "string"},
        "UserID": {"name": "X-User-Id", "in": "header", "required": true, "type": "string"},
        "OrganizationID": {"name": "organization_id", "in": "path", "required": true, "type": "string"},
        "ProposalID": {"name": "proposal_id", "in": "path", "required": true, "type": "integer", "format": "uint64"},
        "LedgerID": {"name": "ledger_id", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}},
        "AmountRequest": {"type": "object", "properties": {"amount": {"type": "string", "example": "1000000000000000000"}}},
        "CreateOrganizationRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "symbol": {"type": "string"},
                "members": {"type": "array", "items": {"type": "string"}},
                "quorum": {"type": "integer", "maximum": 100},
                "initial_supply": {"type": "string"},
                "existing_ledger_id": {"type": "string"},
                "authority": {"type": "string"},
                "accept_external_proposals": {"type": "boolean"}
            }
        },
        "OrganizationResponse": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "name": {"type": "string"},
                "symbol": {"type": "string"},
                "owner": {"type": "string"},
                "ledger_id": {"type": "string"},
                "quorum": {"type": "integer"},
                "accept_external_proposals": {"type": "boolean"},
                "proposal_count": {"type": "integer"},
                "policy_version": {"type": "integer"},
                "total_supply": {"type": "string"},
                "quorum_threshold": {"type": "string"},
                "treasury_balance": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateOrganizationResponse": {
            "type": "object",
            "properties": {
                "organization": {"$ref": "#/definitions/OrganizationResponse"},
                "sequence": {"type": "integer"},
                "share_per_member": {"type": "string"},
                "remainder": {"type": "string"}
            }
        },
        "ListOrganizationsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object", "properties": {
                    "sequence": {"type": "integer"},
                    "organization_id": {"type": "string"},
                    "ledger_id": {"type": "string"},
                    "created_at": {"type": "string", "format": "date-time"}
                }}}
            }
        },
        "CreateProposalRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "duration": {"type": "integer"},
                "recipient": {"type": "string"},
                "amount": {"type": "string"},
                "new_quorum": {"type": "integer"},
                "change_accept_external_proposals": {"type": "boolean"}
            }
        },
        "ProposalResponse": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "proposal_id": {"type": "integer"},
                "description": {"type": "string"},
                "proposer": {"type": "string"},
                "kind": {"type": "string", "enum": ["generic", "withdraw_funds", "change_settings"]},
                "recipient": {"type": "string"},
                "amount": {"type": "string"},
                "new_quorum": {"type": "integer"},
                "accept_external_proposals": {"type": "boolean"},
                "votes_for": {"type": "string"},
                "votes_against": {"type": "string"},
                "executed": {"type": "boolean"},
                "passed": {"type": "boolean"},
                "end_position": {"type": "integer"},
                "current_position": {"type": "integer"},
                "voting_open": {"type": "boolean"},
                "created_at": {"type": "string", "format": "date-time"},
                "executed_at": {"type": "string", "format": "date-time"},
                "replayed": {"type": "boolean"}
            }
        },
        "ListProposalsResponse": {"type": "object", "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/ProposalResponse"}}}},
        "VoteRequest": {"type": "object", "properties": {"in_favor": {"type": "boolean"}}},
        "BallotResponse": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "proposal_id": {"type": "integer"},
                "voter": {"type": "string"},
                "in_favor": {"type": "boolean"},
                "weight": {"type": "string"},
                "position": {"type": "integer"},
                "cast_at": {"type": "string", "format": "date-time"}
            }
        },
        "ListBallotsResponse": {"type": "object", "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/BallotResponse"}}}},
        "ExecuteProposalResponse": {
            "type": "object",
            "properties": {
                "proposal_id": {"type": "integer"},
                "passed": {"type": "boolean"},
                "votes_for": {"type": "string"},
                "votes_against": {"type": "string"},
                "executed": {"type": "boolean"}
            }
        },
        "TreasuryResponse": {"type": "object", "properties": {"organization_id": {"type": "string"}, "balance": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "agora governance API",
	Description:      "Membership-weighted proposals, voting, execution and treasury for share-governed organizations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
