package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// submitSchema describes POST /api/v1/submit. The decision object is checked
// against the payload of the phase named in the request.
const submitSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["session_id", "participant_id", "phase", "decision"],
  "properties": {
    "session_id": {"type": "string", "minLength": 1},
    "participant_id": {"type": "string", "minLength": 1},
    "phase": {"enum": ["SHIPYARD", "AUCTION_LIST", "AUCTION_BID", "FISHING", "STORAGE"]},
    "decision": {"type": "object"}
  },
  "allOf": [
    {"if": {"properties": {"phase": {"const": "SHIPYARD"}}},
     "then": {"properties": {"decision": {"$ref": "#/$defs/shipOrder"}}}},
    {"if": {"properties": {"phase": {"const": "AUCTION_LIST"}}},
     "then": {"properties": {"decision": {"$ref": "#/$defs/listing"}}}},
    {"if": {"properties": {"phase": {"const": "AUCTION_BID"}}},
     "then": {"properties": {"decision": {"$ref": "#/$defs/bids"}}}},
    {"if": {"properties": {"phase": {"const": "FISHING"}}},
     "then": {"properties": {"decision": {"$ref": "#/$defs/deployment"}}}},
    {"if": {"properties": {"phase": {"const": "STORAGE"}}},
     "then": {"properties": {"decision": {"$ref": "#/$defs/storage"}}}}
  ],
  "$defs": {
    "count": {"type": "integer", "minimum": 0},
    "money": {"type": "number", "minimum": 0},
    "shipOrder": {
      "type": "object",
      "required": ["quantity"],
      "properties": {"quantity": {"$ref": "#/$defs/count"}},
      "additionalProperties": false
    },
    "listing": {
      "type": "object",
      "required": ["quantity"],
      "properties": {
        "quantity": {"$ref": "#/$defs/count"},
        "reserve": {"$ref": "#/$defs/money"}
      },
      "additionalProperties": false
    },
    "bids": {
      "type": "object",
      "properties": {
        "skip": {"type": "boolean"},
        "amounts": {
          "type": "object",
          "propertyNames": {"pattern": "^[0-9]+$"},
          "additionalProperties": {"$ref": "#/$defs/money"}
        }
      },
      "additionalProperties": false
    },
    "deployment": {
      "type": "object",
      "required": ["shore", "deep", "harbor"],
      "properties": {
        "shore": {"$ref": "#/$defs/count"},
        "deep": {"$ref": "#/$defs/count"},
        "harbor": {"$ref": "#/$defs/count"},
        "accept_contract": {"type": "boolean"},
        "order_ships": {"$ref": "#/$defs/count"}
      },
      "additionalProperties": false
    },
    "storage": {
      "type": "object",
      "required": ["freeze"],
      "properties": {"freeze": {"$ref": "#/$defs/money"}},
      "additionalProperties": false
    }
  }
}`

var submitValidator = jsonschema.MustCompileString("submit.schema.json", submitSchema)

type submitRequest struct {
	SessionID     string          `json:"session_id"`
	ParticipantID string          `json:"participant_id"`
	Phase         string          `json:"phase"`
	Decision      json.RawMessage `json:"decision"`
}

// decodeSubmit validates a raw submit body and converts it to a decision.
func decodeSubmit(body []byte) (submitRequest, engine.Decision, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return submitRequest{}, nil, fmt.Errorf("invalid json: %w", err)
	}
	if err := submitValidator.Validate(doc); err != nil {
		return submitRequest{}, nil, err
	}

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return submitRequest{}, nil, fmt.Errorf("invalid json: %w", err)
	}

	phase, _ := engine.ParsePhase(req.Phase)
	var (
		d   engine.Decision
		err error
	)
	switch phase {
	case engine.PhaseShipyard:
		d, err = unmarshalAs[engine.ShipOrder](req.Decision)
	case engine.PhaseAuctionList:
		d, err = unmarshalAs[engine.Listing](req.Decision)
	case engine.PhaseAuctionBid:
		d, err = unmarshalAs[engine.Bids](req.Decision)
	case engine.PhaseFishing:
		d, err = unmarshalAs[engine.Deployment](req.Decision)
	case engine.PhaseStorage:
		d, err = unmarshalAs[engine.Storage](req.Decision)
	default:
		err = fmt.Errorf("phase %q takes no decisions", req.Phase)
	}
	return req, d, err
}

func unmarshalAs[T engine.Decision](raw json.RawMessage) (engine.Decision, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid decision: %w", err)
	}
	return v, nil
}
