// Package intent models the configured units of "what the user wants":
// matching data (keywords, example phrases) plus a response strategy. The
// intent *name* is free-form configuration data; the handling strategy is a
// closed kind enumeration dispatched exhaustively by the router.
package intent

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "acu-chatbot/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Kind is the closed set of handling strategies.
type Kind int

const (
	// KindLiteral answers with a fixed string.
	KindLiteral Kind = iota
	// KindList answers with one uniformly random element of a list.
	KindList
	// KindCalendar resolves a year cue against the intent's extra data.
	KindCalendar
	// KindLive answers from a read-through cache backed by a scraper.
	KindLive
	// KindDevice runs the device lookup with fuzzy confirmation.
	KindDevice
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindList:
		return "list"
	case KindCalendar:
		return "calendar"
	case KindLive:
		return "live"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Intent is immutable between reloads; request paths never mutate it.
type Intent struct {
	Name      string
	Examples  []string
	Keywords  map[string]float64
	Kind      Kind
	Response  string   // literal content, also the default for calendar/live misses
	Responses []string // list content
	ExtraData map[string]string
	Source    string        // live source name: food, weather, announcements, library
	TTL       time.Duration // live cache TTL
}

// Snapshot is one loaded configuration generation.
type Snapshot struct {
	Version             int
	KeywordThreshold    float64
	SimilarityThreshold float64
	Intents             []*Intent
}

// ==========================
// JSON document format
// ==========================

type intentDoc struct {
	Version             int          `json:"version"`
	KeywordThreshold    *float64     `json:"keyword_threshold"`
	SimilarityThreshold *float64     `json:"similarity_threshold"`
	Intents             []intentItem `json:"intents"`
}

type intentItem struct {
	IntentName      string             `json:"intent_name"`
	Examples        []string           `json:"examples"`
	Keywords        map[string]float64 `json:"keywords"`
	Handler         string             `json:"handler"`
	ResponseContent json.RawMessage    `json:"response_content"`
	ExtraData       map[string]string  `json:"extra_data"`
	CacheTTL        int                `json:"cache_ttl"` // seconds
}

// documentSchema guards the shape of intents.json before decoding; a bad
// hand-edit should fail a reload loudly instead of half-loading.
const documentSchema = `{
  "type": "object",
  "required": ["intents"],
  "properties": {
    "version": {"type": "integer", "minimum": 0},
    "keyword_threshold": {"type": "number", "minimum": 0},
    "similarity_threshold": {"type": "number", "minimum": 0, "maximum": 1},
    "intents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["intent_name"],
        "properties": {
          "intent_name": {"type": "string", "minLength": 1},
          "examples": {"type": "array", "items": {"type": "string"}},
          "keywords": {
            "type": "object",
            "additionalProperties": {"type": "number", "minimum": 0}
          },
          "handler": {
            "type": "string",
            "enum": ["", "calendar", "device", "food", "weather", "announcements", "library"]
          },
          "response_content": {
            "anyOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          },
          "extra_data": {
            "type": "object",
            "additionalProperties": {"type": "string"}
          },
          "cache_ttl": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

// Parse validates and decodes an intents.json document into a Snapshot.
// Iteration order of the intents array is preserved; keyword ties resolve
// to the first configured intent.
func Parse(raw []byte) (*Snapshot, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("intent schema validation: %w", err)
	}
	if !result.Valid() {
		details := ""
		for _, e := range result.Errors() {
			details += e.String() + "; "
		}
		return nil, apperrors.NewIntentDataInvalidError(details)
	}

	var doc intentDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("intent data decode: %w", err)
	}

	snap := &Snapshot{
		Version:             doc.Version,
		KeywordThreshold:    8.0,
		SimilarityThreshold: 0.65,
	}
	if doc.KeywordThreshold != nil {
		snap.KeywordThreshold = *doc.KeywordThreshold
	}
	if doc.SimilarityThreshold != nil {
		snap.SimilarityThreshold = *doc.SimilarityThreshold
	}

	for _, item := range doc.Intents {
		it, err := item.toIntent()
		if err != nil {
			return nil, fmt.Errorf("intent %q: %w", item.IntentName, err)
		}
		snap.Intents = append(snap.Intents, it)
	}
	return snap, nil
}

func (item intentItem) toIntent() (*Intent, error) {
	it := &Intent{
		Name:      item.IntentName,
		Examples:  item.Examples,
		Keywords:  item.Keywords,
		ExtraData: item.ExtraData,
		TTL:       time.Duration(item.CacheTTL) * time.Second,
	}

	if len(item.ResponseContent) > 0 {
		var single string
		if err := json.Unmarshal(item.ResponseContent, &single); err == nil {
			it.Response = single
		} else {
			var many []string
			if err := json.Unmarshal(item.ResponseContent, &many); err != nil {
				return nil, fmt.Errorf("response_content must be a string or list of strings")
			}
			it.Responses = many
		}
	}

	switch item.Handler {
	case "":
		if len(it.Responses) > 0 {
			it.Kind = KindList
		} else {
			it.Kind = KindLiteral
		}
	case "calendar":
		it.Kind = KindCalendar
	case "device":
		it.Kind = KindDevice
	case "food", "weather", "announcements", "library":
		it.Kind = KindLive
		it.Source = item.Handler
	default:
		return nil, fmt.Errorf("unknown handler %q", item.Handler)
	}

	return it, nil
}
