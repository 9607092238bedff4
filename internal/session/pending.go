// Package session holds per-conversation state: the single pending
// confirmation and the persisted message history.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"acu-chatbot/internal/cache"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/nlp"
)

// PendingTTL bounds how long a yes/no question stays answerable.
const PendingTTL = 300 * time.Second

// affirmativeTokens are matched case-insensitively as substrings of the
// normalized reply. Anything else counts as a denial.
var affirmativeTokens = []string{"evet", "aynen", "he", "hıhı", "onayla", "yes", "doğru", "tabi"}

// Pending is one stored confirmation: "did you mean <device>?".
type Pending struct {
	Device    string    `json:"device"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingStore keeps at most one pending confirmation per session. Setting
// a new one overwrites the old; consuming is atomic, so two concurrent
// replies cannot both see the same confirmation.
type PendingStore struct {
	store  cache.Store
	logger logger.Logger
	now    func() time.Time
}

func NewPendingStore(store cache.Store, log logger.Logger) *PendingStore {
	return &PendingStore{store: store, logger: log, now: time.Now}
}

func pendingKey(sessionID string) string {
	return "pending:" + sessionID
}

// Set stores a confirmation for the session, replacing any existing one.
func (p *PendingStore) Set(ctx context.Context, sessionID, device string) {
	payload, err := json.Marshal(Pending{Device: device, CreatedAt: p.now().UTC()})
	if err != nil {
		return
	}
	p.store.Set(ctx, pendingKey(sessionID), string(payload), PendingTTL)
}

// Consume removes and returns the session's pending confirmation. At most
// one caller observes any stored confirmation; everyone else sees nothing.
func (p *PendingStore) Consume(ctx context.Context, sessionID string) (*Pending, bool) {
	raw, ok := p.store.GetDel(ctx, pendingKey(sessionID))
	if !ok {
		return nil, false
	}
	var pending Pending
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		p.logger.Warn("discarding malformed pending confirmation", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		return nil, false
	}
	return &pending, true
}

// Clear drops the session's pending confirmation without reading it.
func (p *PendingStore) Clear(ctx context.Context, sessionID string) {
	p.store.Delete(ctx, pendingKey(sessionID))
}

// IsAffirmative reports whether the reply confirms a pending question.
func IsAffirmative(message string) bool {
	normalized := nlp.Normalize(message)
	for _, token := range affirmativeTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}
