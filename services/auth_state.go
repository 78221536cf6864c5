package services

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Session is a signed-in user as seen by live connections.
type Session struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// AuthSubscription receives session changes for one token. A nil session
// means the token was signed out.
type AuthSubscription struct {
	C <-chan *Session

	ch      chan *Session
	hub     *AuthStateHub
	tokenID string
	once    sync.Once
}

func (s *AuthSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if subs, ok := s.hub.subs[s.tokenID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.subs, s.tokenID)
			}
		}
		close(s.ch)
	})
}

// AuthStateHub broadcasts session changes to every live connection opened
// with the same token.
type AuthStateHub struct {
	mu   sync.Mutex
	subs map[string]map[*AuthSubscription]struct{}
}

func NewAuthStateHub() *AuthStateHub {
	return &AuthStateHub{subs: make(map[string]map[*AuthSubscription]struct{})}
}

func (h *AuthStateHub) Subscribe(tokenID string) *AuthSubscription {
	ch := make(chan *Session, 1)
	sub := &AuthSubscription{C: ch, ch: ch, hub: h, tokenID: tokenID}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[tokenID] == nil {
		h.subs[tokenID] = make(map[*AuthSubscription]struct{})
	}
	h.subs[tokenID][sub] = struct{}{}
	return sub
}

// Publish sends session to every subscriber of tokenID, replacing any change
// they have not read yet.
func (h *AuthStateHub) Publish(tokenID string, session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[tokenID] {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- session
	}
}

// TokenRevocations remembers signed-out token ids until the tokens would have
// expired anyway.
type TokenRevocations struct {
	cache *cache.Cache
}

func NewTokenRevocations() *TokenRevocations {
	return &TokenRevocations{cache: cache.New(24*time.Hour, 30*time.Minute)}
}

func (r *TokenRevocations) Revoke(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	r.cache.Set(tokenID, struct{}{}, ttl)
}

func (r *TokenRevocations) IsRevoked(tokenID string) bool {
	_, found := r.cache.Get(tokenID)
	return found
}

// SignOut revokes the session's token and tells its live connections.
func SignOut(revocations *TokenRevocations, hub *AuthStateHub, session Session) {
	revocations.Revoke(session.TokenID, session.ExpiresAt)
	hub.Publish(session.TokenID, nil)
}
