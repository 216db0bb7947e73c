package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gemini-chat-go/internal/repository"
	"gemini-chat-go/pkg/log"
	"gemini-chat-go/pkg/token"
)

// ErrSessionNotFound is returned when a token names a session that has ended or never existed here.
var ErrSessionNotFound = errors.New("session not found")

// Session is one interactive chat session. It owns exactly one ConversationStore.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
	Store     *ConversationStore

	// mu serializes submits within the session. ended is guarded by mu.
	mu       sync.Mutex
	ended    bool
	attached atomic.Bool
	lastSeen atomic.Int64
}

// Lock and Unlock guard a whole submit cycle.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Touch marks the session as in use.
func (s *Session) Touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// Attach binds the session to a live connection. Attached sessions are never
// swept; they end when their connection ends them.
func (s *Session) Attach() { s.attached.Store(true) }

// Ended reports whether the session was ended. Callers must hold the lock.
func (s *Session) Ended() bool { return s.ended }

func (s *Session) idleSince(cutoff time.Time) bool {
	return !s.attached.Load() && s.lastSeen.Load() < cutoff.UnixNano()
}

// discard marks the session ended and drops its history. It waits for an
// in-flight submit to finish.
func (s *Session) discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	return s.Store.reset(ctx)
}

// SessionService creates, finds and ends sessions.
type SessionService interface {
	Start(ctx context.Context) (*Session, error)
	Resume(ctx context.Context, tokenString string) (*Session, error)
	End(ctx context.Context, sessionID string) error
	// Refresh issues a new token for sess with a fresh expiry.
	Refresh(ctx context.Context, sess *Session) (string, time.Time, error)
	// Sweep ends sessions idle for longer than maxIdle and returns how many it ended.
	Sweep(ctx context.Context, maxIdle time.Duration) int
	Active() int
}

type sessionService struct {
	repo       repository.ConversationRepository
	jwtManager *token.JWTManager

	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionService creates a SessionService whose sessions keep their history in repo.
func NewSessionService(repo repository.ConversationRepository, jwtManager *token.JWTManager) SessionService {
	return &sessionService{
		repo:       repo,
		jwtManager: jwtManager,
		sessions:   make(map[string]*Session),
		now:        time.Now,
	}
}

// Start opens a new session with an empty history.
func (s *sessionService) Start(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	tok, expiresAt, err := s.jwtManager.GenerateToken(id)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		ID:        id,
		Token:     tok,
		ExpiresAt: expiresAt,
		Store:     NewConversationStore(s.repo, id),
	}
	sess.Touch(s.now())

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	log.Infow("Session started", "session_id", id, "expires_at", expiresAt)
	return sess, nil
}

// Resume returns the live session named by tokenString.
func (s *sessionService) Resume(ctx context.Context, tokenString string) (*Session, error) {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	s.mu.RLock()
	sess, ok := s.sessions[claims.SessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.Touch(s.now())
	return sess, nil
}

// End discards the session and its history. Ending an unknown session is a no-op.
func (s *sessionService) End(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := sess.discard(ctx); err != nil {
		log.Errorf("[SessionService] failed to discard history of session %s: %v", sessionID, err)
		return fmt.Errorf("failed to discard history: %w", err)
	}
	log.Infow("Session ended", "session_id", sessionID)
	return nil
}

func (s *sessionService) Refresh(ctx context.Context, sess *Session) (string, time.Time, error) {
	tok, expiresAt, err := s.jwtManager.GenerateToken(sess.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	sess.Lock()
	sess.Token, sess.ExpiresAt = tok, expiresAt
	sess.Unlock()
	sess.Touch(s.now())
	return tok, expiresAt, nil
}

func (s *sessionService) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var idle []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		if err := sess.discard(ctx); err != nil {
			log.Errorf("[SessionService] failed to discard history of session %s: %v", sess.ID, err)
		}
	}
	if len(idle) > 0 {
		log.Infof("[SessionService] swept %d idle session(s)", len(idle))
	}
	return len(idle)
}

func (s *sessionService) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
