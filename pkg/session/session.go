package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/payback159/passwordanalyzer/pkg/logging"
	"github.com/payback159/passwordanalyzer/pkg/models"
)

// Store manages user sessions with automatic cleanup
type Store struct {
	sessions map[string]*Data
	mutex    sync.RWMutex
	timeout  time.Duration
	done     chan struct{}
	once     sync.Once
}

// Data holds the last analysis of a session with expiration.
// Only redacted results are stored.
type Data struct {
	Result    models.AnalysisResult
	ExpiresAt time.Time
}

// NewStore creates a new session store with the default timeout and starts cleanup routine
func NewStore() *Store {
	return NewStoreWithTimeout(time.Duration(models.SessionTimeout) * time.Second)
}

// NewStoreWithTimeout creates a new session store whose entries live for timeout
func NewStoreWithTimeout(timeout time.Duration) *Store {
	store := &Store{
		sessions: make(map[string]*Data),
		timeout:  timeout,
		done:     make(chan struct{}),
	}
	store.startCleanup()
	return store
}

// Set stores the redacted form of result with automatic expiration
func (s *Store) Set(id string, result models.AnalysisResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[id] = &Data{
		Result:    result.Redacted(),
		ExpiresAt: time.Now().Add(s.timeout),
	}

	logging.LogDebug("Session data stored",
		"session_ref", LogID(id),
		"score", result.Score,
		"strength", string(result.Strength),
		"expires_at", s.sessions[id].ExpiresAt.Format(time.RFC3339))
}

// Get retrieves session data if it exists and hasn't expired
func (s *Store) Get(id string) (models.AnalysisResult, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sessionData, exists := s.sessions[id]
	if !exists {
		logging.LogDebug("Session not found", "session_ref", LogID(id))
		return models.AnalysisResult{}, false
	}

	if time.Now().After(sessionData.ExpiresAt) {
		logging.LogDebug("Session expired",
			"session_ref", LogID(id),
			"expired_at", sessionData.ExpiresAt.Format(time.RFC3339))

		delete(s.sessions, id)

		return models.AnalysisResult{}, false
	}

	logging.LogDebug("Session retrieved successfully",
		"session_ref", LogID(id),
		"score", sessionData.Result.Score)

	return sessionData.Result, true
}

// Delete removes a session
func (s *Store) Delete(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sessions[id]; exists {
		delete(s.sessions, id)
		logging.LogDebug("Session deleted", "session_ref", LogID(id))
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
}

// startCleanup runs a background goroutine to clean up expired sessions
func (s *Store) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanupExpired()
			case <-s.done:
				return
			}
		}
	}()
}

// cleanupExpired removes all expired sessions
func (s *Store) cleanupExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	expiredCount := 0

	for id, sessionData := range s.sessions {
		if now.After(sessionData.ExpiresAt) {
			delete(s.sessions, id)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		logging.LogInfo("Cleaned up expired sessions",
			"expired_count", expiredCount,
			"remaining_sessions", len(s.sessions))
	}
}

// GenerateSessionID creates a cryptographically secure random session ID
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		logging.LogError("Failed to generate session ID", err)
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// LogID returns a short, stable reference to a session ID for log lines.
// The ID itself grants access to the session and is never logged.
func LogID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}

// GetSessionCount returns the current number of active sessions
func (s *Store) GetSessionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}
