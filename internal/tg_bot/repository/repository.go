// Package repository keeps the in-memory state of the bot: per-chat conversation
// sessions and the process-wide device summary counters. Nothing is persisted.
package repository

import (
	"sync"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/sirupsen/logrus"
)

// Sessions manages the conversation state of every chat in memory.
type Sessions struct {
	batchBuffer map[int64]*models.Session // In-memory store of sessions by chat ID.
	mu          *sync.RWMutex             // Protects batchBuffer from concurrent access
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{
		batchBuffer: make(map[int64]*models.Session),
		mu:          &sync.RWMutex{},
	}
}

// GetSession returns a copy of the chat session. Unknown chats are idle.
func (m *Sessions) GetSession(chatID int64) models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.batchBuffer[chatID]
	if !ok || state == nil {
		return models.Session{ChatID: chatID, Step: models.StepIdle}
	}
	session := *state
	if state.PendingType != nil {
		pending := *state.PendingType
		session.PendingType = &pending
	}
	return session
}

// StoreSession updates or creates the chat session.
func (m *Sessions) StoreSession(session models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logrus.WithField("chatID", session.ChatID).Debugf("Chat step -> %s", session.Step)
	m.batchBuffer[session.ChatID] = &session
}

// ResetSession returns the chat to idle and drops any partial selection.
func (m *Sessions) ResetSession(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batchBuffer[chatID] = &models.Session{ChatID: chatID, Step: models.StepIdle}
}

// Len returns the number of chats seen since start.
func (m *Sessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.batchBuffer)
}
