package importer

import "time"

const maxEvents = 50

// ProgressEvent событие сессии (для ленты в интерфейсе)
type ProgressEvent struct {
	Type      string      `json:"type"` // start/parsed/autofill/validated/export/send/warning/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// recordEvent вызывается под s.mu
func (s *Session) recordEvent(typ, message string, data interface{}) {
	s.events = append(s.events, ProgressEvent{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
	if len(s.events) > maxEvents {
		s.events = append([]ProgressEvent(nil), s.events[len(s.events)-maxEvents:]...)
	}
}

// Events последние события сессии
func (s *Session) Events() []ProgressEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ProgressEvent(nil), s.events...)
}
