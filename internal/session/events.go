package session

// EventType identifies session events.
type EventType int

const (
	// EventImageLoaded carries a *LoadResult.
	EventImageLoaded EventType = iota

	// EventViewportChanged carries the new viewport.Snapshot. It fires after
	// every command that changed zoom or pan, signalling a re-render.
	EventViewportChanged

	// EventAnalysisStarted carries the image source being analysed.
	EventAnalysisStarted

	// EventDetectionsReady carries the new *detection.Batch.
	EventDetectionsReady
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// On registers an event listener for the specified event type. Listeners run
// on the goroutine that caused the event, after the session lock is
// released, so they may call back into the session.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

func (s *Session) emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
