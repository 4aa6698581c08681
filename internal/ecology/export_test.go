package ecology

// SetEvent forces the active event.
func (m *Model) SetEvent(e Event) {
	m.state.Event = e
}

// Restore replaces populations, clamped to capacity.
func (m *Model) Restore(shore, deep float64) {
	m.set(Shore, shore)
	m.set(Deep, deep)
}
