package badger

// NewMemoryBackend creates an in-memory backend for testing and ephemeral
// use. The caller owns Close.
func NewMemoryBackend() (*Backend, error) {
	return OpenBackend("", true)
}
