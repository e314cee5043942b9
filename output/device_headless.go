//go:build headless

package output

func newOtoBackend(Config) (Backend, error) {
	return nil, ErrBackendUnavailable
}

func newSpeakerBackend(Config) (Backend, error) {
	return nil, ErrBackendUnavailable
}

func newEbitenBackend(Config) (Backend, error) {
	return nil, ErrBackendUnavailable
}
