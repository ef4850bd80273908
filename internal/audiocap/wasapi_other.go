//go:build !windows

package audiocap

import "errors"

// NewAsyncAudioReader returns a reader that always fails to start on
// platforms without a WASAPI implementation.
func NewAsyncAudioReader(endpointID string) AsyncAudioReader {
	return unsupportedReader{}
}

type unsupportedReader struct{}

func (unsupportedReader) Start(callback func(Sample)) error {
	return errors.New("audiocap: microphone capture not supported on this platform")
}

func (unsupportedReader) Stop() {}

// Device identifies one capture-role audio endpoint.
type Device struct {
	Name     string
	Endpoint string
}

// ListCaptureDevices returns no devices on platforms without a WASAPI
// implementation.
func ListCaptureDevices() ([]Device, error) {
	return nil, nil
}
