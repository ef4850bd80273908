//go:build windows

package audiocap

import "testing"

func TestNewAsyncAudioReaderStoresEndpointID(t *testing.T) {
	r := NewAsyncAudioReader("{0.0.1.00000000}.{guid}").(*wasapiReader)
	if r.endpointID != "{0.0.1.00000000}.{guid}" {
		t.Fatalf("endpointID = %q, want the given ID", r.endpointID)
	}
}

func TestNewAsyncAudioReaderDefaultEndpointIsEmpty(t *testing.T) {
	r := NewAsyncAudioReader("").(*wasapiReader)
	if r.endpointID != "" {
		t.Fatalf("endpointID = %q, want empty for default endpoint", r.endpointID)
	}
}
