//go:build windows

package audiocap

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/jgcoded/duplicast/internal/gpucore"
)

var (
	clsidMMDeviceEnumerator = gpucore.GUID{Data1: 0xBCDE0395, Data2: 0xE52F, Data3: 0x467C, Data4: [8]byte{0x8E, 0x3D, 0xC4, 0x57, 0x92, 0x91, 0x69, 0x2E}}
	iidIMMDeviceEnumerator  = gpucore.GUID{Data1: 0xA95664D2, Data2: 0x9614, Data3: 0x4F35, Data4: [8]byte{0xA7, 0x46, 0xDE, 0x8D, 0xB6, 0x36, 0x17, 0xE6}}
	iidIAudioClient         = gpucore.GUID{Data1: 0x1CB9AD4C, Data2: 0xDBFA, Data3: 0x4c32, Data4: [8]byte{0xB1, 0x78, 0xC2, 0xF5, 0x68, 0xA7, 0x03, 0xB2}}
	iidIAudioCaptureClient  = gpucore.GUID{Data1: 0xC8ADBD64, Data2: 0xE71E, Data3: 0x48a0, Data4: [8]byte{0xA4, 0xDE, 0x18, 0x5C, 0x39, 0x5C, 0xD3, 0x17}}
)

const (
	// eCapture selects the microphone role; the teacher's loopback capturer
	// uses eRender against the render endpoint instead, since it records
	// system playback, not a microphone.
	eCapture        = 1
	eCommunications = 0

	audclntShareModeShared = 0
	waveFormatIEEEFloat    = 0x0003
	waveFormatExtensible   = 0xFFFE

	mmdeGetDefaultAudioEndpoint = 4
	mmdeGetDevice               = 5
	mmDeviceActivate            = 3
	audioClientInitialize       = 3
	audioClientGetMixFormat     = 8
	audioClientStart            = 10
	audioClientStop             = 11
	audioClientGetService       = 14
	capClientGetBuffer          = 3
	capClientReleaseBuffer      = 4
)

type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	CbSize         uint16
}

// wasapiReader captures a microphone endpoint via WASAPI shared-mode
// capture (not loopback: this reads from a capture-role endpoint, the
// counterpart of the teacher's render-loopback system-audio capturer).
type wasapiReader struct {
	mu            sync.Mutex
	started       bool
	endpointID    string
	enumerator    uintptr
	device        uintptr
	audioClient   uintptr
	captureClient uintptr
	mixFormat     *waveFormatEx

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAsyncAudioReader creates a WASAPI microphone reader. endpointID, as
// returned by ListCaptureDevices, selects a specific capture endpoint;
// an empty string selects the system default capture endpoint.
func NewAsyncAudioReader(endpointID string) AsyncAudioReader {
	return &wasapiReader{endpointID: endpointID, done: make(chan struct{})}
}

func (w *wasapiReader) Start(callback func(Sample)) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	runtime.LockOSThread()

	hr, _, _ := gpucore.ProcCoInitializeEx.Call(0, gpucore.CoinitMultithreaded)
	if int32(hr) < 0 {
		return fmt.Errorf("CoInitializeEx failed: 0x%08X", uint32(hr))
	}

	enumerator, err := gpucore.CreateInstance(&clsidMMDeviceEnumerator, &iidIMMDeviceEnumerator)
	if err != nil {
		return fmt.Errorf("CoCreateInstance MMDeviceEnumerator: %w", err)
	}
	w.enumerator = enumerator

	var device uintptr
	if w.endpointID == "" {
		_, err = gpucore.Call(enumerator, mmdeGetDefaultAudioEndpoint,
			uintptr(eCapture), uintptr(eCommunications), uintptr(unsafe.Pointer(&device)))
		if err != nil {
			return fmt.Errorf("GetDefaultAudioEndpoint: %w", err)
		}
	} else {
		idPtr, idErr := syscall.UTF16PtrFromString(w.endpointID)
		if idErr != nil {
			return fmt.Errorf("encode endpoint ID: %w", idErr)
		}
		_, err = gpucore.Call(enumerator, mmdeGetDevice, uintptr(unsafe.Pointer(idPtr)), uintptr(unsafe.Pointer(&device)))
		if err != nil {
			return fmt.Errorf("GetDevice(%s): %w", w.endpointID, err)
		}
	}
	w.device = device

	var audioClient uintptr
	_, err = gpucore.Call(device, mmDeviceActivate,
		uintptr(unsafe.Pointer(&iidIAudioClient)),
		uintptr(gpucore.ClsctxAll),
		0,
		uintptr(unsafe.Pointer(&audioClient)),
	)
	if err != nil {
		return fmt.Errorf("Activate IAudioClient: %w", err)
	}
	w.audioClient = audioClient

	var mixFormatPtr uintptr
	_, err = gpucore.Call(audioClient, audioClientGetMixFormat, uintptr(unsafe.Pointer(&mixFormatPtr)))
	if err != nil {
		return fmt.Errorf("GetMixFormat: %w", err)
	}
	fmtCopy := *(*waveFormatEx)(unsafe.Pointer(mixFormatPtr))
	w.mixFormat = &fmtCopy

	slog.Info("WASAPI capture mix format",
		"channels", w.mixFormat.Channels,
		"sampleRate", w.mixFormat.SamplesPerSec,
		"bitsPerSample", w.mixFormat.BitsPerSample,
	)

	bufferDuration := int64(200 * 10000) // 200ms, 100-ns units
	_, err = gpucore.Call(audioClient, audioClientInitialize,
		uintptr(audclntShareModeShared),
		0, // no loopback flag: this is a real capture endpoint
		uintptr(bufferDuration),
		0,
		mixFormatPtr,
		0,
	)
	gpucore.ProcCoTaskMemFree.Call(mixFormatPtr)
	if err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}

	var captureClient uintptr
	_, err = gpucore.Call(audioClient, audioClientGetService,
		uintptr(unsafe.Pointer(&iidIAudioCaptureClient)),
		uintptr(unsafe.Pointer(&captureClient)),
	)
	if err != nil {
		return fmt.Errorf("GetService IAudioCaptureClient: %w", err)
	}
	w.captureClient = captureClient

	_, err = gpucore.Call(audioClient, audioClientStart)
	if err != nil {
		return fmt.Errorf("Start: %w", err)
	}

	channels := int(w.mixFormat.Channels)
	sampleRate := int(w.mixFormat.SamplesPerSec)
	bitsPerSample := int(w.mixFormat.BitsPerSample)
	isFloat := w.mixFormat.FormatTag == waveFormatIEEEFloat ||
		(w.mixFormat.FormatTag == waveFormatExtensible && bitsPerSample == 32)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		hr, _, _ := gpucore.ProcCoInitializeEx.Call(0, gpucore.CoinitMultithreaded)
		if int32(hr) < 0 {
			slog.Error("audio capture goroutine: CoInitializeEx failed", "hr", fmt.Sprintf("0x%08X", uint32(hr)))
			return
		}
		defer gpucore.ProcCoUninitialize.Call()

		w.captureLoop(callback, channels, sampleRate, bitsPerSample, isFloat)
	}()

	return nil
}

// captureLoop delivers whole WASAPI buffers as Sample values at the
// device's native sample rate, timestamped with the wall-clock time the
// buffer was pulled, in 100-ns units — unlike the teacher's loopback
// capturer, which downsamples to 8kHz mono mu-law for a streaming
// viewer; this reader hands the AAC framer full-fidelity PCM instead.
func (w *wasapiReader) captureLoop(callback func(Sample), channels, sampleRate, bitsPerSample int, isFloat bool) {
	bytesPerSample := bitsPerSample / 8
	bytesPerFrame := channels * bytesPerSample

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
		}

		for {
			var dataPtr uintptr
			var numFrames uint32
			var flags uint32

			hr, _, _ := syscall.SyscallN(
				gpucore.VtblFn(w.captureClient, capClientGetBuffer),
				w.captureClient,
				uintptr(unsafe.Pointer(&dataPtr)),
				uintptr(unsafe.Pointer(&numFrames)),
				uintptr(unsafe.Pointer(&flags)),
				0,
				0,
			)
			if int32(hr) < 0 {
				if uint32(hr) == 0x88890004 { // AUDCLNT_E_DEVICE_INVALIDATED
					slog.Warn("audio device invalidated, stopping capture")
					return
				}
				break
			}
			if numFrames == 0 {
				break
			}

			silent := flags&0x2 != 0
			pcm := make([]int16, int(numFrames)*channels)

			if !silent && dataPtr != 0 {
				raw := unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), int(numFrames)*bytesPerFrame)
				for i := 0; i < int(numFrames)*channels; i++ {
					offset := i * bytesPerSample
					switch {
					case isFloat && bytesPerSample == 4:
						f := math.Float32frombits(binary.LittleEndian.Uint32(raw[offset:]))
						pcm[i] = floatToPCM16(f)
					case bytesPerSample == 2:
						pcm[i] = int16(binary.LittleEndian.Uint16(raw[offset:]))
					}
				}
			}

			callback(Sample{PCM: pcm, TimestampHundredNanos: time.Now().UnixNano() / 100})

			relHr, _, _ := syscall.SyscallN(
				gpucore.VtblFn(w.captureClient, capClientReleaseBuffer),
				w.captureClient,
				uintptr(numFrames),
			)
			if int32(relHr) < 0 {
				slog.Warn("WASAPI ReleaseBuffer failed", "hr", fmt.Sprintf("0x%08X", uint32(relHr)))
				return
			}
		}
	}
}

func (w *wasapiReader) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	w.wg.Wait()

	if w.audioClient != 0 {
		gpucore.Call(w.audioClient, audioClientStop)
	}
	gpucore.Release(w.captureClient)
	gpucore.Release(w.audioClient)
	gpucore.Release(w.device)
	gpucore.Release(w.enumerator)
}

func floatToPCM16(f float32) int16 {
	v := float64(f)
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return int16(v * 32767.0)
}
