//go:build windows

package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/jgcoded/duplicast/internal/audiocap"
	"github.com/jgcoded/duplicast/internal/compositor"
	"github.com/jgcoded/duplicast/internal/config"
	"github.com/jgcoded/duplicast/internal/duplication"
	"github.com/jgcoded/duplicast/internal/gpucore"
	"github.com/jgcoded/duplicast/internal/mp4sink"
	"github.com/jgcoded/duplicast/internal/virtualdesktop"
)

var (
	procOpenInputDesktop = gpucore.User32DLL.NewProc("OpenInputDesktop")
	procSetThreadDesktop = gpucore.User32DLL.NewProc("SetThreadDesktop")
	procCloseDesktop     = gpucore.User32DLL.NewProc("CloseDesktop")
)

const desktopGenericAll = 0x10000000

// NewThread builds a RecorderThread for cfg: it does not touch the GPU or
// the input desktop yet (that happens on Start, per spec §4.8 steps 1-3),
// nor resolve the target monitor (buildPipeline does), but it opens the
// sink file up front so an unwritable path fails before the attach/device
// dance begins.
func NewThread(cfg config.Config, notifier Notifier) (*Thread, error) {
	file, err := os.Create(cfg.FileName)
	if err != nil {
		return nil, fmt.Errorf("recorder: create output file: %w", err)
	}

	t := &Thread{cfg: cfg, notifier: notifier}
	state := &windowsState{cfg: cfg, file: file}

	t.attachDesktop = state.attachDesktop
	t.buildPipeline = state.buildPipeline
	t.runTick = state.runTick
	t.teardown = state.teardown

	if cfg.AudioEndpoint != "" {
		t.audioReader = audiocap.NewAsyncAudioReader(cfg.AudioEndpoint)
		t.onAudioSample = state.writeAudioSample
	}

	return t, nil
}

// windowsState holds every GPU/encoder object a recording session needs,
// built once in buildPipeline and torn down in teardown.
type windowsState struct {
	cfg  config.Config
	file *os.File

	desktopHandle uintptr

	adapter gpucore.Adapter
	target  duplication.Monitor

	surface  *virtualdesktop.Surface
	shaders  *compositor.ShaderCache
	pipeline *compositor.Pipeline

	encoder *mp4sink.Encoder

	// lastRecoverableAt tracks spec §7's "second failure within 1s escalates
	// to Fatal" window: zero until the first recoverable tick error, then
	// the time of the most recent recovery attempt.
	lastRecoverableAt time.Time
}

// attachDesktop implements spec §4.8 step 1: retry OpenInputDesktop +
// SetThreadDesktop every 100ms for up to 3s, fatal on exhaustion. It pins
// the calling goroutine to its OS thread, since SetThreadDesktop is a
// per-thread property and this goroutine runs the whole recording loop.
func (w *windowsState) attachDesktop(ctx context.Context) error {
	runtime.LockOSThread()

	ticker := time.NewTicker(attachRetryInterval)
	defer ticker.Stop()

	for {
		if w.trySwitchDesktop() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrAttachTimeout
		case <-ticker.C:
		}
	}
}

func (w *windowsState) trySwitchDesktop() bool {
	hDesk, _, _ := procOpenInputDesktop.Call(0, 0, uintptr(desktopGenericAll))
	if hDesk == 0 {
		return false
	}
	ok, _, _ := procSetThreadDesktop.Call(hDesk)
	if ok == 0 {
		procCloseDesktop.Call(hDesk)
		return false
	}
	if w.desktopHandle != 0 {
		procCloseDesktop.Call(w.desktopHandle)
	}
	w.desktopHandle = hDesk
	return true
}

// buildPipeline implements spec §4.8 step 3: enumerate hardware adapters
// and the configured monitor, create the shared surface and this
// monitor's Pipeline, and open the MP4 encoder at the resolved output
// dimensions.
func (w *windowsState) buildPipeline() error {
	adapters, err := gpucore.EnumerateAdapters()
	if err != nil {
		return fmt.Errorf("enumerate adapters: %w", err)
	}

	// Monitor indices in Config are flat across every adapter's outputs,
	// in enumeration order — an adapter boundary is invisible to the CLI
	// shell's monitor listing.
	type candidate struct {
		adapter gpucore.Adapter
		monitor duplication.Monitor
	}
	var candidates []candidate
	for _, a := range adapters {
		ms, mErr := duplication.MonitorsFromAdapter(a.Device, a.Name)
		if mErr != nil {
			continue
		}
		for _, m := range ms {
			candidates = append(candidates, candidate{adapter: a, monitor: m})
		}
	}
	if w.cfg.Monitor < 0 || w.cfg.Monitor >= len(candidates) {
		return fmt.Errorf("monitor index %d not found (have %d)", w.cfg.Monitor, len(candidates))
	}
	w.adapter = candidates[w.cfg.Monitor].adapter
	w.target = candidates[w.cfg.Monitor].monitor

	// The shared surface spans the union of every attached monitor's
	// bounds (spec §4.2), not just the one being recorded — see S2 in
	// spec.md's end-to-end scenarios. Only the target monitor's duplicator
	// and Pipeline are built (see DESIGN.md's Open Question decision on
	// multi-monitor fan-out); the rest of the surface is left blank.
	var virtualBounds duplication.Rect
	for _, c := range candidates {
		virtualBounds = virtualBounds.Union(c.monitor.Bounds)
	}
	bounds := virtualdesktop.Bounds{
		Left: virtualBounds.Left, Top: virtualBounds.Top,
		Right: virtualBounds.Right, Bottom: virtualBounds.Bottom,
	}
	surface, err := virtualdesktop.NewSurface(w.adapter.Device, bounds)
	if err != nil {
		return fmt.Errorf("create shared surface: %w", err)
	}
	w.surface = surface

	shaders, err := compositor.NewShaderCache(w.adapter.Device)
	if err != nil {
		surface.Close()
		return fmt.Errorf("build shader cache: %w", err)
	}
	w.shaders = shaders

	pipeline, err := compositor.NewPipeline(w.adapter.Device, w.adapter.Context, w.target, surface, true, shaders)
	if err != nil {
		shaders.Close()
		surface.Close()
		return fmt.Errorf("build compositor pipeline: %w", err)
	}
	w.pipeline = pipeline

	// resolveDimensions is consulted for its HD-preset/Low/Medium sizing
	// intent, but the compositor always produces native-resolution
	// samples — there is no GPU resize pass in this pipeline — so a
	// request for a smaller target than native is honored as a bitrate
	// and quality-preset decision only, not a frame resize. A fixed
	// HD*/UHD target larger than native would also just pass through at
	// native size for the same reason.
	_, _ = resolveDimensions(w.cfg.ResolutionOption, w.target.Bounds.Width(), w.target.Bounds.Height())
	width, height := w.target.Bounds.Width(), w.target.Bounds.Height()
	audioQuality := resolveAudioQuality(w.cfg.AudioQuality)
	sampleRate, bitsPerSample, _ := audioPreset(audioQuality)

	ctx := mp4sink.EncodingContext{
		FileName:           w.cfg.FileName,
		ResolutionOption:   resolveResolutionQuality(w.cfg.ResolutionOption),
		AudioQuality:       resolveResolutionQuality(w.cfg.AudioQuality),
		FrameRate:          w.cfg.FrameRate,
		BitRate:            w.cfg.BitRate,
		Width:              int(width),
		Height:             int(height),
		AudioSampleRate:    sampleRate,
		AudioChannels:      2,
		AudioBitsPerSample: bitsPerSample,
		Device:             w.adapter.Device,
	}

	encoder, err := mp4sink.NewEncoder(w.file, ctx, w.cfg.AudioEndpoint != "")
	if err != nil {
		pipeline.Close()
		shaders.Close()
		surface.Close()
		return fmt.Errorf("build encoder: %w", err)
	}
	w.encoder = encoder
	return encoder.Begin()
}

// recoverFromTickError implements spec §7's recoverable-error policy: one
// recovery attempt — re-enumerate this adapter's monitors and reset the
// Pipeline's duplication interface onto the re-resolved monitor (spec
// §4.3's Recovering -> reset() -> Ready) — with a second recoverable
// failure inside the following 1s escalating straight to Fatal instead of
// attempting another reset. A nil return means SkipTick: the caller treats
// it exactly like a normal non-fatal tick and retries on the next interval.
func (w *windowsState) recoverFromTickError(tickErr error) error {
	now := time.Now()
	if !w.lastRecoverableAt.IsZero() && now.Sub(w.lastRecoverableAt) < time.Second {
		return fmt.Errorf("recorder: recoverable duplication error recurred within 1s, escalating to fatal: %w", tickErr)
	}
	w.lastRecoverableAt = now

	candidates, cErr := duplication.MonitorsFromAdapter(w.adapter.Device, w.adapter.Name)
	if cErr != nil {
		return fmt.Errorf("recorder: re-enumerate monitors for recovery: %w", cErr)
	}
	if rErr := w.pipeline.Reset(candidates); rErr != nil {
		return fmt.Errorf("recorder: pipeline recovery failed (original error: %v): %w", tickErr, rErr)
	}
	slog.Warn("recorder: recovered from recoverable duplication error", "error", tickErr)
	return nil
}

// runTick implements spec §4.8 step 4: composite one sample and hand it
// to the encoder as raw BGRA bytes, reading the staging-mapped texture
// back to the CPU.
func (w *windowsState) runTick(ctx context.Context) (wroteVideo bool, err error) {
	sample, ok, tickErr := w.pipeline.Tick()
	if tickErr != nil {
		if compositor.ClassifyTickError(tickErr) == duplication.KindRecoverable {
			return false, w.recoverFromTickError(tickErr)
		}
		return false, fmt.Errorf("compositor tick: %w", tickErr)
	}
	if !ok {
		return false, nil
	}
	defer sample.Release()

	mapped, mErr := gpucore.Map(w.adapter.Context, uintptr(sample.Texture))
	if mErr != nil {
		return false, fmt.Errorf("map compose texture: %w", mErr)
	}
	defer gpucore.Unmap(w.adapter.Context, uintptr(sample.Texture))

	height := int(w.target.Bounds.Height())
	rowBytes := int(w.target.Bounds.Width()) * 4
	bgra := make([]byte, rowBytes*height)
	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), int(mapped.RowPitch)*height)
	for y := 0; y < height; y++ {
		copy(bgra[y*rowBytes:(y+1)*rowBytes], src[y*int(mapped.RowPitch):y*int(mapped.RowPitch)+rowBytes])
	}

	if err := w.encoder.WriteVideoFrame(bgra); err != nil {
		return false, fmt.Errorf("write video frame: %w", err)
	}
	return true, nil
}

func (w *windowsState) writeAudioSample(s audiocap.Sample) error {
	if w.encoder == nil {
		return nil
	}
	return w.encoder.WriteAudioSamples(s.PCM, s.TimestampHundredNanos)
}

// teardown implements spec §5's resource release ordering: encoder/sink
// ended first (closing the encoders and the MP4 file), then GPU objects in
// reverse construction order, then the input desktop handle.
func (w *windowsState) teardown() {
	if w.encoder != nil {
		if err := w.encoder.End(); err != nil {
			slog.Warn("recorder: finalize sink failed", "error", err)
		}
	}
	if w.pipeline != nil {
		w.pipeline.Close()
	}
	if w.shaders != nil {
		w.shaders.Close()
	}
	if w.surface != nil {
		w.surface.Close()
	}
	if w.adapter.Context != 0 {
		gpucore.Release(w.adapter.Context)
	}
	if w.adapter.Device != 0 {
		gpucore.Release(w.adapter.Device)
	}
	if w.desktopHandle != 0 {
		procCloseDesktop.Call(w.desktopHandle)
	}
	if w.file != nil {
		w.file.Close()
	}
}

func resolveAudioQuality(q config.Quality) config.Quality {
	if q == config.QualityAuto || q == "" {
		return config.QualityMedium
	}
	return q
}

func audioPreset(q config.Quality) (sampleRate, bitsPerSample, bitRate int) {
	switch q {
	case config.QualityLow:
		return 22050, 16, 64_000
	case config.QualityHigh:
		return 48000, 16, 192_000
	default:
		return 44100, 16, 128_000
	}
}

// resolveResolutionQuality maps the config layer's string-based quality
// enum onto mp4sink's int-based one; the HD*/UHD presets resolve to a
// concrete width/height via resolveDimensions and carry no distinct
// mp4sink.Quality of their own, so they collapse to QualityHigh for the
// encoder's internal bitrate-shaping decisions.
func resolveResolutionQuality(q config.Quality) mp4sink.Quality {
	switch q {
	case config.QualityLow:
		return mp4sink.QualityLow
	case config.QualityMedium:
		return mp4sink.QualityMedium
	case config.QualityHigh, config.QualityHD720p, config.QualityHD1080p, config.QualityUHD2160:
		return mp4sink.QualityHigh
	default:
		return mp4sink.QualityAuto
	}
}

// resolveDimensions implements spec §6's resolutionOption table: Auto uses
// the input frame size; HD720p/HD1080p/UHD2160p target fixed dimensions;
// Low/Medium/High scale the native size down, since no fixed target size
// is named for them.
func resolveDimensions(q config.Quality, nativeW, nativeH int32) (width, height int32) {
	switch q {
	case config.QualityHD720p:
		return 1280, 720
	case config.QualityHD1080p:
		return 1920, 1080
	case config.QualityUHD2160:
		return 3840, 2160
	case config.QualityLow:
		return nativeW / 2, nativeH / 2
	case config.QualityMedium:
		return nativeW * 3 / 4, nativeH * 3 / 4
	default: // Auto, High
		return nativeW, nativeH
	}
}
