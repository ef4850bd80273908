//go:build windows

package duplication

import "github.com/jgcoded/duplicast/internal/gpucore"

// MonitorsFromAdapter converts gpucore's adapter-scoped output list into
// this package's Monitor type, translating DXGI's rotation enum and RECT
// into the platform-independent shapes the compositor and recorder work
// with.
func MonitorsFromAdapter(adapterDevice uintptr, adapterName string) ([]Monitor, error) {
	gm, err := gpucore.EnumerateMonitors(adapterDevice, adapterName)
	if err != nil {
		return nil, err
	}
	out := make([]Monitor, len(gm))
	for i, m := range gm {
		out[i] = Monitor{
			AdapterName: m.AdapterName,
			OutputName:  m.OutputName,
			OutputIndex: m.OutputIndex,
			Name:        m.OutputName,
			Rotation:    Rotation(m.Rotation),
			Bounds:      Rect{Left: m.Left, Top: m.Top, Right: m.Right, Bottom: m.Bottom},
		}
	}
	return out, nil
}
