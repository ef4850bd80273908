package compositor

import "github.com/jgcoded/duplicast/internal/duplication"

// MoveRegions is the pair of shared-surface-coordinate rects a move-rect
// replay needs for its two-hop staging copy (spec §4.5 step B): copy
// SourceRect out to a staging texture, then copy it back into DestRect.
type MoveRegions struct {
	SourceRect duplication.Rect
	DestRect   duplication.Rect
}

// MoveRectToSharedSurface transforms one MoveRect into shared-surface
// coordinates, accounting for the monitor's rotation and its placement
// within the virtual desktop.
func MoveRectToSharedSurface(mr duplication.MoveRect, monitorBounds duplication.Rect, virtualOrigin duplication.Point, rotation duplication.Rotation, nativeW, nativeH int32) MoveRegions {
	dstDesktop := NativeToDesktopRect(mr.DestRect, rotation, nativeW, nativeH)
	srcOrigin := NativeToDesktopPoint(mr.SourcePoint, rotation, nativeW, nativeH)

	w := dstDesktop.Width()
	h := dstDesktop.Height()

	src := duplication.Rect{
		Left:   srcOrigin.X + monitorBounds.Left - virtualOrigin.X,
		Top:    srcOrigin.Y + monitorBounds.Top - virtualOrigin.Y,
		Right:  srcOrigin.X + monitorBounds.Left - virtualOrigin.X + w,
		Bottom: srcOrigin.Y + monitorBounds.Top - virtualOrigin.Y + h,
	}
	dst := duplication.Rect{
		Left:   dstDesktop.Left + monitorBounds.Left - virtualOrigin.X,
		Top:    dstDesktop.Top + monitorBounds.Top - virtualOrigin.Y,
		Right:  dstDesktop.Right + monitorBounds.Left - virtualOrigin.X,
		Bottom: dstDesktop.Bottom + monitorBounds.Top - virtualOrigin.Y,
	}

	return MoveRegions{SourceRect: src, DestRect: dst}
}
