package host

import "shadercanvas/internal/gfx"

// contextKinds lists the gfx kinds a context of the given version can
// serve, preferred first.
func contextKinds(major, minor int) []string {
	switch {
	case major > 4 || (major == 4 && minor >= 1):
		return []string{gfx.KindCore41, gfx.KindCore33}
	case major == 4 || (major == 3 && minor >= 3):
		return []string{gfx.KindCore33}
	}
	return nil
}

// density picks the pixel ratio: a positive override wins, then the
// monitor content scale, then 1.
func density(override float64, scaleX, scaleY float32) float64 {
	if override > 0 {
		return override
	}
	if s := float64(max(scaleX, scaleY)); s > 0 {
		return s
	}
	return 1
}

// backingSize decides where a canvas draws. A requested size matching the
// window framebuffer, or an empty one, draws to the window directly;
// anything else is drawn offscreen at the requested size, clamped to limit
// when limit is positive.
func backingSize(requested, framebuffer [2]int, limit int) ([2]int, bool) {
	if requested[0] <= 0 || requested[1] <= 0 || requested == framebuffer {
		return framebuffer, false
	}
	size := requested
	if limit > 0 {
		size[0], size[1] = min(size[0], limit), min(size[1], limit)
	}
	return size, true
}
