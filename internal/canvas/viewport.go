package canvas

// SyncViewport sizes the surface's backing store to the layout box times
// the effective density, matches the viewport to it and uploads the
// resolution uniform.
func (c *Canvas) SyncViewport() error {
	if c.att == nil {
		return ErrNotActive
	}
	c.syncViewport(c.att)
	return nil
}

func (c *Canvas) syncViewport(att *attachment) {
	w, h := c.host.ClientSize()
	dpr := c.devicePixelRatio(att)
	att.surface.SetBackingSize(int(w*dpr), int(h*dpr))
	bw, bh := att.surface.DrawingBufferSize()
	att.ctx.Viewport(0, 0, int32(bw), int32(bh))
	if att.res != nil {
		att.ctx.Uniform2f(att.res.prog.uResolution, float32(bw), float32(bh))
	}
	c.log().Debug("viewport", "width", bw, "height", bh, "dpr", dpr)
}

// devicePixelRatio prefers the content's dpr override over the host's.
func (c *Canvas) devicePixelRatio(att *attachment) float64 {
	if att.dpr > 0 {
		return att.dpr
	}
	return c.host.DevicePixelRatio()
}

// PointerMove writes the pointer position, in host coordinates, to the
// mouse uniform. It does nothing without an active program.
func (c *Canvas) PointerMove(x, y float64) {
	if !c.Active() {
		return
	}
	w, h := c.host.ClientSize()
	if w <= 0 || h <= 0 {
		return
	}
	mx, my := NormalizePointer(x, y, w, h)
	c.att.ctx.Uniform2f(c.att.res.prog.uMouse, float32(mx), float32(my))
}

// NormalizePointer maps a point in a w×h box to a space centred on the box
// with y up and x scaled by the aspect ratio, so the box spans
// [-w/h/2, w/h/2] × [-0.5, 0.5].
func NormalizePointer(x, y, w, h float64) (float64, float64) {
	aspect := w / h
	return (x/w - 0.5) * aspect, 0.5 - y/h
}
