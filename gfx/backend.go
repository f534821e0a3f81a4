package gfx

// Opener is the shape each back-end constructor is wrapped into: vk.New
// returns a *vk.Context and gl.New takes a render-node path, so callers
// pass small closures around them. This package imports neither gfx/vk
// nor gfx/gl (that would be an import cycle back into this package); the
// compositor package wires concrete back-ends in through Open, mirroring driver.Register's
// registration idiom but without the global registry, since here there
// are exactly two back-ends and the caller always wants "try the
// preferred one, then the fallback" rather than an arbitrary list.
type Opener func() (Context, error)

// Open tries each opener in order, returning the first Context that opens
// successfully. Usage is Open(func() (Context, error) { return vk.New() },
// func() (Context, error) { return gl.New(renderNode) }) so the Vulkan
// back-end is preferred and the
// GL one is the fallback (§4.F "Preferred: Vulkan-shaped backend").
func Open(openers ...Opener) (Context, error) {
	var firstErr error
	for _, open := range openers {
		ctx, err := open()
		if err == nil {
			return ctx, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = ErrNoDevice
	}
	return nil, firstErr
}
