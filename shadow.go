package relay

import "github.com/gogpu/relay/registry"

// Handle is an opaque native resource identifier. Handles are assigned
// by the intercepted application or its display layer, never generated
// here; the runtime only shadows them.
type Handle uint64

// ContextShadow tracks a rendering context created through the hooks.
type ContextShadow struct {
	// Config identifies the framebuffer configuration the context was
	// created against.
	Config Handle

	// Share is the context this one shares object namespaces with, or
	// zero for none.
	Share Handle

	// Direct reports whether the application asked for a direct context.
	Direct bool
}

// DrawableKind discriminates the surface backing a drawable handle.
type DrawableKind int

const (
	DrawableWindow DrawableKind = iota
	DrawablePixmap
	DrawablePbuffer
)

func (k DrawableKind) String() string {
	switch k {
	case DrawableWindow:
		return "window"
	case DrawablePixmap:
		return "pixmap"
	case DrawablePbuffer:
		return "pbuffer"
	}
	return "unknown"
}

// DrawableShadow records which domain a bound drawable belongs to, so
// frame readback can find the owning shadow without probing every table.
type DrawableShadow struct {
	Kind  DrawableKind
	Owner Handle
}

// PixmapShadow tracks an off-screen pixmap's geometry.
type PixmapShadow struct {
	Width  int
	Height int
	Depth  int
}

// VisualShadow caches the attributes of a visual the application
// queried, so repeated attribute lookups never round-trip to the
// display layer.
type VisualShadow struct {
	Depth        int
	DoubleBuffer bool
	Stereo       bool
	Samples      int
}

// WindowShadow tracks an intercepted window and whether its off-screen
// backing has pixels that have not yet been read back and relayed.
type WindowShadow struct {
	Width  int
	Height int

	// Dirty is set when rendering has touched the backing since the
	// last frame handoff.
	Dirty bool
}

// PbufferShadow tracks an application-created pbuffer.
type PbufferShadow struct {
	Width  int
	Height int
}

// Domain tables. Each table is independently locked so churn in one
// domain never contends with lookups in another.
type registries struct {
	contexts  registry.Table[Handle, ContextShadow]
	drawables registry.Table[Handle, DrawableShadow]
	pixmaps   registry.Table[Handle, PixmapShadow]
	visuals   registry.Table[Handle, VisualShadow]
	windows   registry.Table[Handle, WindowShadow]
	pbuffers  registry.Table[Handle, PbufferShadow]
}

func (g *registries) clear() {
	if g.contexts.IsAllocated() {
		g.contexts.Clear()
	}
	if g.drawables.IsAllocated() {
		g.drawables.Clear()
	}
	if g.pixmaps.IsAllocated() {
		g.pixmaps.Clear()
	}
	if g.visuals.IsAllocated() {
		g.visuals.Clear()
	}
	if g.windows.IsAllocated() {
		g.windows.Clear()
	}
	if g.pbuffers.IsAllocated() {
		g.pbuffers.Clear()
	}
}

// Contexts returns the rendering-context shadow table.
func (r *Runtime) Contexts() *registry.Table[Handle, ContextShadow] { return &r.tables.contexts }

// Drawables returns the bound-drawable shadow table.
func (r *Runtime) Drawables() *registry.Table[Handle, DrawableShadow] { return &r.tables.drawables }

// Pixmaps returns the pixmap shadow table.
func (r *Runtime) Pixmaps() *registry.Table[Handle, PixmapShadow] { return &r.tables.pixmaps }

// Visuals returns the visual-attribute shadow table.
func (r *Runtime) Visuals() *registry.Table[Handle, VisualShadow] { return &r.tables.visuals }

// Windows returns the window shadow table.
func (r *Runtime) Windows() *registry.Table[Handle, WindowShadow] { return &r.tables.windows }

// Pbuffers returns the pbuffer shadow table.
func (r *Runtime) Pbuffers() *registry.Table[Handle, PbufferShadow] { return &r.tables.pbuffers }
