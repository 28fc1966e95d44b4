package viewport

const (
	// ButtonZoomStep is the multiplier applied by ZoomIn and ZoomOut.
	ButtonZoomStep = 1.5

	// WheelZoomStep is the multiplier applied per wheel event.
	WheelZoomStep = 1.2
)

// ChangeListener is notified with the new state after every mutation made
// through a Controller.
type ChangeListener func(Snapshot)

// Controller applies zoom and pan commands to a State.
//
// Every command is total: inputs are numeric and clamping absorbs
// out-of-range results, so no command returns an error.
type Controller struct {
	state     *State
	listeners []ChangeListener
}

// NewController creates a Controller that mutates state.
func NewController(state *State) *Controller {
	return &Controller{state: state}
}

// State returns the controlled state.
func (c *Controller) State() *State {
	return c.state
}

// OnChange registers a listener called after every command.
func (c *Controller) OnChange(listener ChangeListener) {
	c.listeners = append(c.listeners, listener)
}

// ZoomIn multiplies the zoom by ButtonZoomStep.
func (c *Controller) ZoomIn() {
	c.state.SetZoom(c.state.ZoomPercent() * ButtonZoomStep)
	c.notify()
}

// ZoomOut divides the zoom by ButtonZoomStep.
func (c *Controller) ZoomOut() {
	c.state.SetZoom(c.state.ZoomPercent() / ButtonZoomStep)
	c.notify()
}

// Reset restores 100% zoom and a zero pan offset.
func (c *Controller) Reset() {
	c.state.SetZoom(DefaultZoomPercent)
	c.state.SetPan(Point{})
	c.notify()
}

// FitToFrame chooses the zoom at which the image's dimension that is longer
// relative to the container exactly fills the container, and clears the pan.
//
// If the image is relatively wider than the container (or equally
// proportioned) it is fitted by width, otherwise by height. With no image
// loaded, or an empty container, the zoom is left unchanged.
func (c *Controller) FitToFrame(container, native Size) {
	if native.IsZero() || container.IsZero() {
		return
	}

	imageAspect := native.Width / native.Height
	containerAspect := container.Width / container.Height

	zoom := container.Height / native.Height * 100
	if imageAspect >= containerAspect {
		zoom = container.Width / native.Width * 100
	}

	c.state.SetZoom(zoom)
	c.state.SetPan(Point{})
	c.notify()
}

// WheelZoom zooms in by WheelZoomStep for a negative deltaY and out for a
// positive one. A zero delta changes nothing.
//
// The return value is always true: the wheel event has been consumed and the
// input source must suppress the platform's default scroll behaviour.
func (c *Controller) WheelZoom(deltaY float64) bool {
	switch {
	case deltaY < 0:
		c.state.SetZoom(c.state.ZoomPercent() * WheelZoomStep)
	case deltaY > 0:
		c.state.SetZoom(c.state.ZoomPercent() / WheelZoomStep)
	default:
		return true
	}
	c.notify()
	return true
}

// PanBy translates the pan offset by (dx, dy) display pixels.
func (c *Controller) PanBy(dx, dy float64) {
	pan := c.state.Pan()
	c.state.SetPan(Point{X: pan.X + dx, Y: pan.Y + dy})
	c.notify()
}

func (c *Controller) notify() {
	if len(c.listeners) == 0 {
		return
	}
	snap := c.state.Snapshot()
	for _, l := range c.listeners {
		l(snap)
	}
}
