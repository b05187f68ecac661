// Package process implements the block-processing kernel: the component
// scheduling loop, owned output buffers and the couplers through which
// components read each other.
package process

// Kernel is the per-step entry point of a concrete component. StepProcess
// computes sampleCount samples starting at startPoint.
type Kernel interface {
	StepProcess(startPoint, sampleCount int)
}

// Starter lets a component pick the step size of the coming block.
// The default is the whole block limited by the component's maximum step.
type Starter interface {
	StartProcess(startPoint, sampleCount int) int
}

// Triggerer receives the trigger armed with SetNextTrigger.
type Triggerer interface {
	TriggerProcess(startPoint int)
}

// Finisher runs after every block.
type Finisher interface {
	FinishProcess()
}

// Resetter clears the state of a component.
type Resetter interface {
	Reset()
}

// Processor is anything a parent can drive.
type Processor interface {
	Process(startPoint, sampleCount int)
	Reset()
}

// Component runs the block loop for a concrete kernel. Embed it, call Init
// from the constructor, and implement Kernel plus any of the optional
// interfaces. The embedding type provides Reset.
type Component struct {
	kernel    Kernel
	starter   Starter
	triggerer Triggerer
	finisher  Finisher
	resetter  Resetter

	maxStep   int
	countdown int
	enabled   bool
}

// Init binds the kernel. maxStep limits the samples per StepProcess call;
// zero or less means unlimited.
func (c *Component) Init(k Kernel, maxStep int) {
	c.kernel = k
	c.starter, _ = k.(Starter)
	c.triggerer, _ = k.(Triggerer)
	c.finisher, _ = k.(Finisher)
	c.resetter, _ = k.(Resetter)
	c.maxStep = maxStep
	c.countdown = -1
	c.enabled = true
}

// MaxStep returns the step limit given to Init.
func (c *Component) MaxStep() int { return c.maxStep }

// SetNextTrigger arms a trigger samples from the current position. A
// negative value disarms it. Called from TriggerProcess with zero, the
// trigger lands at the start of the next block.
func (c *Component) SetNextTrigger(samples int) {
	if samples < 0 {
		samples = -1
	}
	c.countdown = samples
}

// NextTrigger returns the armed countdown, or -1.
func (c *Component) NextTrigger() int { return c.countdown }

// SetEnabled switches processing on or off. Either transition resets the
// component and disarms its trigger. A disabled component leaves its
// outputs untouched.
func (c *Component) SetEnabled(enabled bool) {
	if enabled == c.enabled {
		return
	}
	c.countdown = -1
	if c.resetter != nil {
		c.resetter.Reset()
	}
	c.enabled = enabled
}

// IsEnabled reports whether the component processes.
func (c *Component) IsEnabled() bool { return c.enabled }

func (c *Component) defaultStep(sampleCount int) int {
	if c.maxStep > 0 && c.maxStep < sampleCount {
		return c.maxStep
	}
	return sampleCount
}

// Process produces sampleCount samples from startPoint, in steps no larger
// than the step size, firing the armed trigger at its sample.
func (c *Component) Process(startPoint, sampleCount int) {
	if !c.enabled || sampleCount <= 0 {
		return
	}

	step := c.defaultStep(sampleCount)
	if c.starter != nil {
		step = c.starter.StartProcess(startPoint, sampleCount)
	}
	if step < 1 {
		step = 1
	}

	cur := startPoint
	remaining := sampleCount
	deferred := false
	for remaining > 0 {
		n := remaining
		fire := false
		if !deferred && c.countdown >= 0 && c.countdown < remaining {
			n = c.countdown
			fire = true
		}
		for n > 0 {
			s := min(step, n)
			c.kernel.StepProcess(cur, s)
			cur += s
			n -= s
			remaining -= s
			if !deferred && c.countdown > 0 {
				c.countdown -= s
			}
		}
		if fire {
			c.countdown = -1
			if c.triggerer != nil {
				c.triggerer.TriggerProcess(cur)
			}
			deferred = c.countdown == 0
		}
	}

	if c.finisher != nil {
		c.finisher.FinishProcess()
	}
}
