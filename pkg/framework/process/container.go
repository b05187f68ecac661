package process

// Container is a component that owns children and drives them in order.
type Container struct {
	Component
	parts []Processor
}

// NewContainer creates a container over parts.
func NewContainer(parts ...Processor) *Container {
	c := &Container{parts: parts}
	c.Init(c, 0)
	return c
}

// Add appends a child.
func (c *Container) Add(p Processor) {
	c.parts = append(c.parts, p)
}

// Parts returns the children.
func (c *Container) Parts() []Processor { return c.parts }

// StepProcess drives every child over the step.
func (c *Container) StepProcess(startPoint, sampleCount int) {
	for _, p := range c.parts {
		p.Process(startPoint, sampleCount)
	}
}

// Reset resets every child.
func (c *Container) Reset() {
	for _, p := range c.parts {
		p.Reset()
	}
}
