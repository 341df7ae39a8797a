package gate

// Decision is how a widget renders.
type Decision string

const (
	Render  Decision = "render"
	Hide    Decision = "hide"
	Disable Decision = "disable"
)

// Widget decides one affordance.  denied is the decision used when r is
// not met, Hide or Disable.
func (g *Gate) Widget(r Requirement, denied Decision) Decision {
	if g.Check("widget", r) {
		return Render
	}
	if denied == Disable {
		return Disable
	}
	return Hide
}

// Visible is Widget with Hide for denied widgets, reduced to a bool.
func (g *Gate) Visible(r Requirement) bool {
	return g.Widget(r, Hide) == Render
}
