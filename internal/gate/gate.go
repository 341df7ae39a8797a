// Package gate turns oracle answers into access decisions for routes, menus
// and buttons.  It holds no state of its own; every decision reads the
// session at call time.
//
// Gating here is advisory.  The backend authorizes every request it serves.
package gate

import (
	"github.com/rs/zerolog"

	"github.com/iliyamo/rental-portal/internal/metrics"
	"github.com/iliyamo/rental-portal/internal/model"
)

// Oracle is the read side of the session store.
type Oracle interface {
	Authenticated() bool
	UserType() model.UserType
	HasPermission(module, action string) bool
}

// Requirement is what a protected surface declares.  Zero fields are not
// checked; a zero Requirement only needs a session.
type Requirement struct {
	Module    string
	Action    string
	UserTypes []model.UserType
}

// Perm is shorthand for a module/action requirement.
func Perm(module, action string) Requirement {
	return Requirement{Module: module, Action: action}
}

// Types is shorthand for a user type requirement.
func Types(types ...model.UserType) Requirement {
	return Requirement{UserTypes: types}
}

// Allows evaluates r against the current session.
func (r Requirement) Allows(o Oracle) bool {
	if !o.Authenticated() {
		return false
	}
	if len(r.UserTypes) > 0 {
		ut := o.UserType()
		found := false
		for _, t := range r.UserTypes {
			if t == ut {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch {
	case r.Module != "" && r.Action != "":
		return o.HasPermission(r.Module, r.Action)
	case r.Module != "" || r.Action != "":
		// half a permission is a broken declaration, never an open one
		return false
	}
	return true
}

// Gate binds an oracle to the portal's redirect targets.
type Gate struct {
	oracle     Oracle
	loginPath  string
	deniedPath string
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// New returns a Gate.  Unauthenticated browsers are sent to loginPath,
// authenticated ones lacking access to deniedPath.
func New(o Oracle, loginPath, deniedPath string, m *metrics.Metrics, log zerolog.Logger) *Gate {
	return &Gate{oracle: o, loginPath: loginPath, deniedPath: deniedPath, metrics: m, log: log}
}

// Oracle returns the oracle the gate reads.
func (g *Gate) Oracle() Oracle { return g.oracle }

// Check evaluates r and records the decision under surface.
func (g *Gate) Check(surface string, r Requirement) bool {
	ok := r.Allows(g.oracle)
	g.metrics.GateDecision(surface, ok)
	return ok
}
