// Package uictl defines read-only controls a UI can poll without knowing
// what produces the values.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Levels is a control that reads a window of recent values.
type Levels[N Number] interface {
	Read() []N
}

// LevelsFunc adapts a function to Levels.
type LevelsFunc[N Number] func() []N

func (f LevelsFunc[N]) Read() []N { return f() }
