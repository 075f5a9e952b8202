package simulation

import "errors"

var (
	// ErrNotRunning is returned when an action or terminal transition is
	// attempted while no game is running for the user.
	ErrNotRunning = errors.New("game not running")

	// ErrNoSession is returned when no simulation state exists for the user
	// and the operation cannot fall back to defaults.
	ErrNoSession = errors.New("no active simulation session")
)
