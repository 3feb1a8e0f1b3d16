package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Guard describes how Call reacts to a producer that does not return normally.
type Guard struct {
	// OnGoexit is called when the guarded function calls runtime.Goexit.
	// The calling goroutine terminates right after OnGoexit returns.
	OnGoexit func()
}

// Call runs f with a double defer sandwich.
// If f returns normally, its results are returned as they are.
// If f panics, the zero value and the recovered panic as *panics.ErrRecovered are returned.
// If f calls runtime.Goexit, g.OnGoexit is called and Call never returns.
func Call[V any](g Guard, f func() (V, error)) (value V, err error) {
	var (
		normalReturn bool
		recovered    bool
		panicValue   panics.Recovered
	)
	defer func() {
		switch {
		case normalReturn:
			return
		case recovered:
			var zero V
			value, err = zero, panicValue.AsError()
		default:
			if g.OnGoexit != nil {
				g.OnGoexit()
			}
		}
	}()
	func() {
		defer func() {
			panicValue = panics.NewRecovered(2, recover())
		}()
		value, err = f()
		normalReturn = true
	}()
	if !normalReturn {
		recovered = true
	}
	return
}
