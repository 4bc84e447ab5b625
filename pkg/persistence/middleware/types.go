// Package middleware wraps a ConfigPersister with cross-cutting behavior
// such as encryption at rest and I/O logging.
package middleware

import "github.com/aretw0/pacer/pkg/ports"

// Middleware allows wrapping a ConfigPersister to add behavior.
type Middleware func(ports.ConfigPersister) ports.ConfigPersister

// Chain applies mws so that the first one is the outermost.
func Chain(p ports.ConfigPersister, mws ...Middleware) ports.ConfigPersister {
	for i := len(mws) - 1; i >= 0; i-- {
		p = mws[i](p)
	}
	return p
}

// Unwrap returns the innermost persister below any middleware.
// Callers use it to reach optional capabilities such as ports.Watchable.
func Unwrap(p ports.ConfigPersister) ports.ConfigPersister {
	for {
		w, ok := p.(interface{ Unwrap() ports.ConfigPersister })
		if !ok {
			return p
		}
		p = w.Unwrap()
	}
}
