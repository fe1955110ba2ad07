package configtree

import "github.com/goccy/go-json"

// Validator runs against a leaf's proposed new value before it is
// committed. Returning a non-nil error vetoes the update: the prior value
// is kept and the rejected write is logged at warn level with the leaf's
// path. Validators run on the tree's own mutation path and must be pure
// and fast — no I/O, no blocking, no long computation — since a slow
// validator head-of-line-blocks every other mutation in flight.
type Validator func(oldValue, newValue json.RawMessage) (json.RawMessage, error)
