package memstore

import "fmt"

// The three foundational layers. Seeded once at store initialization and
// never writable afterward through any API in this package.
const (
	LayerAxioms     = 0
	LayerPurpose    = 1
	LayerPrinciples = 2
)

// FirstOperational is the lowest layer that accepts consent-gated writes.
const FirstOperational = 3

// OperationalLayer is a layer number proven to be >= FirstOperational.
// The write path takes this type, not a bare int, so a foundational write
// is unrepresentable past the validation boundary.
type OperationalLayer struct {
	n int
}

// NewOperationalLayer validates a layer number for writing. Foundational
// layers are rejected here with the immutability error the contract
// requires.
func NewOperationalLayer(n int) (OperationalLayer, error) {
	if n < FirstOperational {
		return OperationalLayer{}, &ImmutabilityError{Layer: n}
	}
	return OperationalLayer{n: n}, nil
}

// Int returns the underlying layer number.
func (l OperationalLayer) Int() int { return l.n }

func (l OperationalLayer) String() string { return fmt.Sprintf("layer-%d", l.n) }

// Foundational reports whether a bare layer number is permanently
// immutable.
func Foundational(layer int) bool {
	return layer >= LayerAxioms && layer <= LayerPrinciples
}
