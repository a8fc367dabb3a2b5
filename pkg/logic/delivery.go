package logic

import (
	"fmt"

	model "gossip-sim/pkg/datamodel"
)

// a pending transmission tx -> rx; Weight is the delivery ratio of the link
type Link struct {
	From   int64
	To     int64
	Weight float64
}

// DeliveryModel decides whether a pending transmission is received.  The model
// is chosen once per run from the link mode of the topology.
type DeliveryModel interface {
	Deliver(link Link, pt Point, rng *model.Rand) bool
	Name() string
}

// synthetic graphs: a transmission succeeds with the bond probability
type BondDelivery struct{}

func (BondDelivery) Deliver(link Link, pt Point, rng *model.Rand) bool {
	return rng.Float64() < pt.Pb
}

func (BondDelivery) Name() string { return "pb" }

// measured topologies without loss (modes uu and du)
type LosslessDelivery struct {
	Directed bool
}

func (LosslessDelivery) Deliver(link Link, pt Point, rng *model.Rand) bool {
	return true
}

func (d LosslessDelivery) Name() string {
	if d.Directed {
		return "du"
	}
	return "uu"
}

// measured topologies where the link weight is the delivery probability (mode dw)
type WeightedDelivery struct{}

func (WeightedDelivery) Deliver(link Link, pt Point, rng *model.Rand) bool {
	return rng.Float64() < link.Weight
}

func (WeightedDelivery) Name() string { return "dw" }

// returns the delivery model of a link mode; the empty mode means synthetic graphs
func GetDelivery(mode string) (DeliveryModel, error) {
	switch mode {
	case "", "pb":
		return BondDelivery{}, nil
	case "uu":
		return LosslessDelivery{}, nil
	case "du":
		return LosslessDelivery{Directed: true}, nil
	case "dw":
		return WeightedDelivery{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDelivery, mode)
}
