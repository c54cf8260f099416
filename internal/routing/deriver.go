// Package routing derives the production path an order takes through the
// kitchen and the design studio. Plans are recomputed from the cart on every
// change and only attached to the payload at submission.
package routing

import "strings"

// Stage is one station queue or working state on the production floor.
type Stage string

const (
	StageKitchenQueue      Stage = "KITCHEN_QUEUE"
	StageKitchenProcessing Stage = "KITCHEN_PROCESSING"
	StageKitchenReady      Stage = "KITCHEN_READY"
	StageDesignQueue       Stage = "DESIGN_QUEUE"
	StageDesignProcessing  Stage = "DESIGN_PROCESSING"
	StageDesignReady       Stage = "DESIGN_READY"
	StageFinalCheckQueue   Stage = "FINAL_CHECK_QUEUE"
)

// Item carries the resolved team requirements of one cart line.
type Item struct {
	RequiresKitchen bool `json:"requiresKitchen"`
	RequiresDesign  bool `json:"requiresDesign"`
}

// ItemFor resolves an item's team flags from its category defaults, letting
// explicit product overrides win when present.
func ItemFor(category string, kitchen, design *bool) Item {
	it := categoryDefaults(category)
	if kitchen != nil {
		it.RequiresKitchen = *kitchen
	}
	if design != nil {
		it.RequiresDesign = *design
	}
	return it
}

func categoryDefaults(category string) Item {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "cakes":
		return Item{RequiresKitchen: true}
	case "flowers":
		return Item{RequiresDesign: true}
	case "sets":
		return Item{RequiresKitchen: true, RequiresDesign: true}
	default:
		return Item{}
	}
}

// Plan is the derived production path for a whole order.
type Plan struct {
	InitialQueue       Stage   `json:"initialQueue"`
	Flow               []Stage `json:"flow"`
	CurrentStep        int     `json:"currentStep"`
	Sequential         bool    `json:"sequential"`
	RequiresKitchen    bool    `json:"requiresKitchen"`
	RequiresDesign     bool    `json:"requiresDesign"`
	RequiresFinalCheck bool    `json:"requiresFinalCheck"`
	CanReturnToKitchen bool    `json:"canReturnToKitchen"`
	CanReturnToDesign  bool    `json:"canReturnToDesign"`
}

// Derive computes the production plan for the given items. A single order
// visits each needed team once; when both teams are needed the design studio
// works first and the kitchen follows. Every order ends in final check, even
// pickup-ready ones with no production work.
func Derive(items []Item) Plan {
	var kitchen, design bool
	for _, it := range items {
		kitchen = kitchen || it.RequiresKitchen
		design = design || it.RequiresDesign
	}

	plan := Plan{
		Sequential:         kitchen && design,
		RequiresKitchen:    kitchen,
		RequiresDesign:     design,
		RequiresFinalCheck: true,
		CanReturnToKitchen: kitchen,
		CanReturnToDesign:  design,
	}
	switch {
	case kitchen && design:
		plan.Flow = []Stage{
			StageDesignQueue, StageDesignProcessing, StageDesignReady,
			StageKitchenQueue, StageKitchenProcessing, StageKitchenReady,
			StageFinalCheckQueue,
		}
	case kitchen:
		plan.Flow = []Stage{
			StageKitchenQueue, StageKitchenProcessing, StageKitchenReady,
			StageFinalCheckQueue,
		}
	case design:
		plan.Flow = []Stage{
			StageDesignQueue, StageDesignProcessing, StageDesignReady,
			StageFinalCheckQueue,
		}
	default:
		plan.Flow = []Stage{StageFinalCheckQueue}
	}
	plan.InitialQueue = plan.Flow[0]
	return plan
}
