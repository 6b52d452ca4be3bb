package compatibility

import "github.com/ovaphlow/pitchfork/service-haven-core/internal/subscription"

// Action is something a viewer can do from a match card.
type Action string

const (
	ActionLike          Action = "like"
	ActionNudge         Action = "nudge"
	ActionViewProfile   Action = "view_profile"
	ActionViewDetails   Action = "view_details"
	ActionUpgradePrompt Action = "upgrade_prompt"
)

// Actions lists the match-card actions the entitlements allow, in display
// order. Viewers who cannot initiate contact get the limited details view
// and an upgrade prompt.
func Actions(e subscription.Entitlements) []Action {
	var out []Action
	if e.CanLike {
		out = append(out, ActionLike)
	}
	if e.CanNudge {
		out = append(out, ActionNudge)
	}
	if e.CanViewFullProfile {
		out = append(out, ActionViewProfile)
	} else {
		out = append(out, ActionViewDetails)
	}
	if !e.CanLike {
		out = append(out, ActionUpgradePrompt)
	}
	return out
}

// Presentation is what the discovery layer renders for one candidate.
type Presentation struct {
	Classification
	Actions []Action `json:"actions"`
}

// Present classifies score and attaches the actions allowed by e.
func Present(score int, e subscription.Entitlements) (Presentation, error) {
	c, err := Classify(score)
	if err != nil {
		return Presentation{}, err
	}
	return Presentation{Classification: c, Actions: Actions(e)}, nil
}
