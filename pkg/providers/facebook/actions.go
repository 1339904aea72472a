package facebook

import (
	"strings"

	"github.com/storepulse/backend/pkg/models"
)

// actionLabels maps Graph API action types to the labels shown in dashboards.
// Unknown types fall through with the raw type as their label.
var actionLabels = map[string]string{
	"purchase":                             "Purchases",
	"omni_purchase":                        "Purchases",
	"offsite_conversion.fb_pixel_purchase": "Purchases",
	"link_click":                           "Link Clicks",
	"lead":                                 "Leads",
	"onsite_conversion.lead_grouped":       "Leads",
	"landing_page_view":                    "Landing Page Views",
	"add_to_cart":                          "Adds to Cart",
	"offsite_conversion.fb_pixel_add_to_cart": "Adds to Cart",
	"initiate_checkout":  "Checkouts Initiated",
	"post_engagement":    "Post Engagement",
	"page_engagement":    "Page Engagement",
	"video_view":         "Video Views",
	"post_reaction":      "Reactions",
	"comment":            "Comments",
	"onsite_conversion.messaging_conversation_started_7d": "Messaging Conversations",
}

// actionLabel resolves an action type to its display label.
func actionLabel(actionType string) string {
	if label, ok := actionLabels[actionType]; ok {
		return label
	}
	return actionType
}

// conversionTypes are the action types counted as conversions, in preference
// order.
var conversionTypes = []string{
	"purchase",
	"omni_purchase",
	"offsite_conversion.fb_pixel_purchase",
}

// primaryResult selects the single "result" metric for an entity based on its
// campaign objective. Unrecognized objectives fall back to conversions, then
// link clicks.
func primaryResult(objective string, actions []models.ActionStat) models.ActionStat {
	find := func(types ...string) (models.ActionStat, bool) {
		for _, t := range types {
			for _, a := range actions {
				if a.Type == t {
					return a, true
				}
			}
		}
		return models.ActionStat{}, false
	}

	switch strings.ToUpper(objective) {
	case "OUTCOME_SALES":
		if a, ok := find(conversionTypes...); ok {
			return a
		}
	case "OUTCOME_TRAFFIC":
		if a, ok := find("link_click"); ok {
			return a
		}
	case "OUTCOME_LEADS":
		if a, ok := find("lead", "onsite_conversion.lead_grouped"); ok {
			return a
		}
	case "OUTCOME_ENGAGEMENT":
		if a, ok := find("post_engagement", "page_engagement"); ok {
			return a
		}
	case "OUTCOME_AWARENESS":
		if a, ok := find("video_view"); ok {
			return a
		}
	}

	// Default: conversions when present, otherwise link clicks
	if a, ok := find(conversionTypes...); ok {
		return a
	}
	if a, ok := find("link_click"); ok {
		return a
	}
	return models.ActionStat{}
}
