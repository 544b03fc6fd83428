package wedding

import (
	"vowly/internal/activity"
	"vowly/internal/activity/capture"
	"vowly/internal/platform/config"
)

// EventRSVPReceived is logged when a guest answers the invitation.
const EventRSVPReceived activity.Event = "rsvp_received"

// DefaultRegistry is the registration list for the tracked kinds.
func DefaultRegistry(cfg config.Activity) *capture.Registry {
	return capture.NewRegistry(
		capture.WithDeleteAllowList(cfg.DeleteAllowList...),
		capture.WithCustomEvents(EventRSVPReceived),
	).
		Register(KindUser,
			capture.WithEvents(activity.EventCreated, activity.EventUpdated, activity.EventDeleted),
			capture.WithIgnoredAttributes("password_hash"),
		).
		Register(KindWedding).
		Register(KindOrder).
		Register(KindGuest)
}
