package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vowly/internal/activity"
)

func TestRegistryLogs(t *testing.T) {
	r := NewRegistry(WithDeleteAllowList("Wedding", " order ")).
		Register("wedding").
		Register("order").
		Register("guest").
		Register("user", WithEvents(activity.EventCreated, activity.EventUpdated))

	assert.True(t, r.Logs("wedding", activity.EventCreated))
	assert.True(t, r.Logs("WEDDING", activity.EventUpdated))
	assert.True(t, r.Logs("wedding", activity.EventDeleted))
	assert.True(t, r.Logs("order", activity.EventDeleted))
	assert.False(t, r.Logs("guest", activity.EventDeleted), "not on the allow-list")
	assert.False(t, r.Logs("invoice", activity.EventCreated), "not registered")

	assert.True(t, r.Logs("wedding", activity.EventPublished))
	assert.False(t, r.Logs("user", activity.EventPublished), "narrowed by WithEvents")
	assert.False(t, r.Logs("wedding", "archived"), "unknown event")

	assert.Equal(t, []string{"guest", "order", "user", "wedding"}, r.Kinds())
}

func TestRegistryDeleteNeedsKindEvent(t *testing.T) {
	r := NewRegistry(WithDeleteAllowList("user")).
		Register("user", WithEvents(activity.EventCreated))

	assert.False(t, r.Logs("user", activity.EventDeleted))
}
