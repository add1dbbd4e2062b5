package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docketly/docketly-api/models"
)

func TestBus_PublishReachesAllSubscribersInOrder(t *testing.T) {
	b := NewBus()

	var got []string
	b.Subscribe(func(models.CollabEvent) { got = append(got, "a") })
	b.Subscribe(func(models.CollabEvent) { got = append(got, "b") })
	b.Subscribe(func(models.CollabEvent) { got = append(got, "c") })

	b.Publish(models.CollabEvent{Type: models.CollabCursorMove})

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBus_SelfUnsubscribeDoesNotAffectSameRound(t *testing.T) {
	b := NewBus()

	var aCount, bCount int
	var unsubA func()
	unsubA = b.Subscribe(func(models.CollabEvent) {
		aCount++
		unsubA()
	})
	b.Subscribe(func(models.CollabEvent) { bCount++ })

	b.Publish(models.CollabEvent{Type: models.CollabTextChange})

	// A unsubscribed itself mid-round; B still got the same event
	assert.Equal(t, 1, aCount)
	assert.Equal(t, 1, bCount)

	b.Publish(models.CollabEvent{Type: models.CollabTextChange})
	assert.Equal(t, 1, aCount)
	assert.Equal(t, 2, bCount)
}

func TestBus_UnsubscribeRemovesOnlyItsOwnRegistration(t *testing.T) {
	b := NewBus()

	var aCount, bCount int
	unsubA := b.Subscribe(func(models.CollabEvent) { aCount++ })
	b.Subscribe(func(models.CollabEvent) { bCount++ })

	unsubA()
	unsubA() // second call is a no-op

	b.Publish(models.CollabEvent{Type: models.CollabUserJoined})

	assert.Equal(t, 0, aCount)
	assert.Equal(t, 1, bCount)
	assert.Equal(t, 1, b.Len())
}
