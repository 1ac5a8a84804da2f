package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier 记录所有消息，供各个服务的测试使用
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Deliver(n Notification) {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) Broadcast(level NotificationLevel, message string) {
	r.Deliver(Notification{Level: level, Message: message})
}

func (r *recordingNotifier) NotifyUser(userID string, level NotificationLevel, message string) {
	r.Deliver(Notification{UserID: userID, Level: level, Message: message})
}

func (r *recordingNotifier) levels() []NotificationLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationLevel, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Level
	}
	return out
}

func TestNotificationCenterAssignsMonotonicIDs(t *testing.T) {
	center := NewNotificationCenter()
	sink := &recordingNotifier{}
	center.AddSink(sink)

	center.Broadcast(LevelInfo, "scoreboard updated")
	center.NotifyUser("u1", LevelSuccess, "submission received")
	center.Broadcast(LevelError, "failed")

	require.Len(t, sink.sent, 3)
	assert.Equal(t, uint64(1), sink.sent[0].ID)
	assert.Equal(t, uint64(2), sink.sent[1].ID)
	assert.Equal(t, uint64(3), sink.sent[2].ID)
	assert.Equal(t, "u1", sink.sent[1].UserID)
	assert.Empty(t, sink.sent[0].UserID)
}

func TestNotificationCentersAreIndependent(t *testing.T) {
	a, b := NewNotificationCenter(), NewNotificationCenter()
	sa, sb := &recordingNotifier{}, &recordingNotifier{}
	a.AddSink(sa)
	b.AddSink(sb)

	a.Broadcast(LevelInfo, "x")
	a.Broadcast(LevelInfo, "y")
	b.Broadcast(LevelInfo, "z")

	assert.Equal(t, uint64(2), sa.sent[1].ID)
	assert.Equal(t, uint64(1), sb.sent[0].ID)
}
