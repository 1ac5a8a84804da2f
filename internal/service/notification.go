package service

import (
	"contest_leaderboard/pkg/logger"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
	LevelInfo    NotificationLevel = "info"
)

// Notification 面向用户的提示消息。UserID 为空表示广播。
type Notification struct {
	ID        uint64            `json:"id"`
	Level     NotificationLevel `json:"type"`
	Message   string            `json:"message"`
	UserID    string            `json:"-"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Notifier interface {
	Broadcast(level NotificationLevel, message string)
	NotifyUser(userID string, level NotificationLevel, message string)
}

// NotificationSink 消息的投递端，例如 websocket hub
type NotificationSink interface {
	Deliver(n Notification)
}

// NotificationCenter 为消息分配单调递增的 ID 并分发给所有投递端
type NotificationCenter struct {
	nextID atomic.Uint64

	mu    sync.RWMutex
	sinks []NotificationSink
}

func NewNotificationCenter() *NotificationCenter {
	return &NotificationCenter{}
}

func (c *NotificationCenter) AddSink(sink NotificationSink) {
	c.mu.Lock()
	c.sinks = append(c.sinks, sink)
	c.mu.Unlock()
}

func (c *NotificationCenter) Broadcast(level NotificationLevel, message string) {
	c.deliver("", level, message)
}

func (c *NotificationCenter) NotifyUser(userID string, level NotificationLevel, message string) {
	c.deliver(userID, level, message)
}

func (c *NotificationCenter) deliver(userID string, level NotificationLevel, message string) {
	n := Notification{
		ID:        c.nextID.Add(1),
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	logger.Log.Debug("notification",
		zap.Uint64("id", n.ID),
		zap.String("level", string(level)),
		zap.String("userId", userID),
		zap.String("message", message),
	)

	c.mu.RLock()
	sinks := c.sinks
	c.mu.RUnlock()
	for _, s := range sinks {
		s.Deliver(n)
	}
}
