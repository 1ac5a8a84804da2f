package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/pkg/logger"
	"contest_leaderboard/pkg/monitoring"
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 16
	sendBuffer     = 64
)

// 推送给浏览器的消息类型
const (
	MsgScoreboard = "SCOREBOARD"
	MsgTasks      = "TASKS"
	MsgToast      = "TOAST"
	// 客户端请求立即刷新
	MsgRefresh = "REFRESH"
)

var (
	// 内存复用 (sync.Pool)
	messagePool = sync.Pool{
		New: func() interface{} {
			return &WSMessage{}
		},
	}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HubState 新连接建立时推送的当前状态
type HubState interface {
	Snapshot() *model.ScoreboardSnapshot
	Tasks() model.TaskBoard
}

type Client struct {
	Hub     *ScoreboardHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  string
	Limiter *rate.Limiter // 限流器
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.String("userId", c.UserID))
			}
			break
		}

		// 每个连接每秒最多处理 1 次刷新请求，允许突发 3 次
		if !c.Limiter.Allow() {
			continue
		}

		wsMsg := messagePool.Get().(*WSMessage)
		wsMsg.Type, wsMsg.Data = "", nil
		if err := json.Unmarshal(message, wsMsg); err == nil && wsMsg.Type == MsgRefresh && c.Hub.onRefresh != nil {
			c.Hub.onRefresh()
		}
		messagePool.Put(wsMsg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

// ScoreboardHub 把排行榜快照、任务视图和提示消息推送给所有浏览器连接。
// 同一用户可以有多个连接。
type ScoreboardHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	state      HubState
	onRefresh  func()

	// 已广播的最新快照版本，旧版本不再下发
	boardMu     sync.Mutex
	lastVersion uint64
}

func NewScoreboardHub(state HubState, onRefresh func()) *ScoreboardHub {
	h := &ScoreboardHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		state:      state,
		onRefresh:  onRefresh,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[*Client]struct{}),
		}
	}
	return h
}

func (h *ScoreboardHub) getShard(userID string) *shard {
	hash := fnv.New32a()
	hash.Write([]byte(userID))
	return h.shards[hash.Sum32()%shardCount]
}

// Run 处理连接注册与注销，ctx 结束时关闭所有连接
func (h *ScoreboardHub) Run(ctx context.Context) {
	defer h.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			s.clients[client] = struct{}{}
			s.mu.Unlock()
			monitoring.WSOnlineClients.Inc()
			h.sendInitialState(client)

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.Send)
				monitoring.WSOnlineClients.Dec()
			}
			s.mu.Unlock()
		}
	}
}

func (h *ScoreboardHub) sendInitialState(client *Client) {
	if h.state == nil {
		return
	}
	msgs := []WSMessage{
		{Type: MsgScoreboard, Data: h.state.Snapshot()},
		{Type: MsgTasks, Data: h.state.Tasks()},
	}
	s := h.getShard(client.UserID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	for _, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			logger.Log.Error("Failed to encode ws message", zap.String("type", msg.Type), zap.Error(err))
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// Stop 关闭所有连接
func (h *ScoreboardHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		closed := 0
		for i := 0; i < shardCount; i++ {
			s := h.shards[i]
			s.mu.Lock()
			for client := range s.clients {
				close(client.Send)
				delete(s.clients, client)
				closed++
			}
			s.mu.Unlock()
		}

		monitoring.WSOnlineClients.Set(0)
		logger.Log.Info("ScoreboardHub stopped", zap.Int("closedConnections", closed))
	})
}

// PublishScoreboard 广播新的排行榜快照，版本号不大于已广播版本的快照被忽略
func (h *ScoreboardHub) PublishScoreboard(snap *model.ScoreboardSnapshot) {
	if snap == nil {
		return
	}
	h.boardMu.Lock()
	defer h.boardMu.Unlock()
	if snap.Version <= h.lastVersion {
		logger.Log.Debug("Skipping stale scoreboard", zap.Uint64("version", snap.Version), zap.Uint64("last", h.lastVersion))
		return
	}
	h.lastVersion = snap.Version
	h.push("", WSMessage{Type: MsgScoreboard, Data: snap})
}

// PublishTasks 广播任务视图
func (h *ScoreboardHub) PublishTasks(board model.TaskBoard) {
	h.push("", WSMessage{Type: MsgTasks, Data: board})
}

// Deliver 推送提示消息，UserID 为空时广播
func (h *ScoreboardHub) Deliver(n Notification) {
	h.push(n.UserID, WSMessage{Type: MsgToast, Data: n})
}

// OnlineClients 当前连接数
func (h *ScoreboardHub) OnlineClients() int {
	total := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		total += len(s.clients)
		s.mu.RUnlock()
	}
	return total
}

func (h *ScoreboardHub) push(userID string, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("Failed to encode ws message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	if userID == "" {
		for i := 0; i < shardCount; i++ {
			h.pushShard(h.shards[i], "", payload)
		}
		return
	}
	h.pushShard(h.getShard(userID), userID, payload)
}

// 发送缓冲已满的慢连接直接丢弃消息，后续快照会覆盖
func (h *ScoreboardHub) pushShard(s *shard, userID string, payload []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if userID != "" && client.UserID != userID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func ServeWs(hub *ScoreboardHub, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.String("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(1), 3),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
