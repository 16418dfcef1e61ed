package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Client struct {
	id     string
	groups map[string]bool
	ch     chan string
	done   chan struct{}
}

// Hub fans server-sent events out to connected clients and groups.
// Sends never block: a client whose buffer is full misses the event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	groups   map[string]map[string]bool // group -> clientID set
	interval time.Duration
	retryMs  int
}

func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{clients: make(map[string]*Client), groups: make(map[string]map[string]bool), interval: interval, retryMs: 5000}
}

// AddClient 注册客户端；同 id 重复连接时旧连接被关闭
func (h *Hub) AddClient(id string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[id]; ok {
		h.removeLocked(old)
	}
	c := &Client{id: id, groups: make(map[string]bool), ch: make(chan string, 64), done: make(chan struct{})}
	h.clients[id] = c
	return c
}

func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *Client) {
	close(c.done)
	for g := range c.groups {
		delete(h.groups[g], c.id)
		if len(h.groups[g]) == 0 {
			delete(h.groups, g)
		}
	}
	delete(h.clients, c.id)
}

func (h *Hub) Join(id, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	c.groups[group] = true
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]bool)
	}
	h.groups[group][id] = true
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// PublishJSON 向分组推送具名事件
func (h *Hub) PublishJSON(group, event string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := formatEvent(event, string(b))
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[group] {
		if c := h.clients[id]; c != nil {
			select {
			case c.ch <- msg:
			default:
			}
		}
	}
	return nil
}

func formatEvent(event, data string) string {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return b.String()
}

// Serve 阻塞直到客户端断开
func (h *Hub) Serve(c *gin.Context, clientID string, groups ...string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	client := h.AddClient(clientID)
	defer h.RemoveClient(client)
	for _, g := range groups {
		h.Join(clientID, g)
	}

	ping := time.NewTicker(h.interval)
	defer ping.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-client.ch:
			c.Writer.Write([]byte(msg))
			flusher.Flush()
		}
	}
}
