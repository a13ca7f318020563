package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"routemap/internal/domain"
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrSlowClient   = errors.New("client send buffer full")
)

const (
	TypeLayerAdd    = "layer.add"
	TypeLayerRemove = "layer.remove"
)

// Message is the envelope for everything sent to a page
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type LayerAddPayload struct {
	Layer  *domain.LayerBundle `json:"layer"`
	Bounds *[4]float64         `json:"bounds,omitempty"` // minLat, minLon, maxLat, maxLon
}

type LayerRemovePayload struct {
	ID string `json:"id"`
}

// Client is one connected page. It is also that page's map surface: the
// layer set mirrors what the page has been told to render.
type Client struct {
	ID   string
	Send chan []byte

	done        chan struct{}
	closeOnce   sync.Once
	sendTimeout time.Duration

	mu     sync.RWMutex
	layers map[string]struct{}
}

func NewClient(id string, bufferSize int, sendTimeout time.Duration) *Client {
	return &Client{
		ID:          id,
		Send:        make(chan []byte, bufferSize),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
		layers:      make(map[string]struct{}),
	}
}

// Done is closed once the client is unregistered
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Emit queues a message for the page, waiting at most sendTimeout for room
// in the buffer.
func (c *Client) Emit(msgType string, payload any) error {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()

	select {
	case c.Send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-timer.C:
		return ErrSlowClient
	}
}

func (c *Client) AddLayer(bundle *domain.LayerBundle) error {
	payload := LayerAddPayload{Layer: bundle}
	if b, ok := bundle.Bound(); ok {
		payload.Bounds = &[4]float64{b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()}
	}

	if err := c.Emit(TypeLayerAdd, payload); err != nil {
		return err
	}

	c.mu.Lock()
	c.layers[bundle.ID] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *Client) RemoveLayer(layerID string) {
	c.mu.Lock()
	_, ok := c.layers[layerID]
	delete(c.layers, layerID)
	c.mu.Unlock()

	if !ok {
		return
	}
	// A page that missed a removal no longer matches its layer set. Drop it;
	// it reconnects and starts from a fresh snapshot.
	if err := c.Emit(TypeLayerRemove, LayerRemovePayload{ID: layerID}); err != nil {
		c.close()
	}
}

func (c *Client) HasLayer(layerID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.layers[layerID]
	return ok
}

func (c *Client) LayerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.layers)
}
