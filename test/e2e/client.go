package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/landkeep/pkg/patch"
	"github.com/opd-ai/landkeep/pkg/wire"
)

// frameKindMessage and frameKindStateUpdate mirror pkg/transport's
// unexported frame-discriminator prefix, so the test client can tell a
// wire.Codec envelope apart from a patch-encoded state-update frame
// without importing the internal constants.
const (
	frameKindMessage     byte = 0
	frameKindStateUpdate byte = 1
)

// Client is an E2E test client for the land server. It speaks the raw
// WebSocket wire protocol directly (no JSON-RPC wrapper): a one-byte frame
// prefix distinguishes wire.Codec envelopes from patch-encoded state-update
// frames (pkg/transport's frameMessage/frameStateUpdate convention).
type Client struct {
	baseURL   string
	clientID  string
	codec     *wire.Codec
	wsConn    *websocket.Conn
	wsMutex   sync.Mutex
	frames    chan frame
	errs      chan error
	idCounter int
	idMu      sync.Mutex
	log       *logrus.Logger
}

type frame struct {
	kind byte
	data []byte
}

// NewClient creates an E2E test client for baseURL (an http://host:port
// server base address). Each client gets its own stable ClientID so a
// reconnect keeps its join-rate-limit bucket.
func NewClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return &Client{
		baseURL:  baseURL,
		clientID: uuid.NewString(),
		codec:    wire.NewCodec(patch.FormatJSONObject),
		frames:   make(chan frame, 64),
		errs:     make(chan error, 1),
		log:      logger,
	}
}

func (c *Client) nextRequestID() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.idCounter++
	return fmt.Sprintf("req-%d", c.idCounter)
}

// WaitForHealth polls GET /healthz until it returns 200 or timeout elapses.
func (c *Client) WaitForHealth(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	httpClient := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := httpClient.Get(c.baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within %s", timeout)
}

// Connect dials the /ws endpoint and starts the background read pump.
func (c *Client) Connect() error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("parse ws url: %w", err)
	}

	header := http.Header{}
	header.Set("X-Client-Id", c.clientID)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	c.wsConn = conn

	go c.readPump()
	return nil
}

func (c *Client) readPump() {
	for {
		_, data, err := c.wsConn.ReadMessage()
		if err != nil {
			select {
			case c.errs <- err:
			default:
			}
			return
		}
		if len(data) == 0 {
			continue
		}
		c.frames <- frame{kind: data[0], data: data[1:]}
	}
}

func (c *Client) send(data []byte) error {
	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()
	return c.wsConn.WriteMessage(websocket.TextMessage, data)
}

// Join sends a handshake join request and waits for the JoinResponse. A
// rejection is always JSON; a success is encoded in the land's configured
// format, which this client decodes with its jsonObject codec.
func (c *Client) Join(ctx context.Context, landType string, instanceID, playerID string, metadata map[string]string) (wire.JoinResponse, error) {
	req := wire.JoinRequest{RequestID: c.nextRequestID(), LandType: landType, Metadata: metadata}
	if instanceID != "" {
		req.LandInstanceID = &instanceID
	}
	if playerID != "" {
		req.PlayerID = &playerID
	}

	// The router's wire.DecodeJoinRequest unmarshals a bare JoinRequest
	// during the handshake phase, with no surrounding envelope.
	data, err := json.Marshal(req)
	if err != nil {
		return wire.JoinResponse{}, err
	}
	if err := c.send(data); err != nil {
		return wire.JoinResponse{}, err
	}

	fr, err := c.nextFrame(ctx)
	if err != nil {
		return wire.JoinResponse{}, err
	}
	if fr.kind != frameKindMessage {
		return wire.JoinResponse{}, fmt.Errorf("expected message frame for join response, got kind %d", fr.kind)
	}
	return c.codec.DecodeJoinResponse(fr.data)
}

// SendAction submits a land action and waits for its ActionResponse.
func (c *Client) SendAction(ctx context.Context, typeIdentifier string, payload []byte) (wire.ActionResponse, error) {
	req := wire.ActionRequest{RequestID: c.nextRequestID(), TypeIdentifier: typeIdentifier, Payload: payload}
	data, err := c.codec.EncodeActionRequest(req)
	if err != nil {
		return wire.ActionResponse{}, err
	}
	if err := c.send(data); err != nil {
		return wire.ActionResponse{}, err
	}

	for {
		fr, err := c.nextFrame(ctx)
		if err != nil {
			return wire.ActionResponse{}, err
		}
		if fr.kind != frameKindMessage {
			continue
		}
		resp, err := c.codec.DecodeActionResponse(fr.data)
		if err == nil {
			return resp, nil
		}
	}
}

// SendEvent submits a fire-and-forget client event; events carry no response
// envelope, so there is nothing to wait for.
func (c *Client) SendEvent(typeOrOpcode string, payload []byte) error {
	ev := wire.EventMessage{Direction: wire.DirectionFromClient, TypeOrOpcode: typeOrOpcode, Payload: payload}
	data, err := c.codec.EncodeEvent(ev)
	if err != nil {
		return err
	}
	return c.send(data)
}

// NextStateUpdate blocks until the next patch-encoded state-update frame
// arrives and decodes it with the jsonObject wire format (no PathHasher
// needed: jsonObject always carries raw string paths).
func (c *Client) NextStateUpdate(ctx context.Context) (patch.StateUpdate, error) {
	for {
		fr, err := c.nextFrame(ctx)
		if err != nil {
			return patch.StateUpdate{}, err
		}
		if fr.kind != frameKindStateUpdate {
			continue
		}
		return patch.DecodeJSONObject(fr.data)
	}
}

func (c *Client) nextFrame(ctx context.Context) (frame, error) {
	select {
	case fr := <-c.frames:
		return fr, nil
	case err := <-c.errs:
		return frame{}, err
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}
}

// Close closes the underlying WebSocket connection.
func (c *Client) Close() error {
	if c.wsConn == nil {
		return nil
	}
	return c.wsConn.Close()
}
