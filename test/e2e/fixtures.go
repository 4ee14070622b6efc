package e2e

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixtures provides test data and helper functions for E2E tests against
// the lobby example land.

// DisplayNames provides sample display names for testing.
var DisplayNames = []string{
	"Aldric", "Brianna", "Cedric", "Diana", "Eldrin", "Fiona", "Gareth", "Helena",
}

// RandomDisplayName returns a random display name.
func RandomDisplayName() string {
	return DisplayNames[rand.Intn(len(DisplayNames))]
}

// ErrorContains asserts that an error contains a specific message.
func ErrorContains(t *testing.T, err error, contains string) {
	require.Error(t, err, "expected an error")
	assert.Contains(t, err.Error(), contains, fmt.Sprintf("error should contain '%s'", contains))
}

// WaitForServerStart waits for server to start and returns a client.
func WaitForServerStart(t *testing.T, server *TestServer) *Client {
	client := NewClient(server.BaseURL())
	err := client.WaitForHealth(30 * time.Second)
	require.NoError(t, err, "server should be healthy")
	return client
}

// TestHelper provides common test setup and teardown.
type TestHelper struct {
	t      *testing.T
	server *TestServer
	client *Client
}

// NewTestHelper creates a new test helper: starts a real server process and
// connects one client to it.
func NewTestHelper(t *testing.T) *TestHelper {
	server, err := NewTestServer()
	require.NoError(t, err, "should create test server")

	err = server.Start()
	require.NoError(t, err, "should start test server")

	client := NewClient(server.BaseURL())
	err = client.Connect()
	require.NoError(t, err, "should connect websocket client")

	return &TestHelper{t: t, server: server, client: client}
}

// Cleanup cleans up test resources.
func (th *TestHelper) Cleanup() {
	if th.client != nil {
		th.client.Close()
	}
	if th.server != nil {
		th.server.Stop()
	}
}

// Server returns the test server.
func (th *TestHelper) Server() *TestServer {
	return th.server
}

// Client returns the test client.
func (th *TestHelper) Client() *Client {
	return th.client
}

// JoinLobby joins th's client into a fresh lobby instance, asserting the
// join succeeded, and returns the assigned land ID.
func (th *TestHelper) JoinLobby(displayName string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := th.client.Join(ctx, "lobby", "", "", map[string]string{"displayName": displayName})
	require.NoError(th.t, err, "should join lobby successfully")
	require.True(th.t, resp.Success, "join should succeed: %s", resp.Reason)
	require.NotEmpty(th.t, resp.LandID, "join response should carry a land id")
	return resp.LandID
}
