package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJoinWorkflow tests the handshake join lifecycle against the lobby
// example land.
func TestJoinWorkflow(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	client := helper.Client()

	t.Run("join_creates_fresh_instance", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := client.Join(ctx, "lobby", "", "", map[string]string{"displayName": "TestPlayer"})
		require.NoError(t, err, "should join lobby successfully")
		require.True(t, resp.Success, "join should succeed: %s", resp.Reason)
		require.NotEmpty(t, resp.LandID)
		require.NotEmpty(t, resp.PlayerID)
	})

	t.Run("join_unknown_land_type_is_rejected", func(t *testing.T) {
		conn := NewClient(helper.Server().BaseURL())
		require.NoError(t, conn.Connect())
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := conn.Join(ctx, "no-such-land-type", "", "", nil)
		require.NoError(t, err, "join response should decode even on rejection")
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Reason)
	})
}

// TestMultipleClientsShareLandInstance verifies multiple clients joining the
// same land instance ID land in the same lobby and each gets a distinct
// player ID.
func TestMultipleClientsShareLandInstance(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	baseURL := helper.Server().BaseURL()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := NewClient(baseURL)
	require.NoError(t, first.Connect())
	defer first.Close()

	firstResp, err := first.Join(ctx, "lobby", "", "", map[string]string{"displayName": "First"})
	require.NoError(t, err)
	require.True(t, firstResp.Success)

	numClients := 3
	playerIDs := make(map[string]bool)
	playerIDs[firstResp.PlayerID] = true

	for i := 0; i < numClients; i++ {
		client := NewClient(baseURL)
		require.NoError(t, client.Connect())
		defer client.Close()

		resp, err := client.Join(ctx, "lobby", firstResp.LandID, "", map[string]string{"displayName": RandomDisplayName()})
		require.NoError(t, err, "client %d should join the shared instance", i)
		require.True(t, resp.Success, "client %d join should succeed: %s", i, resp.Reason)
		assert.Equal(t, firstResp.LandID, resp.LandID, "client %d should land in the same instance", i)
		assert.False(t, playerIDs[resp.PlayerID], "player IDs should be unique per client")
		playerIDs[resp.PlayerID] = true
	}
}
