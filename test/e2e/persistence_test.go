package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecorderWritesReevaluationLog verifies that an action taken against the
// lobby land produces a reevaluation recording under the server's
// SST_RECORDER_DIR (pkg/recorder, wired via pkg/realm.SetRecorderDir).
func TestRecorderWritesReevaluationLog(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	client := helper.Client()
	helper.JoinLobby("Recorded")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": "this should be recorded"})
	require.NoError(t, err)
	_, err = client.SendAction(ctx, "sendChat", payload)
	require.NoError(t, err)

	var recordFiles []string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(helper.Server().RecorderDir())
		require.NoError(t, err)
		recordFiles = recordFiles[:0]
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".json" {
				recordFiles = append(recordFiles, e.Name())
			}
		}
		if len(recordFiles) > 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.NotEmpty(t, recordFiles, "expected at least one recording file under the recorder directory")
	assert.Contains(t, recordFiles[0], "lobby_")
}

// TestRecorderMultipleInstancesEachGetOwnFile verifies two independently
// created lobby instances each get their own recording file.
func TestRecorderMultipleInstancesEachGetOwnFile(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	baseURL := helper.Server().BaseURL()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		client := NewClient(baseURL)
		require.NoError(t, client.Connect())
		defer client.Close()

		resp, err := client.Join(ctx, "lobby", "", "", map[string]string{"displayName": "Instance"})
		require.NoError(t, err)
		require.True(t, resp.Success)

		payload, err := json.Marshal(map[string]string{"text": "hi from instance"})
		require.NoError(t, err)
		_, err = client.SendAction(ctx, "sendChat", payload)
		require.NoError(t, err)
	}

	var recordFiles []string
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(helper.Server().RecorderDir())
		require.NoError(t, err)
		recordFiles = recordFiles[:0]
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".json" {
				recordFiles = append(recordFiles, e.Name())
			}
		}
		if len(recordFiles) >= 2 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	assert.GreaterOrEqual(t, len(recordFiles), 2, "each lobby instance should get its own recording file")
}
