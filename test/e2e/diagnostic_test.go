package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestServerStartup is a diagnostic test to verify the server process can
// start and answer its health check.
func TestServerStartup(t *testing.T) {
	server, err := NewTestServer()
	require.NoError(t, err, "should create test server")

	err = server.Start()
	if err != nil {
		logs, _ := server.GetLogContents()
		t.Logf("server logs:\n%s", logs)
		t.Fatalf("failed to start server: %v", err)
	}
	defer server.Stop()

	client := NewClient(server.BaseURL())
	err = client.WaitForHealth(5 * time.Second)
	if err != nil {
		logs, _ := server.GetLogContents()
		t.Logf("health check failed. server logs:\n%s", logs)
		t.Fatalf("health check failed: %v", err)
	}

	t.Log("server started successfully and is healthy")
}
