package ptydaemon

import (
	"path/filepath"
	"testing"
	"time"
)

func startTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "ptyd.sock")
	d := NewDaemon(socketPath)
	go func() {
		_ = d.Serve()
	}()
	t.Cleanup(func() { _ = d.Close() })

	client := NewClient(socketPath, "")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.ping() == nil {
			return d, socketPath
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("daemon never became ready")
	return nil, ""
}

func TestCreateAndGetStatusRunning(t *testing.T) {
	_, socketPath := startTestDaemon(t)
	client := NewClient(socketPath, "")

	id, err := client.Create(&CreateRequest{
		KildID:     "k1",
		WorkingDir: t.TempDir(),
		Command:    "/bin/sh",
		Args:       []string{"-c", "sleep 2"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty daemon session id")
	}

	status, err := client.GetSessionStatus(id)
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if status != StatusRunning {
		t.Fatalf("got status %q, want running", status)
	}

	if err := client.Destroy(id, true); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
}

func TestCreateEarlyExitDetection(t *testing.T) {
	_, socketPath := startTestDaemon(t)
	client := NewClient(socketPath, "")

	_, err := client.Create(&CreateRequest{
		KildID:     "k1",
		WorkingDir: t.TempDir(),
		Command:    "/bin/sh",
		Args:       []string{"-c", "echo boom; exit 3"},
	})
	if err == nil {
		t.Fatal("expected DaemonPtyExitedEarlyError")
	}
}

func TestGetSessionInfoUnknownID(t *testing.T) {
	_, socketPath := startTestDaemon(t)
	client := NewClient(socketPath, "")

	status, _, err := client.GetSessionInfo("does-not-exist")
	if err != nil {
		t.Fatalf("GetSessionInfo: %v", err)
	}
	if status != StatusNotFound {
		t.Fatalf("got %q, want not_found", status)
	}
}

func TestEnsureRunningAlreadyUp(t *testing.T) {
	_, socketPath := startTestDaemon(t)
	client := NewClient(socketPath, "")

	if err := client.EnsureRunning(false, time.Second); err != nil {
		t.Fatalf("EnsureRunning: %v", err)
	}
}
