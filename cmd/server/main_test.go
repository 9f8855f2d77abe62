package main

import (
	"errors"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const runMainEnv = "CPUDASH_RUN_MAIN"

// TestMain lets the test binary stand in for the server: when runMainEnv is
// set, the arguments after "--" are handed to main.
func TestMain(m *testing.M) {
	if os.Getenv(runMainEnv) == "1" {
		args := []string{"cpudash"}
		for i, a := range os.Args {
			if a == "--" {
				args = append(args, os.Args[i+1:]...)
				break
			}
		}
		os.Args = args
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func serverCommand(t *testing.T, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=^$", "--"}, args...)...)
	cmd.Env = append(os.Environ(), runMainEnv+"=1")
	return cmd
}

func TestPortInUseExitsNonZero(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	cmd := serverCommand(t, "-address", "127.0.0.1", "-port", strconv.Itoa(port))
	var stderr strings.Builder
	cmd.Stderr = &stderr

	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("expected non-zero exit, got %v", err)
		}
		if exitErr.ExitCode() == 0 {
			t.Error("exit code 0, want non-zero")
		}
	case <-time.After(10 * time.Second):
		cmd.Process.Kill()
		t.Fatal("server did not exit while its port was taken")
	}

	if !strings.Contains(stderr.String(), "listen on") {
		t.Errorf("stderr = %q, want bind diagnostic", stderr.String())
	}
}

func TestInvalidIntervalExitsNonZero(t *testing.T) {
	cmd := serverCommand(t, "-port", "0", "-interval", "10ms")
	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit, got %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServesMockFeedAndShutsDown(t *testing.T) {
	port := freePort(t)
	cmd := serverCommand(t, "-mock", "-port", strconv.Itoa(port))
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	defer func() {
		select {
		case <-done:
		default:
			cmd.Process.Kill()
		}
	}()

	url := "ws://127.0.0.1:" + strconv.Itoa(port) + "/realtime/cpus"
	var conn *websocket.Conn
	deadline := time.Now().Add(5 * time.Second)
	for {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			conn = c
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never accepted a connection: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "[") || !strings.HasSuffix(string(data), "]") {
		t.Errorf("message %q is not a JSON array", data)
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("server exited with %v after SIGINT, want clean exit", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not exit after SIGINT")
	}
}
