package backend

import (
	"context"
	"net"
	"reflect"
	"testing"
	"time"
)

// listen opens a TCP listener on an ephemeral port and returns its port.
func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestRemoteIsRunning(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	r := NewRemote("127.0.0.1", port)
	if !r.IsRunning() {
		t.Error("IsRunning() = false with listener up")
	}

	ln.Close()
	if r.IsRunning() {
		t.Error("IsRunning() = true after listener closed")
	}
}

func TestRemoteStartWaitsForPort(t *testing.T) {
	ln, port := listen(t)
	defer ln.Close()

	r := NewRemote("", port)
	if r.Host() != "127.0.0.1" {
		t.Errorf("Host() = %q, want 127.0.0.1", r.Host())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Errorf("Start() error: %v", err)
	}
}

func TestRemoteStartTimesOut(t *testing.T) {
	// Grab a port and release it so nothing is listening there.
	ln, port := listen(t)
	ln.Close()

	r := NewRemote("127.0.0.1", port)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := r.Start(ctx); err == nil {
		t.Error("Start() should fail when nothing listens on the port")
	}
}

func TestLocalLaunchArgs(t *testing.T) {
	testCases := []struct {
		name  string
		model string
		want  []string
	}{
		{"with model", "base", []string{"server.py", "--port", "9090", "--model", "base"}},
		{"without model", "", []string{"server.py", "--port", "9090"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLocal("python3", "server.py", 9090, tc.model)
			if got := l.launchArgs(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("launchArgs() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLocalStopWithoutStart(t *testing.T) {
	l := NewLocal("", "server.py", 9090, "")
	l.Stop() // must not panic
}
