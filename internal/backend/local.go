package backend

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"sync"
)

// Local runs the WhisperLive launcher script as a child process on
// localhost and waits for its WebSocket port to come up.
type Local struct {
	python string
	script string
	model  string
	port   int

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewLocal configures a local backend. python defaults to "python3"; model
// is the backend model name passed to the launcher and may be empty.
func NewLocal(python, script string, port int, model string) *Local {
	if python == "" {
		python = "python3"
	}
	return &Local{python: python, script: script, model: model, port: port}
}

func (l *Local) Port() int { return l.port }

func (l *Local) IsRunning() bool {
	return probe("127.0.0.1", l.port)
}

// Start spawns the launcher if this manager has not done so already, then
// blocks until the port accepts connections or ctx expires. The child is
// left running; Stop tears it down.
func (l *Local) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.cmd == nil {
		cmd := exec.Command(l.python, l.launchArgs()...)
		cmd.Stdout = log.Writer()
		cmd.Stderr = log.Writer()
		if err := cmd.Start(); err != nil {
			l.mu.Unlock()
			return fmt.Errorf("failed to start backend: %w", err)
		}
		log.Printf("Backend: started %s (pid %d) on port %d", l.script, cmd.Process.Pid, l.port)
		l.cmd = cmd
	}
	l.mu.Unlock()

	return awaitPort(ctx, "127.0.0.1", l.port)
}

// Stop terminates the child process if this manager started one.
func (l *Local) Stop() {
	l.mu.Lock()
	cmd := l.cmd
	l.cmd = nil
	l.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		log.Printf("Backend: failed to kill pid %d: %v", cmd.Process.Pid, err)
	}
	_ = cmd.Wait()
}

func (l *Local) launchArgs() []string {
	args := []string{l.script, "--port", strconv.Itoa(l.port)}
	if l.model != "" {
		args = append(args, "--model", l.model)
	}
	return args
}
