package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// workerProcess is the transport to one worker. Tests substitute an in-memory
// fake through the spawn seam below.
type workerProcess interface {
	Send(request) error
	Recv() (response, error)
	Wait() error
	Kill()
}

var spawn = startProcess

// execProcess wraps a real worker subprocess.
type execProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *json.Encoder
	scanner *bufio.Scanner
	stderr  *bytes.Buffer
}

func startProcess(ctx context.Context, command string, args []string) (workerProcess, error) {
	cmd := exec.CommandContext(ctx, command, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &execProcess{
		cmd:     cmd,
		stdin:   stdin,
		enc:     json.NewEncoder(stdin),
		scanner: scanner,
		stderr:  stderr,
	}, nil
}

func (p *execProcess) Send(req request) error {
	if err := p.enc.Encode(req); err != nil {
		return fmt.Errorf("send %s: %w", req.Type, err)
	}
	return nil
}

func (p *execProcess) Recv() (response, error) {
	for p.scanner.Scan() {
		line := bytes.TrimSpace(p.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return decodeResponse(line)
	}
	if err := p.scanner.Err(); err != nil {
		return response{}, fmt.Errorf("read worker output: %w", err)
	}
	detail := strings.TrimSpace(p.stderr.String())
	if detail != "" {
		return response{}, fmt.Errorf("worker exited: %s", truncate(detail))
	}
	return response{}, io.EOF
}

func (p *execProcess) Wait() error {
	_ = p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		detail := strings.TrimSpace(p.stderr.String())
		if detail != "" {
			return fmt.Errorf("worker exit: %w: %s", err, truncate(detail))
		}
		return fmt.Errorf("worker exit: %w", err)
	}
	return nil
}

func (p *execProcess) Kill() {
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
}
