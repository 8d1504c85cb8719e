package native

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// SpawnConfig describes how to launch a native host process. The binary is
// started as `Bin --host H --port P [Args...]` and must serve the HTTP wire
// protocol on that address.
type SpawnConfig struct {
	Bin          string
	Args         []string
	Host         string
	PortStart    int
	PortEnd      int
	ReadyTimeout time.Duration
	StopTimeout  time.Duration
}

const (
	defaultReadyTimeout = 30 * time.Second
	defaultStopTimeout  = 2 * time.Second
)

// Spawner supervises one native host process.
type Spawner struct {
	cfg SpawnConfig
	log zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	baseURL string
	exited  chan struct{}
	waitErr error
}

// NewSpawner validates nothing up front; Start reports configuration errors.
func NewSpawner(cfg SpawnConfig, logger *zerolog.Logger) *Spawner {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Spawner{cfg: cfg, log: lg.With().Str("component", "native_spawn").Logger()}
}

// Start launches the host and blocks until /v1/health answers, the process
// exits, the ready timeout passes or ctx is done. It returns the base URL.
func (s *Spawner) Start(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.cfg.Bin) == "" {
		return "", errors.New("native host binary is empty")
	}
	s.mu.Lock()
	if s.cmd != nil {
		base := s.baseURL
		s.mu.Unlock()
		return base, nil
	}
	s.mu.Unlock()

	host := s.cfg.Host
	var port int
	var err error
	if s.cfg.PortStart > 0 && s.cfg.PortEnd >= s.cfg.PortStart {
		port, err = pickPortInRange(host, s.cfg.PortStart, s.cfg.PortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return "", err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(port)))

	args := append([]string{"--host", host, "--port", strconv.Itoa(port)}, s.cfg.Args...)
	cmd := exec.Command(s.cfg.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start native host: %w", err)
	}
	exited := make(chan struct{})
	s.mu.Lock()
	s.cmd = cmd
	s.baseURL = baseURL
	s.exited = exited
	s.mu.Unlock()
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.waitErr = err
		s.mu.Unlock()
		close(exited)
	}()
	s.log.Info().Int("pid", cmd.Process.Pid).Str("url", baseURL).Msg("native host started")

	checker := NewHTTPModule(baseURL, HTTPOptions{ConnectTimeout: time.Second})
	defer checker.Close()
	deadline := time.NewTimer(s.cfg.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		hctx, cancel := context.WithTimeout(ctx, time.Second)
		herr := checker.Health(hctx)
		cancel()
		if herr == nil {
			s.log.Info().Int("pid", cmd.Process.Pid).Msg("native host ready")
			return baseURL, nil
		}
		select {
		case <-exited:
			s.mu.Lock()
			werr := s.waitErr
			s.cmd = nil
			s.mu.Unlock()
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			if werr == nil {
				return "", fmt.Errorf("native host exited before ready: %s", baseURL)
			}
			return "", fmt.Errorf("native host exited early: %v; stderr tail: %s", werr, tail)
		case <-deadline.C:
			_ = s.Stop()
			return "", fmt.Errorf("native host not ready in time: %s", baseURL)
		case <-ctx.Done():
			_ = s.Stop()
			return "", ctx.Err()
		case <-tick.C:
		}
	}
}

// PID returns the host's process id, or 0 when not running.
func (s *Spawner) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stop terminates the host: SIGTERM first, then kill after StopTimeout.
func (s *Spawner) Stop() error {
	s.mu.Lock()
	cmd, exited := s.cmd, s.exited
	s.cmd = nil
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(s.cfg.StopTimeout):
		_ = cmd.Process.Kill()
		<-exited
	}
	s.log.Info().Int("pid", cmd.Process.Pid).Msg("native host stopped")
	return nil
}

// spawnedModule is an HTTPModule that owns its host process.
type spawnedModule struct {
	*HTTPModule
	sp *Spawner
}

func (m spawnedModule) Close() error {
	err := m.HTTPModule.Close()
	if serr := m.sp.Stop(); err == nil {
		err = serr
	}
	return err
}

// Spawn starts a native host and returns a Module connected to it. Closing
// the module stops the process.
func Spawn(ctx context.Context, cfg SpawnConfig, opts HTTPOptions) (Module, *Spawner, error) {
	sp := NewSpawner(cfg, opts.Logger)
	base, err := sp.Start(ctx)
	if err != nil {
		return nil, nil, err
	}
	return spawnedModule{HTTPModule: NewHTTPModule(base, opts), sp: sp}, sp, nil
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
