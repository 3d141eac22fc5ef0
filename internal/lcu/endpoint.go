package lcu

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLockfileNotFound means no lockfile exists at any searched path
	ErrLockfileNotFound = errors.New("lockfile not found")
	// ErrDiscoveryTimeout is returned by Discover when the client did not
	// start within the timeout
	ErrDiscoveryTimeout = errors.New("timed out waiting for league client")
)

const defaultDiscoverInterval = 2 * time.Second

// Endpoint holds the connection details the League client writes to its
// lockfile
type Endpoint struct {
	ProcessName string
	PID         int
	Port        int
	Password    string
	Protocol    string
}

// BaseURL returns the REST root of the client
func (e *Endpoint) BaseURL() string {
	protocol := e.Protocol
	if protocol == "" {
		protocol = "https"
	}
	return fmt.Sprintf("%s://127.0.0.1:%d", protocol, e.Port)
}

// WebSocketURL returns the event stream URL of the client
func (e *Endpoint) WebSocketURL() string {
	return fmt.Sprintf("wss://127.0.0.1:%d", e.Port)
}

// AuthHeader returns the basic auth header value for user riot
func (e *Endpoint) AuthHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("riot:"+e.Password))
}

// DefaultLockfilePaths returns the usual install locations of the lockfile
func DefaultLockfilePaths() []string {
	paths := []string{
		"C:/Riot Games/League of Legends/lockfile",
		"D:/Riot Games/League of Legends/lockfile",
		"C:/Program Files/Riot Games/League of Legends/lockfile",
		"C:/Program Files (x86)/Riot Games/League of Legends/lockfile",
		"/Applications/League of Legends.app/Contents/LoL/lockfile",
	}
	for _, drive := range []string{"E:", "F:", "G:"} {
		paths = append(paths, filepath.Join(drive, "Riot Games/League of Legends/lockfile"))
	}
	return paths
}

// ParseLockfile reads and parses a lockfile
func ParseLockfile(path string) (*Endpoint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLockfileNotFound
		}
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}
	return ParseLockfileContent(string(content))
}

// ParseLockfileContent parses name:pid:port:password:protocol
func ParseLockfileContent(content string) (*Endpoint, error) {
	parts := strings.Split(strings.TrimSpace(content), ":")
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid lockfile format: expected 5 parts, got %d", len(parts))
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid lockfile pid %q: %w", parts[1], err)
	}
	port, err := strconv.Atoi(parts[2])
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid lockfile port %q", parts[2])
	}
	if parts[3] == "" {
		return nil, fmt.Errorf("invalid lockfile: empty password")
	}

	return &Endpoint{
		ProcessName: parts[0],
		PID:         pid,
		Port:        port,
		Password:    parts[3],
		Protocol:    parts[4],
	}, nil
}

// DiscoverOptions controls lockfile polling
type DiscoverOptions struct {
	Paths    []string      // defaults to DefaultLockfilePaths
	Interval time.Duration // defaults to 2s
	Timeout  time.Duration // zero checks once
}

// Discover polls the candidate lockfile paths until one parses. With a zero
// Timeout the paths are checked once and ErrLockfileNotFound is returned
// when none is usable.
func Discover(ctx context.Context, opts DiscoverOptions) (*Endpoint, error) {
	paths := opts.Paths
	if len(paths) == 0 {
		paths = DefaultLockfilePaths()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultDiscoverInterval
	}

	var deadline <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, path := range paths {
			ep, err := ParseLockfile(path)
			if err == nil {
				log.Printf("[LCU] Found client on port %d (%s)", ep.Port, path)
				return ep, nil
			}
			if !errors.Is(err, ErrLockfileNotFound) {
				log.Printf("[LCU] Skipping %s: %v", path, err)
			}
		}

		if deadline == nil {
			return nil, ErrLockfileNotFound
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, ErrDiscoveryTimeout
		case <-ticker.C:
		}
	}
}
