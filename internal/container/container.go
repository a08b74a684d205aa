// Package container drives the local Docker runtime for the Local
// backend: running, stopping, pausing, and readiness-polling per-branch
// PostgreSQL containers by shelling out to the `docker` CLI.
package container

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/keylty/pgbranch/internal/gitadapter"
	"github.com/keylty/pgbranch/internal/pgerrors"
)

// Status mirrors `docker inspect`'s container state.
type Status string

const (
	StatusNotFound Status = "not_found"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusStopped  Status = "stopped"
)

// RunSpec describes a container to start.
type RunSpec struct {
	Name     string
	Image    string
	DataDir  string
	Port     int
	Env      map[string]string
	User     string
	Database string
}

// Driver shells out to `docker` via a CommandRunner.
type Driver struct {
	runner gitadapter.CommandRunner
	probe  func(host string, port int) error
}

// New returns a Driver using the real ExecRunner.
func New() *Driver {
	return &Driver{runner: gitadapter.NewExecRunner(), probe: probeTCP}
}

// NewWithRunner returns a Driver using a custom CommandRunner, for tests.
func NewWithRunner(runner gitadapter.CommandRunner) *Driver {
	return &Driver{runner: runner, probe: probeTCP}
}

// SetProbe overrides the TCP-readiness probe, for tests that cannot stand
// up a real listener on the container's published port.
func (d *Driver) SetProbe(probe func(host string, port int) error) {
	d.probe = probe
}

func (d *Driver) docker(args ...string) (string, error) {
	return d.runner.Run("", "docker", args...)
}

// Run starts a new container per spec and returns its container id.
func (d *Driver) Run(spec RunSpec) (string, error) {
	args := []string{
		"run", "-d",
		"--name", spec.Name,
		"-p", fmt.Sprintf("127.0.0.1:%d:5432", spec.Port),
		"-v", spec.DataDir + ":/var/lib/postgresql/data",
	}
	for k, v := range spec.Env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, spec.Image)

	id, err := d.docker(args...)
	if err != nil {
		return "", pgerrors.ContainerFailed(spec.Name, err.Error())
	}
	return id, nil
}

// Stop stops a running container without removing it.
func (d *Driver) Stop(id string) error {
	if _, err := d.docker("stop", id); err != nil {
		return pgerrors.ContainerFailed(id, err.Error())
	}
	return nil
}

// Start restarts a stopped container.
func (d *Driver) Start(id string) error {
	if _, err := d.docker("start", id); err != nil {
		return pgerrors.ContainerFailed(id, err.Error())
	}
	return nil
}

// Remove force-removes a container. Not-found is not an error.
func (d *Driver) Remove(id string) error {
	status, err := d.Inspect(id)
	if err != nil {
		return err
	}
	if status == StatusNotFound {
		return nil
	}
	if _, err := d.docker("rm", "-f", id); err != nil {
		return pgerrors.ContainerFailed(id, err.Error())
	}
	return nil
}

// Pause briefly quiesces a running container's writes, used to take a
// consistent CoW snapshot of its data directory.
func (d *Driver) Pause(id string) error {
	if _, err := d.docker("pause", id); err != nil {
		return pgerrors.ContainerFailed(id, err.Error())
	}
	return nil
}

// Unpause resumes a paused container.
func (d *Driver) Unpause(id string) error {
	if _, err := d.docker("unpause", id); err != nil {
		return pgerrors.ContainerFailed(id, err.Error())
	}
	return nil
}

// Inspect reports the container's current status.
func (d *Driver) Inspect(id string) (Status, error) {
	out, err := d.docker("inspect", "-f", "{{.State.Status}}", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such") {
			return StatusNotFound, nil
		}
		return "", pgerrors.ContainerFailed(id, err.Error())
	}
	switch strings.TrimSpace(out) {
	case "running":
		return StatusRunning, nil
	case "paused":
		return StatusPaused, nil
	default:
		return StatusStopped, nil
	}
}

// PickPort iterates from start, probing a TCP bind on 127.0.0.1 and
// returning the first port that binds. Docker is not queried for the
// ports it publishes; a port counts as free when the bind succeeds.
func PickPort(start int) (int, error) {
	for port := start; port < 65535; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no available port found starting from %d", start)
}

// ReadinessConfig bounds the exponential backoff used while waiting for
// PostgreSQL to accept connections.
type ReadinessConfig struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
	Timeout time.Duration
}

// DefaultReadinessConfig matches the spec's bounded exponential backoff:
// start at 250ms, double each attempt, cap at 5s, deadline 30s overall.
func DefaultReadinessConfig() ReadinessConfig {
	return ReadinessConfig{
		Initial: 250 * time.Millisecond,
		Factor:  2,
		Max:     5 * time.Second,
		Timeout: 30 * time.Second,
	}
}

// WaitReady polls a TCP connect followed by `docker exec ... pg_isready`
// and a `SELECT 1` through `docker exec ... psql` until PostgreSQL
// answers the query or the deadline elapses.
func (d *Driver) WaitReady(ctx context.Context, id string, host string, port int, user, database string, cfg ReadinessConfig) error {
	deadline := time.Now().Add(cfg.Timeout)
	backoff := cfg.Initial
	var lastErr error

	for {
		if time.Now().After(deadline) {
			return pgerrors.ReadinessTimeout(id, lastErr)
		}

		if err := d.probe(host, port); err != nil {
			lastErr = err
		} else if _, err := d.docker("exec", id, "pg_isready", "-U", user, "-d", database); err != nil {
			lastErr = err
		} else if _, err := d.docker("exec", id, "psql", "-U", user, "-d", database, "-c", "SELECT 1"); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return pgerrors.ReadinessTimeout(id, ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.Factor)
		if backoff > cfg.Max {
			backoff = cfg.Max
		}
	}
}

func probeTCP(host string, port int) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		return err
	}
	return conn.Close()
}
