package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultSSHPort        = 22
	defaultConnectTimeout = 15 * time.Second
)

// SSHConfig describes how to reach a remote host
type SSHConfig struct {
	User                  string
	Host                  string
	Port                  int
	IdentityFile          string
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
	ConnectTimeout        time.Duration
	Timeout               time.Duration // Per-command limit, zero disables it
	Output                io.Writer     // Optional live copy of stdout and stderr
}

// ParseSSHTarget splits "user@host[:port]" into its parts
func ParseSSHTarget(target string) (user, host string, port int, err error) {
	target = strings.TrimSpace(target)
	user, hostPort, ok := strings.Cut(target, "@")
	if !ok || user == "" || hostPort == "" {
		return "", "", 0, fmt.Errorf("invalid ssh target %q: expected user@host[:port]", target)
	}

	host, portText, err := net.SplitHostPort(hostPort)
	if err != nil {
		// No port given
		if strings.Contains(hostPort, ":") && !strings.HasPrefix(hostPort, "[") {
			return "", "", 0, fmt.Errorf("invalid ssh target %q: %w", target, err)
		}
		return user, strings.Trim(hostPort, "[]"), defaultSSHPort, nil
	}

	port, err = strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return "", "", 0, fmt.Errorf("invalid ssh target %q: bad port %q", target, portText)
	}
	return user, host, port, nil
}

// Validate checks the configuration before any connection is attempted
func (c SSHConfig) Validate() error {
	if c.User == "" {
		return fmt.Errorf("ssh user is required")
	}
	if c.Host == "" {
		return fmt.Errorf("ssh host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("ssh port %d out of range", c.Port)
	}
	if c.IdentityFile == "" {
		return fmt.Errorf("ssh identity file is required")
	}
	if c.KnownHostsFile == "" && !c.InsecureIgnoreHostKey {
		return fmt.Errorf("ssh known_hosts file is required unless host key checking is disabled")
	}
	return nil
}

// ConnectError reports a failure to reach or authenticate with the remote host
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("ssh connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// SSHExecutor runs each command in its own session over one shared connection.
// The connection is opened on first use.
type SSHExecutor struct {
	cfg       SSHConfig
	clientCfg *ssh.ClientConfig

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHExecutor loads credentials and host keys; it does not dial
func NewSSHExecutor(cfg SSHConfig) (*SSHExecutor, error) {
	if cfg.Port == 0 {
		cfg.Port = defaultSSHPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keyBytes, err := os.ReadFile(cfg.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file %s: %w", cfg.IdentityFile, err)
	}

	var hostKeyCallback ssh.HostKeyCallback
	if cfg.InsecureIgnoreHostKey {
		// #nosec G106 - explicit operator opt-in
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &SSHExecutor{
		cfg: cfg,
		clientCfg: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         cfg.ConnectTimeout,
		},
	}, nil
}

// Address returns host:port of the remote end
func (e *SSHExecutor) Address() string {
	return net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
}

// Execute runs command in a new session on the remote host
func (e *SSHExecutor) Execute(ctx context.Context, command string) (string, error) {
	client, err := e.connect(ctx)
	if err != nil {
		return "", err
	}

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session on %s: %w", e.Address(), err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if e.cfg.Output != nil {
		session.Stdout = io.MultiWriter(&stdout, e.cfg.Output)
		session.Stderr = io.MultiWriter(&stderr, e.cfg.Output)
	}

	runCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			_ = session.Signal(ssh.SIGKILL)
			_ = session.Close()
		case <-done:
		}
	}()
	err = session.Run(command)
	close(done)

	output := strings.TrimSpace(stdout.String())
	if err == nil {
		return output, nil
	}

	if ctx.Err() != nil {
		return output, fmt.Errorf("command %q interrupted: %w", command, ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return output, &ShellCommandError{
			Command:  command,
			ExitCode: TimeoutExitCode,
			Stderr:   appendLine(stderr.String(), fmt.Sprintf("command timed out after %s", e.cfg.Timeout)),
		}
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return output, &ShellCommandError{
			Command:  command,
			ExitCode: exitErr.ExitStatus(),
			Stderr:   stderr.String(),
		}
	}
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		return output, &ShellCommandError{
			Command:  command,
			ExitCode: MissingStatusExitCode,
			Stderr:   appendLine(stderr.String(), "remote command exited without reporting a status"),
		}
	}

	return output, fmt.Errorf("failed to run %q on %s: %w", command, e.Address(), err)
}

// Close releases the underlying connection, if any
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

func (e *SSHExecutor) connect(ctx context.Context) (*ssh.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}

	addr := e.Address()
	dialer := net.Dialer{Timeout: e.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Address: addr, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, e.clientCfg)
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Address: addr, Err: fmt.Errorf("ssh handshake: %w", err)}
	}

	e.client = ssh.NewClient(sshConn, chans, reqs)
	return e.client, nil
}
