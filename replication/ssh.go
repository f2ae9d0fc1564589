package replication

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig describes an SSH tunnel used to reach PostgreSQL.
type SSHConfig struct {
	Host               string
	Port               int
	User               string
	PrivateKey         []byte
	HostKeyFingerprint string
	Timeout            time.Duration
}

// SSHDialer opens database connections through a shared SSH client,
// connecting on first use and reconnecting after the client drops.
type SSHDialer struct {
	addr   string
	config *ssh.ClientConfig

	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDialer validates the key material and prepares a dialer. The host
// key is pinned to the configured SHA256 fingerprint.
func NewSSHDialer(cfg SSHConfig) (*SSHDialer, error) {
	if cfg.HostKeyFingerprint == "" {
		return nil, fmt.Errorf("host_key_fingerprint is required for SSH")
	}
	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing SSH private key: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SSHDialer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: FingerprintCallback(cfg.HostKeyFingerprint),
			Timeout:         timeout,
		},
	}, nil
}

// FingerprintCallback accepts only a host key with the given SHA256
// fingerprint.
func FingerprintCallback(fingerprint string) ssh.HostKeyCallback {
	return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
		if got := ssh.FingerprintSHA256(key); got != fingerprint {
			return fmt.Errorf("host key mismatch for %s: got %s, want %s", hostname, got, fingerprint)
		}
		return nil
	}
}

// DialContext matches pgconn.DialFunc.
func (d *SSHDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := d.connect()
	if err != nil {
		return nil, err
	}
	conn, err := client.DialContext(ctx, network, addr)
	if err != nil {
		d.reset(client)
		return nil, fmt.Errorf("dialing %s through SSH: %w", addr, err)
	}
	return conn, nil
}

// Close shuts down the SSH client if connected.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *SSHDialer) connect() (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}
	client, err := ssh.Dial("tcp", d.addr, d.config)
	if err != nil {
		return nil, fmt.Errorf("connecting to SSH %s: %w", d.addr, err)
	}
	d.client = client
	return client, nil
}

func (d *SSHDialer) reset(stale *ssh.Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == stale {
		_ = d.client.Close()
		d.client = nil
	}
}

// ScanHostKey connects to an SSH server and returns the host key fingerprint.
func ScanHostKey(host string, port int) (string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var fingerprint string
	cfg := &ssh.ClientConfig{
		User: "probe",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			fingerprint = ssh.FingerprintSHA256(key)
			return nil
		},
		Timeout: 5 * time.Second,
	}
	conn, err := ssh.Dial("tcp", addr, cfg)
	if conn != nil {
		conn.Close()
	}
	if fingerprint != "" {
		return fingerprint, nil
	}
	return "", fmt.Errorf("could not connect to %s: %v", addr, err)
}
