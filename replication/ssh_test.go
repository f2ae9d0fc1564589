package replication_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"testing"

	"github.com/deevus/pgrepl-tui/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func testHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestFingerprintCallback(t *testing.T) {
	key := testHostKey(t)
	other := testHostKey(t)

	cb := replication.FingerprintCallback(ssh.FingerprintSHA256(key))
	assert.NoError(t, cb("db.local:22", nil, key))

	err := cb("db.local:22", nil, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key mismatch")
}

func TestNewSSHDialer_RequiresFingerprint(t *testing.T) {
	_, err := replication.NewSSHDialer(replication.SSHConfig{Host: "db.local", Port: 22})
	require.Error(t, err)
}

func TestNewSSHDialer_InvalidKey(t *testing.T) {
	_, err := replication.NewSSHDialer(replication.SSHConfig{
		Host:               "db.local",
		Port:               22,
		PrivateKey:         []byte("not a key"),
		HostKeyFingerprint: "SHA256:abc",
	})
	require.Error(t, err)
}

func TestSSHDialer_CloseWithoutConnect(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	d, err := replication.NewSSHDialer(replication.SSHConfig{
		Host:               "db.local",
		Port:               22,
		User:               "postgres",
		PrivateKey:         pemEncode(block),
		HostKeyFingerprint: "SHA256:abc",
	})
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}

func pemEncode(block *pem.Block) []byte {
	return pem.EncodeToMemory(block)
}
