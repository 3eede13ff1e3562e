// Package crypto generates the RSA host key the SSH server presents to
// connecting clients, the same on-disk layout as the teacher's
// crypto/crypto.go. The alush server is SSH-only, so the HTTPS
// self-signed certificate half of the teacher's Generate is dropped —
// DESIGN.md records the justification.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	gossh "golang.org/x/crypto/ssh"

	"github.com/alush-lang/alush"
)

// HostKey describes where an SSH host key pair lives on disk.
type HostKey struct {
	PrivKeyPath   string
	SSHPubKeyPath string
}

// Generate writes a fresh 4096-bit RSA private key to PrivKeyPath and
// its SSH authorized-keys-format public half to SSHPubKeyPath.
func (k HostKey) Generate() error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return alush.WithStack(err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if err := os.WriteFile(k.PrivKeyPath, keyPEM, 0600); err != nil {
		return alush.WithStack(err)
	}

	pub, err := gossh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return alush.WithStack(err)
	}
	if err := os.WriteFile(k.SSHPubKeyPath, gossh.MarshalAuthorizedKey(pub), 0600); err != nil {
		return alush.WithStack(err)
	}
	return nil
}

// LoadOrGenerate reads an existing private key at k.PrivKeyPath, or
// generates a new pair there (and at k.SSHPubKeyPath) if none exists
// yet, returning an SSH signer either way. This is how cmd/alush's
// `serve -ssh` subcommand gets a stable host key across restarts
// instead of a fresh ephemeral one per process (SPEC_FULL.md §3).
func (k HostKey) LoadOrGenerate() (gossh.Signer, error) {
	if _, err := os.Stat(k.PrivKeyPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, alush.WithStack(err)
		}
		if err := k.Generate(); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(k.PrivKeyPath)
	if err != nil {
		return nil, alush.WithStack(err)
	}
	signer, err := gossh.ParsePrivateKey(data)
	if err != nil {
		return nil, alush.WithStack(err)
	}
	return signer, nil
}
