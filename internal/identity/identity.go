// Package identity manages the SSH host key of the remote console.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"featnav/internal/logging"
)

var idlog = logging.For("identity")

// Key file names under the data directory.
const (
	PrivateKeyFile = "host_ed25519.key"
	PublicKeyFile  = "host_ed25519.pub"
)

// HostKey is the console server's ED25519 keypair.
type HostKey struct {
	PrivateKey  ed25519.PrivateKey
	PublicKey   ed25519.PublicKey
	Fingerprint string // SHA256:... as printed by ssh-keygen -l
	Signer      ssh.Signer
}

// Load reads the host key from dataDir. If the key file doesn't exist, a
// new keypair is generated and persisted.
func Load(dataDir string) (*HostKey, error) {
	privPath := filepath.Join(dataDir, PrivateKeyFile)
	pubPath := filepath.Join(dataDir, PublicKeyFile)

	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading host key: %w", err)
		}
		return generate(dataDir, privPath, pubPath)
	}

	return loadFrom(privPEM)
}

func generate(dir, privPath, pubPath string) (*HostKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: pkcs8,
	})
	if err := os.WriteFile(privPath, privPEM, 0600); err != nil {
		return nil, fmt.Errorf("writing private key: %w", err)
	}

	// OpenSSH format, so operators can pin it in known_hosts
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("converting public key: %w", err)
	}
	if err := os.WriteFile(pubPath, ssh.MarshalAuthorizedKey(sshPub), 0644); err != nil {
		return nil, fmt.Errorf("writing public key: %w", err)
	}

	hk, err := fromKeyPair(priv, pub)
	if err != nil {
		return nil, err
	}
	idlog.Info("generated host key", "path", privPath, "fingerprint", hk.Fingerprint)
	return hk, nil
}

func loadFrom(privPEM []byte) (*HostKey, error) {
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in host key")
	}

	rawKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}

	priv, ok := rawKey.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("host key is not ED25519")
	}

	pub := priv.Public().(ed25519.PublicKey)
	return fromKeyPair(priv, pub)
}

func fromKeyPair(priv ed25519.PrivateKey, pub ed25519.PublicKey) (*HostKey, error) {
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("creating SSH signer: %w", err)
	}

	return &HostKey{
		PrivateKey:  priv,
		PublicKey:   pub,
		Fingerprint: ssh.FingerprintSHA256(signer.PublicKey()),
		Signer:      signer,
	}, nil
}
