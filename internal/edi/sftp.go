package edi

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/dukerupert/terrazzo/internal/domain"
)

// Uploader delivers rendered documents to a vendor SFTP inbox.
type Uploader interface {
	Upload(ctx context.Context, cfg *domain.VendorEDIConfig, doc *Document) error
}

// SFTPUploader dials the vendor host per upload. Vendors are low-volume
// enough that connection pooling is not worth the session management.
type SFTPUploader struct {
	Timeout time.Duration
}

func NewSFTPUploader() *SFTPUploader {
	return &SFTPUploader{Timeout: 30 * time.Second}
}

func (u *SFTPUploader) Upload(ctx context.Context, cfg *domain.VendorEDIConfig, doc *Document) error {
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, port)

	sshCfg := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         u.Timeout,
	}
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return fmt.Errorf("edi: dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("edi: sftp session: %w", err)
	}
	defer client.Close()

	dest := path.Join(cfg.InboxDir, doc.Filename)
	f, err := client.Create(dest)
	if err != nil {
		return fmt.Errorf("edi: create %s: %w", dest, err)
	}
	if _, err := f.Write(doc.Payload); err != nil {
		f.Close()
		return fmt.Errorf("edi: write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("edi: close %s: %w", dest, err)
	}
	return nil
}

// MockUploader records uploads for tests.
type MockUploader struct {
	Uploaded []*Document
	Err      error
}

func (m *MockUploader) Upload(ctx context.Context, cfg *domain.VendorEDIConfig, doc *Document) error {
	if m.Err != nil {
		return m.Err
	}
	m.Uploaded = append(m.Uploaded, doc)
	return nil
}
