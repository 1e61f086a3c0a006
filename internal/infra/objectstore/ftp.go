package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// ErrInvalidName is returned for object names that would escape the bucket.
var ErrInvalidName = errors.New("invalid object name")

// FTPStore uploads chat media to an FTP server fronted by a public HTTP base URL.
type FTPStore struct {
	addr     string
	user     string
	password string
	dir      string
	baseURL  string
	timeout  time.Duration

	mu   sync.Mutex
	conn *ftp.ServerConn
}

func NewFTPStore(host, port, user, password, dir, baseURL string) *FTPStore {
	return &FTPStore{
		addr:     host + ":" + port,
		user:     user,
		password: password,
		dir:      strings.Trim(dir, "/"),
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  10 * time.Second,
	}
}

// Upload stores r under name. A failed transfer drops the connection so the
// next upload dials again.
func (s *FTPStore) Upload(ctx context.Context, name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(); err != nil {
		return err
	}
	if err := s.conn.Stor(s.remotePath(name), r); err != nil {
		_ = s.conn.Quit()
		s.conn = nil
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

func (s *FTPStore) PublicURL(name string) string {
	return s.baseURL + "/" + s.remotePath(name)
}

// Close closes the FTP connection.
func (s *FTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Quit()
	s.conn = nil
	return err
}

func (s *FTPStore) connectLocked() error {
	if s.conn != nil {
		return nil
	}
	conn, err := ftp.Dial(s.addr, ftp.DialWithTimeout(s.timeout))
	if err != nil {
		return fmt.Errorf("failed to connect to FTP: %w", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		_ = conn.Quit()
		return fmt.Errorf("failed to login to FTP: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *FTPStore) remotePath(name string) string {
	if s.dir == "" {
		return name
	}
	return path.Join(s.dir, name)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
