// Package filestore serves file upload and download requests from one storage root.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRoot = "storage"

	MsgNoExtension     = "File has no extension"
	MsgExtensionDenied = "File extension not allowed"
	MsgInvalidName     = "Invalid file name"
	MsgCreateFailed    = "Failed to create file"
	MsgUploaded        = "File uploaded successfully"
	MsgNotFound        = "File not found"
	MsgDownloaded      = "File downloaded successfully"
)

var (
	ErrInvalidName = errors.New("filestore: invalid file name")
	ErrNoExtension = errors.New("filestore: file has no extension")
	ErrDenied      = errors.New("filestore: extension not allowed")
)

// Store keeps uploaded files flat under root.
type Store struct {
	root    string
	allowed map[string]struct{}
	log     zerolog.Logger
}

// New creates root (0755) if needed. An empty allow-list accepts every name.
// Suffixes may be given with or without the leading dot.
func New(root string, allowed []string) (*Store, error) {
	resolved := strings.TrimSpace(root)
	if resolved == "" {
		resolved = DefaultRoot
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	set := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &Store{
		root:    abs,
		allowed: set,
		log:     log.Logger.With().Str("component", "filestore").Logger(),
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Allowed lists the configured suffixes in sorted order.
func (s *Store) Allowed() []string {
	out := make([]string, 0, len(s.allowed))
	for ext := range s.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// CheckExtension applies the allow-list to the text from the last '.'.
func (s *Store) CheckExtension(name string) error {
	if len(s.allowed) == 0 {
		return nil
	}
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return ErrNoExtension
	}
	if _, ok := s.allowed[name[dot:]]; !ok {
		return fmt.Errorf("%w: %s", ErrDenied, name[dot:])
	}
	return nil
}

// Put writes content to name, replacing any previous file.
func (s *Store) Put(name string, content []byte) error {
	p, err := s.resolve(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, content, 0o644)
}

func (s *Store) Get(name string) ([]byte, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (s *Store) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Clean(filepath.Join(s.root, name))
	if !isWithin(p, s.root) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return p, nil
}

func isWithin(path string, root string) bool {
	p := filepath.Clean(path)
	r := filepath.Clean(root)
	if p == r {
		return false
	}
	return strings.HasPrefix(p, r+string(os.PathSeparator))
}

// Serve answers UploadFile and DownloadFile.
func (s *Store) Serve(peer string, req protocol.Request) protocol.Response {
	switch req.Kind {
	case protocol.KindUploadFile:
		return s.upload(peer, req)
	case protocol.KindDownloadFile:
		return s.download(peer, req)
	default:
		return protocol.Unsupported()
	}
}

func (s *Store) upload(peer string, req protocol.Request) protocol.Response {
	if err := s.CheckExtension(req.Name); err != nil {
		if errors.Is(err, ErrNoExtension) {
			return protocol.Failure(MsgNoExtension)
		}
		return protocol.Failure(MsgExtensionDenied)
	}
	if err := s.Put(req.Name, []byte(req.Payload)); err != nil {
		if errors.Is(err, ErrInvalidName) {
			return protocol.Failure(MsgInvalidName)
		}
		s.log.Warn().Err(err).Str("peer", peer).Str("file", req.Name).Msg("upload failed")
		return protocol.Failure(MsgCreateFailed)
	}
	s.log.Info().Str("peer", peer).Str("file", req.Name).Int("bytes", len(req.Payload)).Msg("file uploaded")
	return protocol.Response{OK: true, Message: MsgUploaded}
}

func (s *Store) download(peer string, req protocol.Request) protocol.Response {
	content, err := s.Get(req.Name)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			return protocol.Failure(MsgInvalidName)
		}
		return protocol.Failure(MsgNotFound)
	}
	s.log.Info().Str("peer", peer).Str("file", req.Name).Int("bytes", len(content)).Msg("file downloaded")
	return protocol.Response{OK: true, Payload: string(content), Message: MsgDownloaded}
}
