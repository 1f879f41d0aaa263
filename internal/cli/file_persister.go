package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"intelligencehub-console/pkg/session"

	"gopkg.in/yaml.v3"
)

// FilePersister keeps the CLI session in a YAML file readable only by its owner.
type FilePersister struct {
	path string
	now  func() time.Time
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path, now: time.Now}
}

func (p *FilePersister) Load(ctx context.Context) (*session.Session, error) {
	rec, err := p.Record()
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Session(), nil
}

// Record reads the raw file; nil when there is none.
func (p *FilePersister) Record() (*session.Record, error) {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var rec session.Record
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", p.path, err)
	}
	return &rec, nil
}

func (p *FilePersister) Save(ctx context.Context, s session.Session) error {
	if !s.Authenticated() {
		return p.Clear(ctx)
	}

	raw, err := yaml.Marshal(session.NewRecord(s, p.now()))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Write then rename, so a watcher never reads a half-written file.
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (p *FilePersister) Clear(ctx context.Context) error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// DefaultSessionFile is $HOME/.intelligencehub/session.yaml.
func DefaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".intelligencehub", "session.yaml")
	}
	return filepath.Join(home, ".intelligencehub", "session.yaml")
}
