// Package jsonfile persists facts as a single JSON array file that is
// rewritten in full on every save.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/moby/sys/atomicwriter"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory/migrate"
)

// Persister reads and writes a fact file. Files written by older versions
// are accepted and translated on load; saves always use the current shape.
type Persister struct {
	path   string
	vocab  *core.Vocabulary
	logger *log.Logger
	mu     sync.Mutex
}

// New creates a persister for path. A nil vocabulary uses
// core.DefaultVocabulary.
func New(path string, vocab *core.Vocabulary) *Persister {
	if vocab == nil {
		vocab = core.DefaultVocabulary()
	}
	return &Persister{
		path:   path,
		vocab:  vocab,
		logger: log.Default().WithPrefix("jsonfile"),
	}
}

// Path returns the file the persister writes.
func (p *Persister) Path() string {
	return p.path
}

// Load reads the fact file, creating an empty one when it does not exist.
func (p *Persister) Load(ctx context.Context) ([]core.Fact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Info("creating empty fact file", "path", p.path)
		return nil, p.writeLocked([]byte("[]"))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	facts, report, err := migrate.Normalize(data, p.vocab, time.Now())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.path, err)
	}
	if report.Merged > 0 || report.Skipped > 0 || report.Shapes[migrate.ShapeKeyValue] > 0 || report.Shapes[migrate.ShapeSingleObject] > 0 {
		p.logger.Info("translated legacy records",
			"path", p.path, "input", report.Input, "output", report.Output,
			"merged", report.Merged, "skipped", report.Skipped)
	}
	return facts, nil
}

// Save atomically replaces the file with facts.
func (p *Persister) Save(ctx context.Context, facts []core.Fact) error {
	data, err := migrate.Encode(facts)
	if err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeLocked(data)
}

func (p *Persister) writeLocked(data []byte) error {
	if dir := filepath.Dir(p.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := atomicwriter.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p.path, err)
	}
	return nil
}
