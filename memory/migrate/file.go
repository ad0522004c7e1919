package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/becomeliminal/nim-memory/core"
)

// MigrateFile rewrites the fact file at path in the current shape. The
// original bytes are first copied to <name>.backup.<unix-ms><ext> in the
// same directory.
func MigrateFile(path string, vocab *core.Vocabulary, now time.Time) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", path, err)
	}

	facts, report, err := Normalize(data, vocab, now)
	if err != nil {
		return report, fmt.Errorf("normalize %s: %w", path, err)
	}

	backup := BackupPath(path, now)
	if err := atomicwriter.WriteFile(backup, data, 0o644); err != nil {
		return report, fmt.Errorf("write backup: %w", err)
	}
	report.BackupPath = backup

	out, err := Encode(facts)
	if err != nil {
		return report, fmt.Errorf("encode facts: %w", err)
	}
	if err := atomicwriter.WriteFile(path, out, 0o644); err != nil {
		return report, fmt.Errorf("write %s: %w", path, err)
	}

	logger.Info("migrated fact file",
		"path", path, "input", report.Input, "output", report.Output,
		"merged", report.Merged, "skipped", report.Skipped, "backup", backup)
	return report, nil
}

// BackupPath names the backup written before a migration at now.
func BackupPath(path string, now time.Time) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	name := stem + ".backup." + strconv.FormatInt(now.UnixMilli(), 10) + ext
	return filepath.Join(filepath.Dir(path), name)
}
