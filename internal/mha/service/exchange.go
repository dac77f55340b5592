package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"noticerecon/internal/mha/codec"
	"noticerecon/pkg/platform/sentinel"
)

const pendingUploadLimit = 10000

// Upload writes the outbound registry-confirmation request file to the
// exchange outbound directory and returns its name and the number of
// identity numbers listed. The file transport picks it up from there.
func (s *Service) Upload(ctx context.Context) (string, int, error) {
	ids, err := s.store.ListPendingIDs(ctx, pendingUploadLimit)
	if err != nil {
		return "", 0, fmt.Errorf("list pending identities: %w", err)
	}
	if len(ids) == 0 {
		return "", 0, fmt.Errorf("no pending identities: %w", sentinel.ErrNotFound)
	}

	now := s.clock()
	name := codec.RequestFilename(now)
	path := filepath.Join(s.exchange.OutboundDir, name)

	if err := os.MkdirAll(s.exchange.OutboundDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create outbound dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create request file: %w", err)
	}
	defer f.Close()

	if err := codec.WriteRequestFile(f, ids, now); err != nil {
		return "", 0, fmt.Errorf("write request file: %w", err)
	}
	s.log.Info("request file written", "file", name, "identities", len(ids))
	return name, len(ids), nil
}

// DownloadExecute picks the oldest unprocessed response file from the
// exchange inbound directory, applies it as a batch, marks it processed and
// archives it. sentinel.ErrNotFound means nothing was waiting.
func (s *Service) DownloadExecute(ctx context.Context) (*BatchSummary, error) {
	name, err := s.oldestUnprocessed(ctx)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.exchange.InboundDir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inbound file: %w", err)
	}
	sum, procErr := s.ProcessBatch(ctx, f, name)
	_ = f.Close()
	if procErr != nil {
		// Inconsistent files stay in place for the operator; nothing was
		// applied.
		return nil, procErr
	}

	if err := s.dedupe.Mark(ctx, name); err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}
	if err := s.archive(name); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Service) oldestUnprocessed(ctx context.Context) (string, error) {
	entries, err := os.ReadDir(s.exchange.InboundDir)
	if err != nil {
		return "", fmt.Errorf("read inbound dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), codec.ResponseFilePrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	// Filenames embed yyyyMMddHHmmss, so lexical order is delivery order.
	sort.Strings(names)

	for _, name := range names {
		seen, err := s.dedupe.Seen(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check processed: %w", err)
		}
		if !seen {
			return name, nil
		}
	}
	return "", fmt.Errorf("no unprocessed response file: %w", sentinel.ErrNotFound)
}

func (s *Service) archive(name string) error {
	if err := os.MkdirAll(s.exchange.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	src := filepath.Join(s.exchange.InboundDir, name)
	dst := filepath.Join(s.exchange.ArchiveDir, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("archive inbound file: %w", err)
	}
	s.log.Info("inbound file archived", "file", name)
	return nil
}

// SynthesizeCallback writes a batch file into the inbound directory as if
// the registry had delivered it. Test-mode only; the handler gates it.
func (s *Service) SynthesizeCallback(_ context.Context, file *codec.BatchFile) (string, error) {
	if err := os.MkdirAll(s.exchange.InboundDir, 0o755); err != nil {
		return "", fmt.Errorf("create inbound dir: %w", err)
	}
	name := codec.ResponseFilename(s.clock())
	path := filepath.Join(s.exchange.InboundDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create synthetic file: %w", err)
	}
	defer f.Close()

	if err := codec.WriteFile(f, file); err != nil {
		return "", fmt.Errorf("write synthetic file: %w", err)
	}
	s.log.Info("synthetic response file written", "file", name)
	return name, nil
}
