package persistence

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"mercadolp/internal/model"
)

// Export writes the stored record, zstd-compressed, to path.
func (g *Gateway) Export(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	data, found, err := g.kv.Get(ctx, g.key)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	if !found {
		return fmt.Errorf("no saved game under %q", g.key)
	}
	if _, err := g.decode(data); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename backup: %w", err)
	}
	g.logger.Info("exported save", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Import replaces the stored record with the backup at path. The backup must
// carry the current version.
func (g *Gateway) Import(path string) (*model.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress backup: %w", err)
	}
	rec, err := g.decode(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.kv.Put(ctx, g.key, data); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	g.logger.Info("imported save", zap.String("path", path))
	return rec.state(), nil
}
