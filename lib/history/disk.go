package history

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peterbourgon/diskv"
)

const keyPrefix = "progress."

// DiskStore is a storage engine that writes one file per item to disk
type DiskStore struct {
	basePath string
	d        *diskv.Diskv
}

// diskRecord carries the original id since keys are hex encoded on disk.
type diskRecord struct {
	ID string `json:"id"`
	Progress
}

// NewDiskStore will instantiate the disk storage rooted at basePath
func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{
		basePath: basePath,
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			TempDir:      filepath.Join(basePath, ".tmp"),
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		}),
	}
}

// Ping checks that the base directory can be created
func (s *DiskStore) Ping(ctx context.Context) error {
	return os.MkdirAll(s.basePath, 0755)
}

// Get will load the progress of a single item from disk
func (s *DiskStore) Get(ctx context.Context, id string) (Progress, bool, error) {
	key := diskKey(id)
	if !s.d.Has(key) {
		return Progress{}, false, nil
	}
	raw, err := s.d.Read(key)
	if err != nil {
		return Progress{}, false, fmt.Errorf("read %s: %w", id, err)
	}
	var rec diskRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Progress{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return rec.Progress, true, nil
}

// Set will write the progress of an item to disk. diskv moves the file into
// place from TempDir, so a crash leaves either the old or the new record.
func (s *DiskStore) Set(ctx context.Context, id string, progress Progress) error {
	raw, err := json.Marshal(diskRecord{ID: id, Progress: progress})
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	if err := s.d.Write(diskKey(id), raw); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

// All loads every readable record. Corrupt files are skipped.
func (s *DiskStore) All(ctx context.Context) (map[string]Progress, error) {
	out := map[string]Progress{}
	cancel := make(chan struct{})
	defer close(cancel)
	for key := range s.d.KeysPrefix(keyPrefix, cancel) {
		raw, err := s.d.Read(key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		var rec diskRecord
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" {
			slog.Warn("skipping corrupt watch history record",
				"operation", "history_disk_all",
				"key", key,
				"error", err,
			)
			continue
		}
		out[rec.ID] = rec.Progress
	}
	return out, nil
}

func diskKey(id string) string {
	return keyPrefix + hex.EncodeToString([]byte(id))
}
