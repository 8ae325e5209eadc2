package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// DiskBackend keeps one JSON file per key under dir.
type DiskBackend struct {
	dir string
}

func NewDiskBackend(dir string) (*DiskBackend, error) {
	if dir == "" {
		dir = "./cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create disk cache dir")
	}
	return &DiskBackend{dir: dir}, nil
}

func (d *DiskBackend) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+".json")
}

func (d *DiskBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read disk cache")
	}
	var v expiringValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, errors.Wrap(err, "decode disk cache")
	}
	if v.expired(time.Now()) {
		_ = os.Remove(d.path(key))
		return nil, false, nil
	}
	return v.Value, true, nil
}

func (d *DiskBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := json.Marshal(newExpiringValue(value, ttl))
	if err != nil {
		return errors.Wrap(err, "encode disk cache")
	}
	tmp, err := os.CreateTemp(d.dir, "tmp-*")
	if err != nil {
		return errors.Wrap(err, "create disk cache file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "write disk cache file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "close disk cache file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), d.path(key)), "rename disk cache file")
}

func (d *DiskBackend) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "delete disk cache file")
		}
	}
	return nil
}

func (d *DiskBackend) Ping(context.Context) error {
	info, err := os.Stat(d.dir)
	if err != nil {
		return errors.Wrap(err, "stat disk cache dir")
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", d.dir)
	}
	return nil
}

func (d *DiskBackend) Close() error {
	return nil
}
