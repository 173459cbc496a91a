package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// FileStore is the default Store: one file per key under a per-client
// subdirectory, the on-disk layout described for paho.mqtt.golang's own
// FileStore. Put fsyncs before returning, satisfying the "durable before
// returning" half of §4.C; Remove is best-effort, matching the engine's
// fire-and-forget treatment of removes.
type FileStore struct {
	dir string
}

// DefaultDir resolves to ~/.mqttclient, using
// github.com/mitchellh/go-homedir the way hlindberg-mezquit resolves its
// own per-user config directory.
func DefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mqttclient"), nil
}

// NewFileStore creates (if needed) dir and returns a FileStore rooted there.
// An empty dir resolves via DefaultDir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) clientDir(clientID string) string {
	return filepath.Join(f.dir, escapeClientID(clientID))
}

func (f *FileStore) path(key Key) string {
	return filepath.Join(f.clientDir(key.ClientID), fmt.Sprintf("%s-%05d.pkt", key.Dir, key.PacketID))
}

func (f *FileStore) Put(key Key, data []byte) error {
	dir := f.clientDir(key.ClientID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp := f.path(key) + ".tmp"
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

func (f *FileStore) Get(key Key) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileStore) Remove(key Key) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileStore) Keys(clientID string) ([]Key, error) {
	entries, err := os.ReadDir(f.clientDir(clientID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []Key
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".pkt")
		if name == e.Name() {
			continue // not one of ours (e.g. a stray .tmp)
		}
		parts := strings.SplitN(name, "-", 2)
		if len(parts) != 2 {
			continue
		}
		id, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			continue
		}
		keys = append(keys, Key{ClientID: clientID, Dir: Direction(parts[0]), PacketID: uint16(id)})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].PacketID < keys[j].PacketID })
	return keys, nil
}

// escapeClientID keeps client-id derived directory names filesystem-safe
// without pulling in a full path-escaping dependency for one substitution.
func escapeClientID(clientID string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(clientID)
}
