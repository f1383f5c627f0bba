// Package hive_adaptor stores escheme heap images in the key/value stores
// implemented in the `hive.go` repository.
package hive_adaptor

import (
	"bytes"

	"github.com/iotaledger/hive.go/core/kvstore"
	"golang.org/x/xerrors"

	"github.com/littlegreycells/escheme.go/core"
)

// ErrImageNotFound is returned by Load for a name with no saved image.
var ErrImageNotFound = xerrors.New("image not found")

// ImageStore keeps named heap images in a partition of a hive.go KVStore.
type ImageStore struct {
	kvs    kvstore.KVStore
	prefix []byte
}

// NewImageStore creates an image store over a partition of a hive.go
// KVStore.
func NewImageStore(kvs kvstore.KVStore, prefix []byte) *ImageStore {
	return &ImageStore{kvs: kvs, prefix: prefix}
}

func (s *ImageStore) makeKey(name string) []byte {
	if len(s.prefix) == 0 {
		return []byte(name)
	}
	key := make([]byte, 0, len(s.prefix)+len(name))
	key = append(key, s.prefix...)
	return append(key, name...)
}

// Save serializes the graph reachable from root and stores it under name.
func (s *ImageStore) Save(name string, root *core.Node) error {
	var buf bytes.Buffer
	if err := core.WriteImage(&buf, root); err != nil {
		return err
	}
	return s.kvs.Set(s.makeKey(name), buf.Bytes())
}

// Load rebuilds the image stored under name and returns its root.
func (s *ImageStore) Load(name string) (*core.Node, error) {
	data, err := s.kvs.Get(s.makeKey(name))
	if xerrors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, xerrors.Errorf("%s: %w", name, ErrImageNotFound)
	}
	if err != nil {
		return nil, err
	}
	return core.ReadImage(bytes.NewReader(data))
}

// Has checks whether an image is stored under name.
func (s *ImageStore) Has(name string) (bool, error) {
	return s.kvs.Has(s.makeKey(name))
}

// Delete removes the image stored under name, if any.
func (s *ImageStore) Delete(name string) error {
	return s.kvs.Delete(s.makeKey(name))
}

// Iterate visits the names of all stored images.
func (s *ImageStore) Iterate(fun func(name string) bool) error {
	return s.kvs.Iterate(s.prefix, func(key kvstore.Key, _ kvstore.Value) bool {
		return fun(string(key[len(s.prefix):]))
	})
}
