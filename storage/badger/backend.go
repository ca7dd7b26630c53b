// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/panelsearch/storage"
	"github.com/timshannon/badgerhold/v4"
)

func init() {
	// The panel code attribute is stored with whatever type the loader
	// used, so the interface-typed field needs its concrete types known
	// to the codec.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
}

// Backend wraps a badgerhold store holding both the chunk corpus and the
// panel metadata collection.
type Backend struct {
	store  *badgerhold.Store
	logger *slog.Logger
	closed atomic.Bool
}

// guard rejects cancelled contexts and use after Close before badger sees
// the request.
func (b *Backend) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.closed.Load() {
		return storage.ErrStoreClosed
	}
	return nil
}

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badgerdb.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens the store at the given path, creating the directory if
// needed. With inMemory set, path is ignored and nothing touches disk; used
// by tests and ephemeral deployments.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var dbOpts badgerdb.Options

	if inMemory {
		dbOpts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		dbOpts = badgerdb.DefaultOptions(filePath)
	}

	dbOpts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	dbOpts.Compression = options.None

	holdOpts := badgerhold.DefaultOptions
	holdOpts.Options = dbOpts

	store, err := badgerhold.Open(holdOpts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		store:  store,
		logger: slog.Default().With("component", "badger-backend"),
	}, nil
}

// Close closes the underlying store. Further calls on the backend return
// storage.ErrStoreClosed; Close itself is idempotent.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.store.Close()
}
