package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/supersteprun/graph/graph"
)

// Encoding selects the textual format a FileStore uses for checkpoint
// files. The layout is one directory per thread id, one file per step named
// "<step>.<ext>".
type Encoding string

const (
	// EncodingJSON writes one JSON object per file (ext "json").
	EncodingJSON Encoding = "json"
	// EncodingKV writes a structured key-value document per file (ext
	// "yaml"), using gopkg.in/yaml.v3 as the structured key-value codec.
	EncodingKV Encoding = "yaml"
)

// FileStoreOptions configures NewFileStore.
type FileStoreOptions struct {
	// BaseDir is the root directory under which one subdirectory per thread
	// id is created. Required.
	BaseDir string `validate:"required"`
	// Encoding selects the file format. Defaults to EncodingJSON.
	Encoding Encoding `validate:"omitempty,oneof=json yaml"`
}

// FileStore is a directory-per-thread, file-per-step graph.Store. It
// supports two interchangeable textual encodings so callers can pick
// between a machine-oriented format (JSON) and a human-editable structured
// key-value one (YAML).
//
// The same thread is serialized by an internal per-thread lock; different
// threads proceed independently.
type FileStore struct {
	baseDir  string
	encoding Encoding

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var fileValidate = validator.New()

// NewFileStore creates (if necessary) opts.BaseDir and returns a FileStore
// rooted there.
func NewFileStore(opts FileStoreOptions) (*FileStore, error) {
	if opts.Encoding == "" {
		opts.Encoding = EncodingJSON
	}
	if err := fileValidate.Struct(opts); err != nil {
		return nil, &graph.GraphError{Op: "NewFileStore", Cause: err}
	}
	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create base dir: %w", err)
	}
	return &FileStore{
		baseDir:  opts.BaseDir,
		encoding: opts.Encoding,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func (f *FileStore) threadLock(thread string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[thread]
	if !ok {
		l = &sync.Mutex{}
		f.locks[thread] = l
	}
	return l
}

func (f *FileStore) threadDir(thread string) string {
	return filepath.Join(f.baseDir, thread)
}

func (f *FileStore) ext() string {
	if f.encoding == EncodingKV {
		return "yaml"
	}
	return "json"
}

func (f *FileStore) stepPath(thread string, step int) string {
	return filepath.Join(f.threadDir(thread), fmt.Sprintf("%d.%s", step, f.ext()))
}

func (f *FileStore) encode(r record) ([]byte, error) {
	if f.encoding == EncodingKV {
		return yaml.Marshal(r)
	}
	return json.MarshalIndent(r, "", "  ")
}

func (f *FileStore) decode(data []byte) (record, error) {
	var r record
	var err error
	if f.encoding == EncodingKV {
		err = yaml.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	return r, err
}

// Save implements graph.Store.
func (f *FileStore) Save(_ context.Context, cp graph.Checkpoint) error {
	lock := f.threadLock(cp.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	dir := f.threadDir(cp.ThreadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create thread dir: %w", err)
	}

	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}
	data, err := f.encode(toRecord(cp))
	if err != nil {
		return fmt.Errorf("store: encode checkpoint: %w", err)
	}

	tmp := f.stepPath(cp.ThreadID, cp.Step) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write checkpoint: %w", err)
	}
	return os.Rename(tmp, f.stepPath(cp.ThreadID, cp.Step))
}

// Load implements graph.Store. Without an explicit step, it selects the
// file with the numerically maximum step name.
func (f *FileStore) Load(_ context.Context, thread string, step int, hasStep bool) (graph.Checkpoint, bool, error) {
	lock := f.threadLock(thread)
	lock.Lock()
	defer lock.Unlock()

	if hasStep {
		data, err := os.ReadFile(f.stepPath(thread, step))
		if os.IsNotExist(err) {
			return graph.Checkpoint{}, false, nil
		}
		if err != nil {
			return graph.Checkpoint{}, false, err
		}
		rec, err := f.decode(data)
		if err != nil {
			return graph.Checkpoint{}, false, fmt.Errorf("store: decode checkpoint: %w", err)
		}
		return rec.toCheckpoint(), true, nil
	}

	steps, err := f.listSteps(thread)
	if err != nil || len(steps) == 0 {
		return graph.Checkpoint{}, false, err
	}
	latest := steps[len(steps)-1]
	data, err := os.ReadFile(f.stepPath(thread, latest))
	if err != nil {
		return graph.Checkpoint{}, false, err
	}
	rec, err := f.decode(data)
	if err != nil {
		return graph.Checkpoint{}, false, fmt.Errorf("store: decode checkpoint: %w", err)
	}
	return rec.toCheckpoint(), true, nil
}

// ListThreads implements graph.Store.
func (f *FileStore) ListThreads(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// ListSteps implements graph.Store.
func (f *FileStore) ListSteps(_ context.Context, thread string) ([]int, error) {
	return f.listSteps(thread)
}

func (f *FileStore) listSteps(thread string) ([]int, error) {
	entries, err := os.ReadDir(f.threadDir(thread))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ext := "." + f.ext()
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// Delete implements graph.Store.
func (f *FileStore) Delete(_ context.Context, thread string) error {
	lock := f.threadLock(thread)
	lock.Lock()
	defer lock.Unlock()
	err := os.RemoveAll(f.threadDir(thread))
	if err != nil {
		return err
	}
	return nil
}
