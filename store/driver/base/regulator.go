package base

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/voltpack/corepm/store/driver"
)

// regulator wraps a driver.StorageDriver, bounding the number of calls in
// flight at once. Both the filesystem driver's writes and the store's own
// file-pool ingestion go through an OS thread per blocking syscall; without
// a cap, materializing a large tree can exhaust the process's thread limit.
type regulator struct {
	driver.StorageDriver
	sync.Cond

	available uint
}

// NewRegulator wraps d so that no more than limit calls run concurrently.
func NewRegulator(d driver.StorageDriver, limit uint) driver.StorageDriver {
	return &regulator{
		StorageDriver: d,
		Cond:          sync.Cond{L: &sync.Mutex{}},
		available:     limit,
	}
}

func (r *regulator) enter() {
	r.L.Lock()
	defer r.L.Unlock()
	for r.available == 0 {
		r.Wait()
	}
	r.available--
}

func (r *regulator) exit() {
	r.L.Lock()
	defer r.Signal()
	defer r.L.Unlock()
	r.available++
}

func (r *regulator) Name() string {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Name()
}

func (r *regulator) GetContent(ctx context.Context, path string) ([]byte, error) {
	r.enter()
	defer r.exit()
	return r.StorageDriver.GetContent(ctx, path)
}

func (r *regulator) PutContent(ctx context.Context, path string, content []byte) error {
	r.enter()
	defer r.exit()
	return r.StorageDriver.PutContent(ctx, path, content)
}

func (r *regulator) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Reader(ctx, path, offset)
}

func (r *regulator) Writer(ctx context.Context, path string, append bool) (driver.FileWriter, error) {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Writer(ctx, path, append)
}

func (r *regulator) Stat(ctx context.Context, path string) (driver.FileInfo, error) {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Stat(ctx, path)
}

func (r *regulator) List(ctx context.Context, path string) ([]string, error) {
	r.enter()
	defer r.exit()
	return r.StorageDriver.List(ctx, path)
}

func (r *regulator) Move(ctx context.Context, sourcePath, destPath string) error {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Move(ctx, sourcePath, destPath)
}

func (r *regulator) Delete(ctx context.Context, path string) error {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Delete(ctx, path)
}

func (r *regulator) Walk(ctx context.Context, path string, f driver.WalkFn, options ...func(*driver.WalkOptions)) error {
	r.enter()
	defer r.exit()
	return r.StorageDriver.Walk(ctx, path, f, options...)
}

// GetLimitFromParameter extracts a bounded integer from a driver parameter
// map value: nil uses def, a string is parsed as base-10, an int, int64
// or uint64 is converted, and any other type is an error. Values below
// min are raised to min.
func GetLimitFromParameter(param interface{}, min, def uint64) (uint64, error) {
	limit := def

	switch v := param.(type) {
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter must be an integer, '%v' invalid", param)
		}
		limit = parsed
	case nil:
		return def, nil
	case int:
		limit = uint64(v)
	case int64:
		limit = uint64(v)
	case uint64:
		limit = v
	default:
		return def, fmt.Errorf("parameter must be an integer, '%v' invalid", param)
	}

	if limit < min {
		limit = min
	}

	return limit, nil
}
