// Package factory provides a name-keyed registry of storage driver
// constructors, mirroring how the core's other pluggable seams (lockfile
// formats, verify policies) are selected by string rather than by import.
// Only the filesystem and in-memory drivers register themselves today; the
// registry exists so a future backend needs no changes here.
package factory

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/voltpack/corepm/internal/uuid"
	"github.com/voltpack/corepm/store/driver"
)

var driverFactories = make(map[string]StorageDriverFactory)

// StorageDriverFactory constructs a driver.StorageDriver from a parameter
// map. Drivers call Register with one of these to make themselves
// available by name.
type StorageDriverFactory interface {
	Create(ctx context.Context, parameters map[string]interface{}) (driver.StorageDriver, error)
}

// Register makes a storage driver available by the provided name. It panics
// if called twice with the same name, or with a nil factory — both are
// programmer errors caught at init time, never at runtime.
func Register(name string, factory StorageDriverFactory) {
	if factory == nil {
		panic("factory: nil StorageDriverFactory")
	}
	if _, registered := driverFactories[name]; registered {
		panic(fmt.Sprintf("factory: %q already registered", name))
	}
	driverFactories[name] = factory
}

// Create constructs the named driver and verifies it has read, write, and
// delete permissions on its backing storage before returning it.
func Create(ctx context.Context, name string, parameters map[string]interface{}) (driver.StorageDriver, error) {
	driverFactory, ok := driverFactories[name]
	if !ok {
		return nil, InvalidStorageDriverError{Name: name}
	}

	d, err := driverFactory.Create(ctx, parameters)
	if err != nil {
		return nil, err
	}

	if err := verify(ctx, d); err != nil {
		return nil, fmt.Errorf("store: %q driver failed permission check: %w", name, err)
	}

	return d, nil
}

// verify exercises the full write/stat/read/delete cycle against a
// throwaway path, so a misconfigured store root is caught at startup
// rather than on the first real package write.
func verify(ctx context.Context, d driver.StorageDriver) error {
	randomFile := "/.corepm-verify-" + uuid.NewString()

	if err := d.PutContent(ctx, randomFile, []byte("")); err != nil {
		return fmt.Errorf("write verification file: %w", err)
	}

	const maxWait = 3 * time.Second
	wait := 10 * time.Millisecond

	for wait < maxWait {
		if _, err := d.Stat(ctx, randomFile); err != nil {
			if _, ok := err.(driver.PathNotFoundError); ok {
				time.Sleep(wait)
				wait = backOff(wait)
				continue
			}
			return err
		}

		if _, err := d.GetContent(ctx, randomFile); err != nil {
			return fmt.Errorf("read verification file: %w", err)
		}
		break
	}

	if err := d.Delete(ctx, randomFile); err != nil {
		return fmt.Errorf("delete verification file: %w", err)
	}

	return nil
}

func backOff(d time.Duration) time.Duration {
	d *= 2
	d += time.Microsecond * time.Duration(rand.Int63n(1000))
	return d
}

// InvalidStorageDriverError records an attempt to construct a driver that
// was never registered.
type InvalidStorageDriverError struct {
	Name string
}

func (e InvalidStorageDriverError) Error() string {
	return fmt.Sprintf("factory: driver not registered: %s", e.Name)
}
