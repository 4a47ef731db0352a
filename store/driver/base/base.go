// Package base provides a base implementation of driver.StorageDriver that
// factors out the path validation every concrete backend needs.
//
// The canonical way to use it is to embed Base in the exported driver type
// so calls are proxied through it:
//
//	type driver struct { ... }
//
//	type baseEmbed struct {
//		base.Base
//	}
//
//	type Driver struct {
//		baseEmbed
//	}
//
// Driver then satisfies driver.StorageDriver by way of Base, without
// exporting the embed itself.
package base

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voltpack/corepm/store/driver"
)

// Base wraps a driver.StorageDriver, adding common path and offset
// validation ahead of every call.
type Base struct {
	driver.StorageDriver
}

func durationDebugLog(methodName string) func() {
	startedAt := time.Now()
	return func() {
		logrus.WithField("duration", time.Since(startedAt)).Debugf("store.driver.%s", methodName)
	}
}

func (b *Base) GetContent(ctx context.Context, path string) ([]byte, error) {
	if !driver.PathRegexp.MatchString(path) {
		return nil, driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("GetContent")()
	return b.StorageDriver.GetContent(ctx, path)
}

func (b *Base) PutContent(ctx context.Context, path string, content []byte) error {
	if !driver.PathRegexp.MatchString(path) {
		return driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("PutContent")()
	return b.StorageDriver.PutContent(ctx, path, content)
}

func (b *Base) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	if offset < 0 {
		return nil, driver.InvalidOffsetError{Path: path, Offset: offset}
	}
	if !driver.PathRegexp.MatchString(path) {
		return nil, driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("Reader")()
	return b.StorageDriver.Reader(ctx, path, offset)
}

func (b *Base) Writer(ctx context.Context, path string, append bool) (driver.FileWriter, error) {
	if !driver.PathRegexp.MatchString(path) {
		return nil, driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("Writer")()
	return b.StorageDriver.Writer(ctx, path, append)
}

func (b *Base) Stat(ctx context.Context, path string) (driver.FileInfo, error) {
	if !driver.PathRegexp.MatchString(path) {
		return nil, driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("Stat")()
	return b.StorageDriver.Stat(ctx, path)
}

func (b *Base) List(ctx context.Context, path string) ([]string, error) {
	if !driver.PathRegexp.MatchString(path) && path != "/" {
		return nil, driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("List")()
	return b.StorageDriver.List(ctx, path)
}

func (b *Base) Move(ctx context.Context, sourcePath, destPath string) error {
	if !driver.PathRegexp.MatchString(sourcePath) {
		return driver.InvalidPathError{Path: sourcePath}
	} else if !driver.PathRegexp.MatchString(destPath) {
		return driver.InvalidPathError{Path: destPath}
	}
	defer durationDebugLog("Move")()
	return b.StorageDriver.Move(ctx, sourcePath, destPath)
}

func (b *Base) Delete(ctx context.Context, path string) error {
	if !driver.PathRegexp.MatchString(path) {
		return driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("Delete")()
	return b.StorageDriver.Delete(ctx, path)
}

func (b *Base) Walk(ctx context.Context, path string, f driver.WalkFn, options ...func(*driver.WalkOptions)) error {
	if !driver.PathRegexp.MatchString(path) && path != "/" {
		return driver.InvalidPathError{Path: path}
	}
	defer durationDebugLog("Walk")()
	return b.StorageDriver.Walk(ctx, path, f, options...)
}
