package store

import (
	"context"
	"errors"
	"time"

	"github.com/opencontainers/go-digest"

	storedriver "github.com/voltpack/corepm/store/driver"
)

// ErrNoLastAccessedTime is returned by LastAccess when a digest has never
// been touched.
var ErrNoLastAccessedTime = errors.New("store: no last accessed time available")

// touchLastAccess records now as the last time dgst's pkgs/ entry was
// committed (CommitPackage) or handed out for reading (PackageDir). The store's eviction policy (outside this
// package) uses this to decide what to reclaim first under disk pressure.
func (s *Store) touchLastAccess(ctx context.Context, dgst digest.Digest) error {
	p, err := s.pm.path(metaLastAccessPathSpec{digest: dgst})
	if err != nil {
		return err
	}

	stamp, err := time.Now().UTC().MarshalText()
	if err != nil {
		return err
	}

	return s.driver.PutContent(ctx, p, stamp)
}

// LastAccess returns the last time dgst was touched, or ErrNoLastAccessedTime
// if it never has been.
func (s *Store) LastAccess(ctx context.Context, dgst digest.Digest) (time.Time, error) {
	p, err := s.pm.path(metaLastAccessPathSpec{digest: dgst})
	if err != nil {
		return time.Time{}, err
	}

	content, err := s.driver.GetContent(ctx, p)
	if err != nil {
		if _, ok := err.(storedriver.PathNotFoundError); ok {
			return time.Time{}, ErrNoLastAccessedTime
		}
		return time.Time{}, err
	}

	var t time.Time
	if err := t.UnmarshalText(content); err != nil {
		return time.Time{}, err
	}
	return t, nil
}
