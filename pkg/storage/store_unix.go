//go:build !windows

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"k8s.io/klog/v2"
)

// DefaultStorePath is used when no --store-path is given.
func DefaultStorePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".domogateway")
	} else {
		klog.ErrorS(err, "Failed to get home dir")
		return "./domogateway"
	}
}

// flock is advisory here, so only an interrupted call is worth retrying.
func isEphemeralError(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
