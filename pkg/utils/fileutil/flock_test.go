//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLock(t *testing.T) {
	p := filepath.Join(t.TempDir(), "device.json")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	l, err := NewLock(f)
	require.NoError(t, err)

	other, err := os.Open(p)
	require.NoError(t, err)
	defer other.Close()
	_, err = NewLock(other)
	require.Error(t, err)

	require.NoError(t, l.Release())
	l2, err := NewLock(other)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
