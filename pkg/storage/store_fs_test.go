package storage

import (
	"os"
	"path/filepath"
	"testing"

	"domogateway/pkg/apis"
	"domogateway/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	runtime.ObjectMeta
	Host string `json:"host"`
}

func TestFsClientLifecycle(t *testing.T) {
	root := t.TempDir()
	fc, err := NewFsClient(root, StoreGroupDevice)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "device", Devices))

	key := filepath.Join(Devices, "dobiss.1")
	obj := &record{ObjectMeta: runtime.ObjectMeta{ID: "1", Version: "10"}, Host: "192.168.1.20"}
	_, err = fc.Create(key, obj)
	require.NoError(t, err)

	_, err = fc.Create(key, obj)
	assert.True(t, os.IsExist(err))

	files, err := fc.List(Devices)
	require.NoError(t, err)
	assert.Len(t, files.([]*FileInfo), 1)

	obj.Host = "192.168.1.21"
	_, err = fc.Update(key, "9", obj)
	assert.ErrorIs(t, err, apis.ErrMismatch)

	_, err = fc.Update(key, "10", obj)
	require.NoError(t, err)
	assert.NotEqual(t, "10", obj.Version)

	data, err := fc.Get(key)
	require.NoError(t, err)
	assert.Contains(t, string(data.([]byte)), "192.168.1.21")

	_, err = fc.Delete(key, "10")
	assert.ErrorIs(t, err, apis.ErrMismatch)

	_, err = fc.Delete(key, obj.Version)
	require.NoError(t, err)

	_, err = fc.Update(key, obj.Version, obj)
	assert.True(t, os.IsNotExist(err))
}

func TestFsClientGatewayGroup(t *testing.T) {
	root := t.TempDir()
	fc, err := NewFsClient(root, StoreGroupGateway)
	require.NoError(t, err)

	_, err = fc.Get(Meta)
	assert.True(t, os.IsNotExist(err))

	_, err = NewFsClient(root, StoreGroup(9))
	assert.Error(t, err)
}
