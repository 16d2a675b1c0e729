package generic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"domogateway/pkg/runtime"
	"domogateway/pkg/storage"
	"k8s.io/klog/v2"
)

// Store persists devices as <deviceType>.<id> documents and decodes them back
// into the runtime type registered for the device type.
type Store struct {
	Group        string
	Resource     string
	ResourceType map[string]reflect.Type
	client       storage.Storage
}

func NewStore(root string, group string, resource string, resourceType map[string]runtime.Device) (*Store, error) {
	s := &Store{
		Group:        group,
		Resource:     resource,
		ResourceType: make(map[string]reflect.Type),
	}
	for dt, object := range resourceType {
		s.ResourceType[dt] = getTypeOfResource(object)
	}

	sg, ok := storage.StoreGroupFromString[group]
	if !ok {
		return nil, fmt.Errorf("unsupported store group %s", group)
	}
	client, err := storage.NewFsClient(root, sg)
	if err != nil {
		return nil, err
	}
	s.client = client

	return s, nil
}

func (s *Store) key(obj runtime.Device) string {
	return filepath.Join(s.Resource, fmt.Sprintf("%s.%s", obj.GetDeviceType(), obj.GetID()))
}

func (s *Store) Create(obj runtime.Device) (save runtime.Device, returnErr error) {
	if saved, err := s.client.Create(s.key(obj), obj); err == nil {
		save = saved.(runtime.Device)
	} else {
		returnErr = err
	}
	return
}

func (s *Store) Update(obj runtime.Device) (update runtime.Device, returnErr error) {
	if updated, err := s.client.Update(s.key(obj), obj.GetVersion(), obj); err == nil {
		update = updated.(runtime.Device)
	} else {
		returnErr = err
	}
	return
}

func (s *Store) Delete(obj runtime.Device) (delete runtime.Device, returnErr error) {
	if _, err := s.client.Delete(s.key(obj), obj.GetVersion()); err == nil {
		delete = obj
	} else {
		returnErr = err
	}
	return
}

// LoadResource decodes every stored device. Unreadable documents and unknown
// device types are skipped.
func (s *Store) LoadResource() ([]runtime.Device, error) {
	objs, err := s.client.List(s.Resource)
	if err != nil {
		return nil, err
	}

	var ret []runtime.Device
	if files, ok := objs.([]*storage.FileInfo); ok {
		for _, file := range files {
			func() {
				fileName := filepath.Base(file.Path)
				idx := strings.Index(fileName, ".")
				if idx < 0 {
					return
				}
				t, ok := s.ResourceType[fileName[0:idx]]
				if !ok {
					klog.V(2).InfoS("Unsupported device type", "file", file.Path, "resource", s.Resource)
					return
				}
				obj := reflect.New(t).Interface().(runtime.Device)
				f, err := os.Open(file.Path)
				if err != nil {
					klog.V(2).InfoS("Failed to open", "file", file.Path, "resource", s.Resource, "err", err)
					return
				}
				defer f.Close()
				if err = json.NewDecoder(f).Decode(obj); err != nil {
					klog.V(3).InfoS("Failed to unmarshal", "file", file.Path, "resource", s.Resource, "err", err)
					return
				}
				obj.IndexDevice()
				ret = append(ret, obj)
			}()
		}
	}
	return ret, nil
}

func getTypeOfResource(obj runtime.Device) reflect.Type {
	t := reflect.TypeOf(obj)
	if t.Kind() != reflect.Ptr {
		panic("All types must be pointers to structs.")
	}
	t = t.Elem()
	if t.Kind() != reflect.Struct {
		panic("All types must be pointers to structs.")
	}
	return t
}
