package fileutil

// Releaser releases an advisory lock taken on a store file.
type Releaser interface {
	Release() error
}
