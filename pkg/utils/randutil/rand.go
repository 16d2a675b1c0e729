package randutil

import (
	"math/rand"
	"sync"
	"time"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	mu  sync.Mutex
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Uint64n returns a positive value used as an initial ETag version.
func Uint64n() uint64 {
	mu.Lock()
	defer mu.Unlock()
	return uint64(rnd.Int63n(1<<32)) + 1
}

func Int63n() int64 {
	mu.Lock()
	defer mu.Unlock()
	return rnd.Int63()
}

// StringN returns n random alphanumerics.
func StringN(n int) string {
	mu.Lock()
	defer mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rnd.Intn(len(letters))]
	}
	return string(b)
}
