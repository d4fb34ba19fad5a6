package utils

import "sync"

// KeyedMutex serialises work per key, e.g. per download directory.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *KeyedMutex) lock(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

func (k *KeyedMutex) ExecuteWithMutex(key string, fn func() error) error {
	l := k.lock(key)
	l.Lock()
	defer l.Unlock()
	return fn()
}
