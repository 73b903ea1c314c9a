package inventory

import "sync"

// keyedLock serializa las mutaciones sobre un mismo medicamento.
// Los mutex no se liberan del mapa; el número de claves es el tamaño del inventario.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLock) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
