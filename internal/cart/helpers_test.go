package cart

import (
	"context"
	"sync/atomic"
)

type recordingStorage struct {
	*MemoryStorage
	saves atomic.Int32
}

func (r *recordingStorage) Save(ctx context.Context, key string, data []byte) error {
	r.saves.Add(1)
	return r.MemoryStorage.Save(ctx, key, data)
}

type failingStorage struct {
	loadErr   error
	saveErr   error
	saveCalls int
}

func (f *failingStorage) Load(context.Context, string) ([]byte, error) {
	return nil, f.loadErr
}

func (f *failingStorage) Save(context.Context, string, []byte) error {
	f.saveCalls++
	return f.saveErr
}
