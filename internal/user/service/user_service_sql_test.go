package service

import (
	"context"
	"sync"
	"testing"

	"playlog/backend/internal/db/dbtest"
	"playlog/backend/internal/user/repository"
)

func TestFindOrCreate_ConcurrentSameUsername(t *testing.T) {
	svc := NewService(repository.NewSQLRepository(dbtest.Open(t)))
	ctx := context.Background()

	const n = 10
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = svc.FindOrCreate(ctx, "contended")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("call %d returned %q, want %q", i, ids[i], ids[0])
		}
	}
}
