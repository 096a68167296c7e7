package goroutine

import (
	"context"
	"testing"
	"time"

	"github.com/ignatzorin/exwork-backend/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	logger.Discard()
	done := make(chan struct{})

	SafeGo("test", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("горутина не завершилась")
	}
}

func TestSafeGoWithContextPassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)

	SafeGoWithContext(ctx, "ctx", func(ctx context.Context) {
		<-ctx.Done()
		got <- ctx.Err()
	})
	cancel()

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("контекст не передан")
	}
}
