package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegister_LastConnectionWins(t *testing.T) {
	r := NewRegistry()

	r.Register(7, "h1")
	r.Register(7, "h2")

	assert.Equal(t, 1, r.Len())
	h, ok := r.Handle(7)
	assert.True(t, ok)
	assert.Equal(t, "h2", h)
}

func TestUnregister_MissingIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register(7, "h1")

	r.Unregister(9)
	r.Unregister(7)
	r.Unregister(7)

	assert.False(t, r.IsOnline(7))
	assert.Empty(t, r.ListOnline())
}

func TestRelease_OnlyCurrentHandle(t *testing.T) {
	r := NewRegistry()
	r.Register(7, "h1")
	r.Register(7, "h2")

	assert.False(t, r.Release(7, "h1"), "stale connection must not clear presence")
	assert.True(t, r.IsOnline(7))

	assert.True(t, r.Release(7, "h2"))
	assert.False(t, r.IsOnline(7))
}

func TestListOnline_Sorted(t *testing.T) {
	r := NewRegistry()
	r.Register(9, "a")
	r.Register(3, "b")
	r.Register(7, "c")

	assert.Equal(t, []uint{3, 7, 9}, r.ListOnline())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			handle := fmt.Sprintf("conn-%d", id)
			r.Register(id, handle)
			_ = r.IsOnline(id)
			_ = r.ListOnline()
			if id%2 == 0 {
				r.Release(id, handle)
			}
		}(uint(i))
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
}
