package dashboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"folio/pkg/dashboard"
)

func TestPagerClampsGoTo(t *testing.T) {
	p := dashboard.NewPager(10)
	p.SetTotalPages(5)

	for _, n := range []int{-10, 0, 1, 3, 5, 6, 1000} {
		p.GoTo(n)
		assert.GreaterOrEqual(t, p.Current(), 1, "goTo(%d)", n)
		assert.LessOrEqual(t, p.Current(), 5, "goTo(%d)", n)
	}

	p.GoTo(0)
	assert.Equal(t, 1, p.Current())
	p.GoTo(99)
	assert.Equal(t, 5, p.Current())
}

func TestPagerNextAndPrevious(t *testing.T) {
	p := dashboard.NewPager(10)
	p.SetTotalPages(2)

	p.Previous()
	assert.Equal(t, 1, p.Current())

	p.Next()
	assert.Equal(t, 2, p.Current())

	p.Next()
	assert.Equal(t, 2, p.Current())

	p.Previous()
	assert.Equal(t, 1, p.Current())
}

func TestPagerReset(t *testing.T) {
	p := dashboard.NewPager(10)
	p.SetTotalPages(5)
	p.GoTo(3)

	p.Reset()
	assert.Equal(t, 1, p.Current())
}

func TestPagerShrinkingTotalReclamps(t *testing.T) {
	p := dashboard.NewPager(10)
	p.SetTotalPages(8)
	p.GoTo(8)

	p.SetTotalPages(3)
	assert.Equal(t, 3, p.Current())
}

func TestPagerEmpty(t *testing.T) {
	p := dashboard.NewPager(0)
	assert.True(t, p.Empty())
	assert.Equal(t, dashboard.DefaultPageSize, p.PageSize())

	p.Next()
	p.GoTo(4)
	assert.Equal(t, 1, p.Current())

	p.SetTotalPages(1)
	assert.False(t, p.Empty())
	assert.Equal(t, dashboard.PageState{CurrentPage: 1, TotalPages: 1, PageSize: 10}, p.State())
}
