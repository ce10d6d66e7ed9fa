package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupThousands(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1 000",
		50000:    "50 000",
		1234567:  "1 234 567",
		-20000:   "-20 000",
		-100:     "-100",
		12345678: "12 345 678",
	}
	for in, want := range cases {
		assert.Equal(t, want, GroupThousands(in), "GroupThousands(%d)", in)
	}
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "50 000 XOF", NewMoney(50000, "").String())
	assert.Equal(t, "1 200 EUR", NewMoney(1200, "EUR").String())
}

func TestDateRangeContains(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	r := DateRange{Start: start, End: &end}

	assert.True(t, r.Contains(start))
	assert.True(t, r.Contains(end))
	assert.False(t, r.Contains(start.Add(-time.Second)))
	assert.False(t, r.Contains(end.Add(time.Second)))

	open := DateRange{Start: start}
	assert.True(t, open.Contains(start.AddDate(10, 0, 0)))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "12345678", ShortID("1234567890"))
}
