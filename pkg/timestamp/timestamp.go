// Package timestamp formats wall-clock prefixes for displayed and logged data.
package timestamp

import "time"

// Layout is the UTC timestamp format used for every prefix.
const Layout = "2006-01-02 15:04:05.000"

// Cache returns the formatted current time, reformatting only when the
// wall clock has moved to a new millisecond. A Cache is not safe for
// concurrent use; each goroutine keeps its own.
type Cache struct {
	now        func() time.Time
	lastMillis int64
	valid      bool
	buf        []byte
	text       string
	formats    int
}

// NewCache creates a Cache reading the given clock. A nil clock means time.Now.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now, buf: make([]byte, 0, len(Layout))}
}

// Now returns the timestamp text for the current millisecond.
func (c *Cache) Now() string {
	t := c.now().UTC()
	ms := t.UnixMilli()
	if c.valid && ms == c.lastMillis {
		return c.text
	}

	c.buf = t.AppendFormat(c.buf[:0], Layout)
	c.text = string(c.buf)
	c.lastMillis = ms
	c.valid = true
	c.formats++
	return c.text
}
