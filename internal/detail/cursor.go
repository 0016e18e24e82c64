// Package detail segments narration text and services stepwise navigation
// through the segments of the most recent narration.
package detail

import "sync"

// Cursor holds the most recent narration split into ordered sections and a
// current position. Index -1 means no selection yet.
type Cursor struct {
	mu       sync.Mutex
	sections []string
	index    int
}

// NewCursor constructs an empty cursor.
func NewCursor() *Cursor {
	return &Cursor{index: -1}
}

// Load replaces the section collection wholesale and resets the position.
// Empty sections are dropped.
func (c *Cursor) Load(sections []string) {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sections = kept
	c.index = -1
}

// Step moves the cursor one section forward (+1) or backward (-1) and returns
// the selected index and text. From the unselected position the first forward
// step lands on the first section and the first backward step on the last.
// Otherwise the index clamps at both ends: stepping past a boundary re-reads
// the boundary section. ok is false when no sections are loaded.
func (c *Cursor) Step(direction int) (index int, text string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sections) == 0 {
		return -1, "", false
	}

	switch {
	case c.index == -1:
		if direction > 0 {
			c.index = 0
		} else {
			c.index = len(c.sections) - 1
		}
	case direction > 0 && c.index < len(c.sections)-1:
		c.index++
	case direction < 0 && c.index > 0:
		c.index--
	}

	return c.index, c.sections[c.index], true
}

// Len returns the number of loaded sections.
func (c *Cursor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sections)
}
