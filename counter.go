package grapple

// enterLeaveCounter tracks which elements the pointer is logically inside
// during a drag. Hosts report enter on a nested element before the matching
// leave on its parent, and can drop leave events entirely, so the raw stream
// cannot be consumed as a balanced sequence. The counter answers the only
// two questions the translator has: did the pointer just come in from
// outside, and did it just fully leave.
type enterLeaveCounter struct {
	entered    []*Element
	inDocument func(*Element) bool
}

func newEnterLeaveCounter(inDocument func(*Element) bool) *enterLeaveCounter {
	return &enterLeaveCounter{inDocument: inDocument}
}

// Enter records entering and reports whether the pointer was previously
// outside every tracked element (a true first entry).
func (c *enterLeaveCounter) Enter(entering *Element) bool {
	previous := len(c.entered)

	// Keep only elements still in the document that contain the entering
	// element; anything else is a stale entry whose leave was missed.
	kept := c.entered[:0]
	for _, el := range c.entered {
		if c.inDocument(el) && el.Contains(entering) {
			kept = append(kept, el)
		}
	}
	for i := len(kept); i < len(c.entered); i++ {
		c.entered[i] = nil
	}
	c.entered = kept

	found := false
	for _, el := range c.entered {
		if el == entering {
			found = true
			break
		}
	}
	if !found {
		c.entered = append(c.entered, entering)
	}

	return previous == 0 && len(c.entered) > 0
}

// Leave records leaving and reports whether the pointer just fully left
// (the tracked set became empty having been non-empty).
func (c *enterLeaveCounter) Leave(leaving *Element) bool {
	previous := len(c.entered)

	kept := c.entered[:0]
	for _, el := range c.entered {
		if c.inDocument(el) && el != leaving {
			kept = append(kept, el)
		}
	}
	for i := len(kept); i < len(c.entered); i++ {
		c.entered[i] = nil
	}
	c.entered = kept

	return previous > 0 && len(c.entered) == 0
}

// Reset clears the tracked set.
func (c *enterLeaveCounter) Reset() {
	for i := range c.entered {
		c.entered[i] = nil
	}
	c.entered = c.entered[:0]
}
