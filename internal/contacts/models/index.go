package models

// ContactIndex maps identifier-or-uuid to a contact while remembering the
// order keys were first inserted. Iteration follows that order, which makes
// "first match in iteration order" deterministic across runs.
type ContactIndex struct {
	keys     []string
	contacts map[string]*Contact
}

// NewContactIndex returns an empty index.
func NewContactIndex() *ContactIndex {
	return &ContactIndex{contacts: make(map[string]*Contact)}
}

// Put stores c under key. Re-putting an existing key replaces the contact
// but keeps its original position.
func (i *ContactIndex) Put(key string, c *Contact) {
	if key == "" || c == nil {
		return
	}
	if _, ok := i.contacts[key]; !ok {
		i.keys = append(i.keys, key)
	}
	i.contacts[key] = c
}

// Add stores c under its IndexKey.
func (i *ContactIndex) Add(c *Contact) {
	if c == nil {
		return
	}
	i.Put(c.IndexKey(), c)
}

// Get returns the contact stored under key.
func (i *ContactIndex) Get(key string) (*Contact, bool) {
	if i == nil {
		return nil, false
	}
	c, ok := i.contacts[key]
	return c, ok
}

// Delete removes key from the index.
func (i *ContactIndex) Delete(key string) {
	if _, ok := i.contacts[key]; !ok {
		return
	}
	delete(i.contacts, key)
	for n, k := range i.keys {
		if k == key {
			i.keys = append(i.keys[:n], i.keys[n+1:]...)
			break
		}
	}
}

// Len returns the number of indexed contacts.
func (i *ContactIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.contacts)
}

// Keys returns the keys in insertion order.
func (i *ContactIndex) Keys() []string {
	if i == nil {
		return nil
	}
	return append([]string(nil), i.keys...)
}

// Each calls fn for every entry in insertion order until fn returns false.
func (i *ContactIndex) Each(fn func(key string, c *Contact) bool) {
	if i == nil {
		return
	}
	for _, k := range i.keys {
		if !fn(k, i.contacts[k]) {
			return
		}
	}
}

// Contacts returns the contacts in insertion order.
func (i *ContactIndex) Contacts() []*Contact {
	out := make([]*Contact, 0, i.Len())
	i.Each(func(_ string, c *Contact) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Clone copies the index and every contact in it.
func (i *ContactIndex) Clone() *ContactIndex {
	out := NewContactIndex()
	i.Each(func(k string, c *Contact) bool {
		out.Put(k, c.Clone())
		return true
	})
	return out
}
