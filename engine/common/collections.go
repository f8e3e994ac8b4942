package common

// StringSet is a set of strings
type StringSet map[string]struct{}

// NewStringSet creates a StringSet from elems
func NewStringSet(elems ...string) StringSet {
	ss := StringSet{}
	for _, elem := range elems {
		ss.Add(elem)
	}
	return ss
}

// Contains checks if StringSet contains the string
func (ss StringSet) Contains(elem string) bool {
	_, ok := ss[elem]
	return ok
}

// Add adds the string to StringSet
func (ss StringSet) Add(elem string) {
	ss[elem] = struct{}{}
}

// Remove removes the string from StringSet
func (ss StringSet) Remove(elem string) {
	delete(ss, elem)
}

// ToList convert StringSet to string slice
func (ss StringSet) ToList() []string {
	keys := make([]string, 0, len(ss))
	for s := range ss {
		keys = append(keys, s)
	}
	return keys
}

// Copy returns a shallow copy of the StringSet
func (ss StringSet) Copy() StringSet {
	cp := make(StringSet, len(ss))
	for s := range ss {
		cp.Add(s)
	}
	return cp
}

// SessionIDSet is a set of session IDs
type SessionIDSet map[SessionID]struct{}

// Add adds the session ID to SessionIDSet
func (ss SessionIDSet) Add(id SessionID) {
	ss[id] = struct{}{}
}

// Del removes the session ID from SessionIDSet
func (ss SessionIDSet) Del(id SessionID) {
	delete(ss, id)
}

// Contains checks if SessionIDSet contains the session ID
func (ss SessionIDSet) Contains(id SessionID) bool {
	_, ok := ss[id]
	return ok
}
