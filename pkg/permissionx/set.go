package permissionx

import "slices"

// permissionSet is an insertion-ordered set of permission identifiers.
type permissionSet struct {
	order []string
	index map[string]struct{}
}

func newPermissionSet(ids ...string) *permissionSet {
	s := &permissionSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *permissionSet) add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *permissionSet) remove(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

func (s *permissionSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *permissionSet) len() int {
	return len(s.order)
}

// list returns a copy; callers may keep or mutate it.
func (s *permissionSet) list() []string {
	if len(s.order) == 0 {
		return []string{}
	}
	return slices.Clone(s.order)
}

func (s *permissionSet) clear() {
	s.order = s.order[:0]
	clear(s.index)
}
