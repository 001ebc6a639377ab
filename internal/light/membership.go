package light

// Membership is the fixed partition of member ids into a primary set and a
// secondary set. It is immutable after construction. A member may legally
// appear in both sets, although typical configuration keeps them disjoint.
type Membership struct {
	primary   []MemberID
	secondary []MemberID
	all       []MemberID
	primSet   map[MemberID]struct{}
}

// NewMembership builds a membership from the configured primary and
// secondary member lists. The input slices are copied.
func NewMembership(primary, secondary []MemberID) Membership {
	m := Membership{
		primary:   append([]MemberID(nil), primary...),
		secondary: append([]MemberID(nil), secondary...),
		primSet:   make(map[MemberID]struct{}, len(primary)),
	}
	m.all = make([]MemberID, 0, len(primary)+len(secondary))
	m.all = append(m.all, m.primary...)
	m.all = append(m.all, m.secondary...)
	for _, id := range m.primary {
		m.primSet[id] = struct{}{}
	}
	return m
}

// Primary returns the primary member ids. Callers must not mutate the
// returned slice.
func (m Membership) Primary() []MemberID {
	return m.primary
}

// Secondary returns the secondary member ids. Callers must not mutate the
// returned slice.
func (m Membership) Secondary() []MemberID {
	return m.secondary
}

// All returns the union of primary and secondary, primaries first. Callers
// must not mutate the returned slice.
func (m Membership) All() []MemberID {
	return m.all
}

// IsPrimary reports whether id belongs to the primary set.
func (m Membership) IsPrimary(id MemberID) bool {
	_, ok := m.primSet[id]
	return ok
}
