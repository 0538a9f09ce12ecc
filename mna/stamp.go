package mna

import "github.com/fly204/spicesim/internal/sparse"

// Binding is handed to a device's Setup method. Devices call its
// Element methods once, while topology is frozen, and keep the
// returned handles as struct fields to reuse on every later Stamp —
// this is the "matrix elements obtained earlier" spec.md's Load
// contract refers to.
type Binding struct {
	eq *Equations
}

// Element returns a stable handle to matrix cell (row, col).
func (b *Binding) Element(row, col NodeID) *sparse.Element {
	return b.eq.A.GetElement(b.eq.row(row), b.eq.row(col))
}

// BranchElement returns a stable handle into the row/column owned by
// a voltage-defined branch's auxiliary current unknown.
func (b *Binding) BranchElement(id VoltageID, col NodeID) *sparse.Element {
	return b.eq.A.GetElement(b.eq.branchRow(id), b.eq.row(col))
}

// NodeBranchElement is the transpose of BranchElement: the KCL row for
// a node, column belonging to a branch current.
func (b *Binding) NodeBranchElement(row NodeID, id VoltageID) *sparse.Element {
	return b.eq.A.GetElement(b.eq.row(row), b.eq.branchRow(id))
}

// BranchSelfElement returns the handle for a branch row's own diagonal
// cell (its column is its own current unknown), used by devices whose
// branch constraint depends on the branch current itself (e.g. an
// inductor's V1-V2-L·g_eq·I = L·i_eq).
func (b *Binding) BranchSelfElement(id VoltageID) *sparse.Element {
	r := b.eq.branchRow(id)
	return b.eq.A.GetElement(r, r)
}

// NewBinding constructs the Setup-time view over eq.
func NewBinding(eq *Equations) *Binding { return &Binding{eq: eq} }

// Stamp is the view devices use during Load to mutate Z (the matrix
// itself is mutated through handles bound in Setup). It also offers
// the convenience Stamp* helpers the teacher's mna.Stamp interface
// exposes, for devices that don't need cached handles because they
// stamp a constant topology cheaply (e.g. independent sources).
type Stamp struct {
	Eq *Equations
}

// NewStamp constructs the Load-time view over eq.
func NewStamp(eq *Equations) *Stamp { return &Stamp{Eq: eq} }

// AddRHS accumulates v into the RHS row owned by node n.
func (s *Stamp) AddRHS(n NodeID, v float64) {
	r := s.Eq.row(n)
	if r < 0 {
		return
	}
	s.Eq.Z.Add(r, v)
}

// SetRHS overwrites the RHS row owned by node n.
func (s *Stamp) SetRHS(n NodeID, v float64) {
	r := s.Eq.row(n)
	if r < 0 {
		return
	}
	s.Eq.Z.Set(r, v)
}

// AddBranchRHS accumulates v into the RHS row owned by a
// voltage-defined branch's auxiliary current unknown.
func (s *Stamp) AddBranchRHS(id VoltageID, v float64) {
	s.Eq.Z.Add(s.Eq.branchRow(id), v)
}

// SetBranchRHS overwrites the RHS row owned by a voltage-defined
// branch's auxiliary current unknown.
func (s *Stamp) SetBranchRHS(id VoltageID, v float64) {
	s.Eq.Z.Set(s.Eq.branchRow(id), v)
}

// NodeVoltage reads the previous Newton iterate's voltage at n, the
// "prediction" devices bias their linearization around mid-iteration.
func (s *Stamp) NodeVoltage(n NodeID) float64 { return s.Eq.NodeVoltage(n) }

// BranchCurrent reads the previous Newton iterate's branch current.
func (s *Stamp) BranchCurrent(id VoltageID) float64 { return s.Eq.BranchCurrent(id) }

// StampConductance adds a two-terminal conductance g between n1 and
// n2 directly to cells looked up afresh on every call; intended for
// devices that do not cache their own handles (the basic Resistor
// caches handles in Setup instead).
func (s *Stamp) StampConductance(n1, n2 NodeID, g float64) {
	b := NewBinding(s.Eq)
	b.Element(n1, n1).Add(g)
	b.Element(n2, n2).Add(g)
	b.Element(n1, n2).Add(-g)
	b.Element(n2, n1).Add(-g)
}

// StampCurrentSource adds an independent current source flowing from
// n1 to n2 with magnitude i to the RHS.
func (s *Stamp) StampCurrentSource(n1, n2 NodeID, i float64) {
	s.AddRHS(n1, -i)
	s.AddRHS(n2, i)
}
