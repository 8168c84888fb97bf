package checkout

import (
	"context"
	"sort"
	"sync"

	"github.com/irsalhamdi/e-learning-market/core/balance"
	"github.com/irsalhamdi/e-learning-market/core/cart"
	"github.com/irsalhamdi/e-learning-market/core/enrollment"
	"github.com/shopspring/decimal"
)

// memState mirrors the checkout tables. Each method is atomic.
type memState struct {
	mu          sync.Mutex
	carts       map[string][]cart.Line
	enrollments map[string]enrollment.Enrollment
	balances    map[string]decimal.Decimal
	settlements map[string]Settlement
	creditErr   error
}

func newMemState() *memState {
	return &memState{
		carts:       make(map[string][]cart.Line),
		enrollments: make(map[string]enrollment.Enrollment),
		balances:    make(map[string]decimal.Decimal),
		settlements: make(map[string]Settlement),
	}
}

func (s *memState) clone() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := newMemState()
	for k, v := range s.carts {
		c.carts[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.settlements {
		v.Items = append([]SettlementItem(nil), v.Items...)
		c.settlements[k] = v
	}
	c.creditErr = s.creditErr
	return c
}

func (s *memState) commit(tx *memState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts = tx.carts
	s.enrollments = tx.enrollments
	s.balances = tx.balances
	s.settlements = tx.settlements
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *memState) FetchCart(ctx context.Context, userID string) ([]cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cart.Line{}, s.carts[userID]...), nil
}

func (s *memState) CountCart(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[userID]), nil
}

func (s *memState) CountCartItems(ctx context.Context, userID string, itemIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.carts[userID] {
		if contains(itemIDs, l.ID) {
			n++
		}
	}
	return n, nil
}

func (s *memState) deleteWhere(userID string, match func(cart.Line) bool) int64 {
	var (
		kept []cart.Line
		n    int64
	)
	for _, l := range s.carts[userID] {
		if match(l) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	s.carts[userID] = kept
	return n
}

func (s *memState) DeleteCartItems(ctx context.Context, userID string, itemIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(userID, func(l cart.Line) bool { return contains(itemIDs, l.ID) }), nil
}

func (s *memState) DeleteCartCourses(ctx context.Context, userID string, courseIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(userID, func(l cart.Line) bool { return contains(courseIDs, l.CourseID) }), nil
}

func (s *memState) Grant(ctx context.Context, e enrollment.Enrollment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.UserID + "/" + e.CourseID
	if _, ok := s.enrollments[key]; ok {
		return false, nil
	}
	s.enrollments[key] = e
	return true, nil
}

func (s *memState) Credit(ctx context.Context, instructorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creditErr != nil {
		return decimal.Zero, s.creditErr
	}
	if !amount.IsPositive() {
		return decimal.Zero, balance.ErrInvalidAmount
	}
	s.balances[instructorID] = s.balances[instructorID].Add(amount)
	return s.balances[instructorID], nil
}

func (s *memState) CreateSettlement(ctx context.Context, st Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settlements[st.ReferenceID]; ok {
		return ErrDuplicateSettlement
	}
	st.Items = append([]SettlementItem(nil), st.Items...)
	for i := range st.Items {
		st.Items[i].ReferenceID = st.ReferenceID
	}
	s.settlements[st.ReferenceID] = st
	return nil
}

func (s *memState) FetchSettlement(ctx context.Context, referenceID string) (Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[referenceID]
	if !ok {
		return Settlement{}, ErrSettlementNotFound
	}
	st.Items = append([]SettlementItem{}, st.Items...)
	return st, nil
}

func (s *memState) ListSettlements(ctx context.Context, status string, page int, rows int) ([]Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss := []Settlement{}
	for _, st := range s.settlements {
		if status == "" || st.Status == status {
			st.Items = nil
			ss = append(ss, st)
		}
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].ReferenceID < ss[j].ReferenceID })

	from := (page - 1) * rows
	if from >= len(ss) {
		return []Settlement{}, nil
	}
	to := from + rows
	if to > len(ss) {
		to = len(ss)
	}
	return ss[from:to], nil
}

func (s *memState) MarkSettled(ctx context.Context, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[referenceID]
	if !ok || st.Status == StatusSettled {
		return ErrSettlementNotFound
	}
	st.Status = StatusSettled
	st.Failure = ""
	s.settlements[referenceID] = st
	return nil
}

func (s *memState) MarkFailed(ctx context.Context, referenceID string, failure string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settlements[referenceID]
	if !ok || st.Status == StatusSettled {
		return nil
	}
	st.Status = StatusFailed
	st.Failure = failure
	s.settlements[referenceID] = st
	return nil
}

// memStore runs transactions one at a time on a copy of the state and
// keeps the copy only when fn succeeds.
type memStore struct {
	*memState
	txMu       sync.Mutex
	afterFetch func()
}

func newMemStore() *memStore {
	return &memStore{memState: newMemState()}
}

func (m *memStore) FetchCart(ctx context.Context, userID string) ([]cart.Line, error) {
	lines, err := m.memState.FetchCart(ctx, userID)
	if m.afterFetch != nil {
		m.afterFetch()
	}
	return lines, err
}

func (m *memStore) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := m.memState.clone()
	if err := fn(tx); err != nil {
		return err
	}
	m.memState.commit(tx)
	return nil
}

func (m *memStore) addLines(userID string, lines ...cart.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = append(m.carts[userID], lines...)
}

func (m *memStore) cartOf(userID string) []cart.Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cart.Line{}, m.carts[userID]...)
}

func (m *memStore) balanceOf(instructorID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[instructorID]
}

func (m *memStore) enrolled(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for _, e := range m.enrollments {
		if e.UserID == userID {
			ids = append(ids, e.CourseID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (m *memStore) setCreditErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creditErr = err
}
