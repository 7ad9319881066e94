package store

import "sort"

// zmember is one (member, score) pair held in a sorted set's ordered
// index.
type zmember struct {
	member string
	score  float64
}

// less orders zmembers by score first, then lexicographically by member,
// giving the ordered index a total order even when scores tie (§9).
func (a zmember) less(b zmember) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// zset is the composite structure backing the sorted-set family: a
// member->score map for O(1) ZSCORE lookups, plus an index kept sorted by
// (score, member) for ordered rank and range queries (§9's design note).
// Membership changes rewrite the index via insertion/removal at a binary
// searched position; this is O(n) per mutation, which is acceptable at the
// scale this engine targets and keeps the structure simple to reason
// about without a balanced-tree implementation.
type zset struct {
	scores map[string]float64
	index  []zmember
}

func newZSet() *zset {
	return &zset{scores: make(map[string]float64)}
}

// searchIndex returns the position where target belongs in z.index, i.e.
// the first index whose entry is not less than target.
func (z *zset) searchIndex(target zmember) int {
	return sort.Search(len(z.index), func(i int) bool {
		return !z.index[i].less(target)
	})
}

// add sets member's score, inserting it if new or repositioning it if the
// score changed. Reports whether member was newly added.
func (z *zset) add(member string, score float64) bool {
	if old, ok := z.scores[member]; ok {
		if old == score {
			return false
		}
		z.removeFromIndex(zmember{member: member, score: old})
		z.scores[member] = score
		z.insertIntoIndex(zmember{member: member, score: score})
		return false
	}
	z.scores[member] = score
	z.insertIntoIndex(zmember{member: member, score: score})
	return true
}

func (z *zset) insertIntoIndex(zm zmember) {
	i := z.searchIndex(zm)
	z.index = append(z.index, zmember{})
	copy(z.index[i+1:], z.index[i:])
	z.index[i] = zm
}

func (z *zset) removeFromIndex(zm zmember) {
	i := z.searchIndex(zm)
	if i < len(z.index) && z.index[i] == zm {
		z.index = append(z.index[:i], z.index[i+1:]...)
	}
}

// remove deletes member if present, reporting whether it was removed.
func (z *zset) remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	delete(z.scores, member)
	z.removeFromIndex(zmember{member: member, score: score})
	return true
}

// score returns member's score.
func (z *zset) score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

// rank returns member's zero-based position in ascending (score, member)
// order.
func (z *zset) rank(member string) (int, bool) {
	score, ok := z.scores[member]
	if !ok {
		return 0, false
	}
	i := z.searchIndex(zmember{member: member, score: score})
	if i < len(z.index) && z.index[i].member == member {
		return i, true
	}
	return 0, false
}

// card returns the number of members.
func (z *zset) card() int {
	return len(z.scores)
}

// rangeByIndex returns the members in ascending rank order over the
// inclusive window [start, stop], applying the same negative-index and
// clamping rules as LRANGE.
func (z *zset) rangeByIndex(start, stop int64) []zmember {
	lo, hi, ok := normalizeRange(start, stop, len(z.index))
	if !ok {
		return nil
	}
	out := make([]zmember, hi-lo+1)
	copy(out, z.index[lo:hi+1])
	return out
}

// ---- Store methods for the sorted-set family (§4.2.5) ----

func (s *Store) zsetFor(key string, create bool) (*entry, error) {
	e, ok := s.touch(key)
	if !ok {
		if !create {
			return nil, nil
		}
		e = &entry{typ: typeSortedSet, data: newZSet()}
		s.data[key] = e
		return e, nil
	}
	if e.typ != typeSortedSet {
		return nil, ErrWrongType
	}
	return e, nil
}

// ZAddPair is one (score, member) pair in a ZAdd call.
type ZAddPair struct {
	Member string
	Score  float64
}

// ZAdd sets the score of each member in pairs within key's sorted set,
// creating the set if absent, per spec.md §4.2.5's `ZADD k (score,
// member)⁺` grammar. Pairs are applied in order, so a duplicate member
// within the same call resolves last-wins. Returns the number of members
// that were newly added across all pairs (updates to existing members do
// not count).
func (s *Store) ZAdd(key string, pairs []ZAddPair) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.zsetFor(key, true)
	if err != nil {
		return 0, err
	}
	z := e.data.(*zset)
	var n int64
	for _, p := range pairs {
		if z.add(p.Member, p.Score) {
			n++
		}
	}
	return n, nil
}

// ZScore returns member's score within key's sorted set. found is false if
// the set or member is absent.
func (s *Store) ZScore(key, member string) (score float64, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, false, err
	}
	sc, ok := e.data.(*zset).score(member)
	return sc, ok, nil
}

// ZRank returns member's zero-based rank (ascending score order) within
// key's sorted set. found is false if the set or member is absent.
func (s *Store) ZRank(key, member string) (rank int64, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, false, err
	}
	r, ok := e.data.(*zset).rank(member)
	return int64(r), ok, nil
}

// ZRem removes members from key's sorted set. Returns the number actually
// removed.
func (s *Store) ZRem(key string, members []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	z := e.data.(*zset)
	var n int64
	for _, m := range members {
		if z.remove(m) {
			n++
		}
	}
	return n, nil
}

// ZCard returns the number of members in key's sorted set.
func (s *Store) ZCard(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(e.data.(*zset).card()), nil
}

// ZMember is one (member, score) pair as returned by ZRange.
type ZMember struct {
	Member string
	Score  float64
}

// ZRange returns the members of key's sorted set in ascending rank order
// over the inclusive window [start, stop], with the same negative-index
// and clamping semantics as LRANGE.
func (s *Store) ZRange(key string, start, stop int64) ([]ZMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.zsetFor(key, false)
	if err != nil || e == nil {
		return []ZMember{}, err
	}
	zms := e.data.(*zset).rangeByIndex(start, stop)
	out := make([]ZMember, len(zms))
	for i, zm := range zms {
		out[i] = ZMember{Member: zm.member, Score: zm.score}
	}
	return out, nil
}
