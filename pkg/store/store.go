// Package store implements the typed in-memory key/value engine: a single
// namespace mapping each key to exactly one of five value families (string,
// list, hash, set, sorted set), with lazy per-key expiration and glob-style
// key pattern matching.
//
// Every exported method is atomic with respect to every other method: a
// single mutex serializes all access, satisfying the linearizability
// requirement for operations that span multiple keys (DEL, MGET, SINTER,
// SUNION, KEYS). No method blocks on I/O; the only suspension point is
// acquiring that mutex.
//
// "Touch" is the lazy-expiration check performed at the start of every
// key-accessing operation: if a key's deadline has passed, it is evicted
// before the operation proceeds, so an expired key and an absent key are
// always observationally identical.
package store

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mirkv/mirkv/pkg/match"
)

// Sentinel errors for the command-level error taxonomy (§7). Dispatcher
// message text is derived from Error(), so these strings must match the
// spec's wording exactly; the "ERR " prefix is added by the reply encoder,
// not here.
var (
	ErrWrongType         = errors.New("wrong type")
	ErrNonInteger        = errors.New("value is not an integer or out of range")
	ErrNonFloat          = errors.New("value is not a valid float")
	ErrSyntax            = errors.New("syntax error")
	ErrInvalidExpireTime = errors.New("invalid expire time in set")
)

// valueType tags the variant stored under a key.
type valueType uint8

const (
	typeString valueType = iota
	typeList
	typeHash
	typeSet
	typeSortedSet
)

// entry is a single key's value plus its optional expiry deadline. Folding
// ExpiresAt into the entry itself (rather than a physically separate
// expiry table) makes invariant I2 — every expiring key belongs to exactly
// one value table — true by construction instead of by bookkeeping.
type entry struct {
	data      interface{}
	expiresAt time.Time // zero value means "no expiration"
	typ       valueType
}

func (e *entry) hasExpiry() bool { return !e.expiresAt.IsZero() }

// Store is the shared, thread-safe key/value engine. The zero value is not
// ready for use; construct one with New.
type Store struct {
	mu       sync.Mutex
	data     map[string]*entry
	patterns *match.Cache
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		data:     make(map[string]*entry),
		patterns: match.NewCache(),
	}
}

// touch evicts key if its deadline has passed and reports whether it is
// still present afterward. Callers must hold s.mu.
func (s *Store) touch(key string) (*entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.hasExpiry() && !time.Now().Before(e.expiresAt) {
		delete(s.data, key)
		return nil, false
	}
	return e, true
}

// ---- String family (§4.2.1) ----

// Get retrieves the string value of key. found is false if the key is
// absent or expired. err is ErrWrongType if key holds a non-string value.
func (s *Store) Get(key string) (value []byte, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.touch(key)
	if !ok {
		return nil, false, nil
	}
	if e.typ != typeString {
		return nil, false, ErrWrongType
	}
	return e.data.([]byte), true, nil
}

// Set overwrites key with a string value, always clearing any prior type
// and expiry. If hasTTL is true, the key expires after ttl elapses.
func (s *Store) Set(key string, value []byte, ttl time.Duration, hasTTL bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{typ: typeString, data: value}
	if hasTTL {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.data[key] = e
}

// MSet sets multiple keys to multiple values in a single call. Pairs are
// applied in order, so duplicate keys resolve last-wins; each pair behaves
// exactly like Set with no expiry.
func (s *Store) MSet(pairs [][2][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kv := range pairs {
		s.data[string(kv[0])] = &entry{typ: typeString, data: kv[1]}
	}
}

// MGet retrieves the string values of multiple keys. Each result is nil if
// the corresponding key is missing or holds a non-string value; MGet never
// fails.
func (s *Store) MGet(keys [][]byte) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(keys))
	for i, k := range keys {
		e, ok := s.touch(string(k))
		if !ok || e.typ != typeString {
			continue
		}
		out[i] = e.data.([]byte)
	}
	return out
}

// Del removes each of keys (after touching it) and returns the number
// actually removed.
func (s *Store) Del(keys [][]byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, k := range keys {
		if _, ok := s.touch(string(k)); ok {
			delete(s.data, string(k))
			n++
		}
	}
	return n
}

// Exists counts how many of keys are present (after touching), counting
// duplicates individually.
func (s *Store) Exists(keys [][]byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, k := range keys {
		if _, ok := s.touch(string(k)); ok {
			n++
		}
	}
	return n
}

// IncrBy applies delta to the integer value of key (default "0" if
// absent), storing and returning the canonical decimal result. err is
// ErrWrongType for a non-string key, ErrNonInteger if the existing value
// does not parse as a signed 64-bit integer or the result would overflow.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.touch(key)
	var current int64
	if ok {
		if e.typ != typeString {
			return 0, ErrWrongType
		}
		parsed, err := strconv.ParseInt(string(e.data.([]byte)), 10, 64)
		if err != nil {
			return 0, ErrNonInteger
		}
		current = parsed
	}

	if delta > 0 && current > math.MaxInt64-delta {
		return 0, ErrNonInteger
	}
	if delta < 0 && current < math.MinInt64-delta {
		return 0, ErrNonInteger
	}

	next := current + delta
	s.data[key] = &entry{typ: typeString, data: []byte(strconv.FormatInt(next, 10))}
	return next, nil
}

// Expire sets key's deadline to now+seconds. If seconds <= 0, key is
// deleted immediately (per §4.2.1). Returns 1 if the key existed, 0 if it
// was absent.
func (s *Store) Expire(key string, seconds int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.touch(key)
	if !ok {
		return 0
	}
	if seconds <= 0 {
		delete(s.data, key)
		return 1
	}
	e.expiresAt = time.Now().Add(time.Duration(seconds) * time.Second)
	return 1
}

// TTL returns -2 if key is absent, -1 if it has no expiry, or the whole
// number of seconds remaining otherwise.
func (s *Store) TTL(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.touch(key)
	if !ok {
		return -2
	}
	if !e.hasExpiry() {
		return -1
	}
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		return -2
	}
	return int64(remaining / time.Second)
}

// ---- List family (§4.2.2, left = head) ----

func (s *Store) listFor(key string, create bool) (*entry, []byte, error) {
	e, ok := s.touch(key)
	if !ok {
		if !create {
			return nil, nil, nil
		}
		e = &entry{typ: typeList, data: make([][]byte, 0)}
		s.data[key] = e
		return e, nil, nil
	}
	if e.typ != typeList {
		return nil, nil, ErrWrongType
	}
	return e, nil, nil
}

// LPush prepends values, in argument order, to the head of key's list,
// creating it if absent. Returns the new length.
func (s *Store) LPush(key string, values [][]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.listFor(key, true)
	if err != nil {
		return 0, err
	}
	list := e.data.([][]byte)
	for _, v := range values {
		list = append([][]byte{v}, list...)
	}
	e.data = list
	return int64(len(list)), nil
}

// RPush appends values, in argument order, to the tail of key's list,
// creating it if absent. Returns the new length.
func (s *Store) RPush(key string, values [][]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.listFor(key, true)
	if err != nil {
		return 0, err
	}
	list := e.data.([][]byte)
	list = append(list, values...)
	e.data = list
	return int64(len(list)), nil
}

// LLen returns the length of key's list, or 0 if absent.
func (s *Store) LLen(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.listFor(key, false)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, nil
	}
	return int64(len(e.data.([][]byte))), nil
}

// LRange returns the inclusive slice [start, stop] of key's list, with
// Redis-style negative-index and clamping semantics (§4.2.2).
func (s *Store) LRange(key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _, err := s.listFor(key, false)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return [][]byte{}, nil
	}
	list := e.data.([][]byte)
	lo, hi, ok := normalizeRange(start, stop, len(list))
	if !ok {
		return [][]byte{}, nil
	}
	out := make([][]byte, hi-lo+1)
	copy(out, list[lo:hi+1])
	return out, nil
}

// normalizeRange applies the negative-index/clamp rules shared by LRANGE
// and ZRANGE: negative indices count from the end, start clamps to >= 0,
// stop clamps to <= n-1; an empty or out-of-range window reports ok=false.
func normalizeRange(start, stop int64, n int) (lo, hi int, ok bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	if start < 0 {
		start = 0
	}
	if stop > int64(n-1) {
		stop = int64(n - 1)
	}
	if start > stop || start >= int64(n) {
		return 0, 0, false
	}
	return int(start), int(stop), true
}

// ---- Hash family (§4.2.3) ----

func (s *Store) hashFor(key string, create bool) (*entry, error) {
	e, ok := s.touch(key)
	if !ok {
		if !create {
			return nil, nil
		}
		e = &entry{typ: typeHash, data: make(map[string][]byte)}
		s.data[key] = e
		return e, nil
	}
	if e.typ != typeHash {
		return nil, ErrWrongType
	}
	return e, nil
}

// HSet sets field to value within key's hash, creating the hash if absent.
// Returns 1 if field was new, 0 if it already existed.
func (s *Store) HSet(key, field string, value []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, true)
	if err != nil {
		return 0, err
	}
	hash := e.data.(map[string][]byte)
	_, existed := hash[field]
	hash[field] = value
	if existed {
		return 0, nil
	}
	return 1, nil
}

// HGet returns the value of field within key's hash. found is false if the
// hash or field is absent.
func (s *Store) HGet(key, field string) (value []byte, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, false)
	if err != nil || e == nil {
		return nil, false, err
	}
	v, ok := e.data.(map[string][]byte)[field]
	return v, ok, nil
}

// HDel removes each of fields from key's hash. Returns the number actually
// removed.
func (s *Store) HDel(key string, fields []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	hash := e.data.(map[string][]byte)
	var n int64
	for _, f := range fields {
		if _, ok := hash[f]; ok {
			delete(hash, f)
			n++
		}
	}
	return n, nil
}

// HExists reports whether field exists in key's hash.
func (s *Store) HExists(key, field string) (bool, error) {
	_, found, err := s.HGet(key, field)
	return found, err
}

// HGetAll returns key's hash as interleaved [field1, value1, field2,
// value2, ...]. Iteration order is unspecified.
func (s *Store) HGetAll(key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, false)
	if err != nil || e == nil {
		return [][]byte{}, err
	}
	hash := e.data.(map[string][]byte)
	out := make([][]byte, 0, len(hash)*2)
	for f, v := range hash {
		out = append(out, []byte(f), v)
	}
	return out, nil
}

// HKeys returns the field names of key's hash.
func (s *Store) HKeys(key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, false)
	if err != nil || e == nil {
		return [][]byte{}, err
	}
	hash := e.data.(map[string][]byte)
	out := make([][]byte, 0, len(hash))
	for f := range hash {
		out = append(out, []byte(f))
	}
	return out, nil
}

// HVals returns the field values of key's hash.
func (s *Store) HVals(key string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, false)
	if err != nil || e == nil {
		return [][]byte{}, err
	}
	hash := e.data.(map[string][]byte)
	out := make([][]byte, 0, len(hash))
	for _, v := range hash {
		out = append(out, v)
	}
	return out, nil
}

// HLen returns the number of fields in key's hash.
func (s *Store) HLen(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.hashFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.data.(map[string][]byte))), nil
}

// ---- Set family (§4.2.4) ----

func (s *Store) setFor(key string, create bool) (*entry, error) {
	e, ok := s.touch(key)
	if !ok {
		if !create {
			return nil, nil
		}
		e = &entry{typ: typeSet, data: make(map[string]struct{})}
		s.data[key] = e
		return e, nil
	}
	if e.typ != typeSet {
		return nil, ErrWrongType
	}
	return e, nil
}

// SAdd adds members to key's set, creating it if absent. Returns the
// number of members that were actually new.
func (s *Store) SAdd(key string, members []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.setFor(key, true)
	if err != nil {
		return 0, err
	}
	set := e.data.(map[string]struct{})
	var n int64
	for _, m := range members {
		if _, ok := set[m]; !ok {
			set[m] = struct{}{}
			n++
		}
	}
	return n, nil
}

// SRem removes members from key's set. Returns the number actually
// removed.
func (s *Store) SRem(key string, members []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.setFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	set := e.data.(map[string]struct{})
	var n int64
	for _, m := range members {
		if _, ok := set[m]; ok {
			delete(set, m)
			n++
		}
	}
	return n, nil
}

// SMembers returns all members of key's set. Order is unspecified.
func (s *Store) SMembers(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.setFor(key, false)
	if err != nil || e == nil {
		return []string{}, err
	}
	set := e.data.(map[string]struct{})
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

// SIsMember reports whether member is in key's set.
func (s *Store) SIsMember(key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.setFor(key, false)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.data.(map[string]struct{})[member]
	return ok, nil
}

// SCard returns the number of members in key's set.
func (s *Store) SCard(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.setFor(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.data.(map[string]struct{}))), nil
}

// SInter returns the intersection of the named sets. Any key absent among
// the inputs makes the result empty; any present non-set key is a
// wrongType error.
func (s *Store) SInter(keys []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := make([]map[string]struct{}, len(keys))
	for i, k := range keys {
		e, err := s.setFor(k, false)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return []string{}, nil
		}
		sets[i] = e.data.(map[string]struct{})
	}
	if len(sets) == 0 {
		return []string{}, nil
	}

	smallest := sets[0]
	for _, set := range sets[1:] {
		if len(set) < len(smallest) {
			smallest = set
		}
	}

	out := make([]string, 0, len(smallest))
	for m := range smallest {
		inAll := true
		for _, set := range sets {
			if _, ok := set[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, m)
		}
	}
	return out, nil
}

// SUnion returns the union of the named sets. Absent keys contribute
// nothing; any present non-set key is a wrongType error.
func (s *Store) SUnion(keys []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	union := make(map[string]struct{})
	for _, k := range keys {
		e, err := s.setFor(k, false)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		for m := range e.data.(map[string]struct{}) {
			union[m] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for m := range union {
		out = append(out, m)
	}
	return out, nil
}

// ---- KEYS and glob matching (§4.2.6) ----

// Keys touches every stored key, evicting expired ones, then returns the
// sorted (ascending) list of keys whose name matches pattern.
func (s *Store) Keys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	compiled := s.patterns.Get(pattern)

	now := time.Now()
	var matched []string
	for k, e := range s.data {
		if e.hasExpiry() && !now.Before(e.expiresAt) {
			delete(s.data, k)
			continue
		}
		if compiled.Match([]byte(k)) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	return matched
}
