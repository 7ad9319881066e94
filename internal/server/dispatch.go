package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/mirkv/mirkv/pkg/resp"
	"github.com/mirkv/mirkv/pkg/store"
)

// handlerFunc executes one already-parsed command and returns its encoded
// reply. closeAfter reports whether the connection should be closed once
// the reply has been written (QUIT).
type handlerFunc func(s *Server, args [][]byte) (reply []byte, closeAfter bool)

// commandTable maps uppercased command names to their handlers. Built once
// at package init and never mutated afterward, so dispatch needs no
// locking around the lookup itself.
var commandTable = map[string]handlerFunc{
	"PING": handlePing,
	"ECHO": handleEcho,
	"QUIT": handleQuit,

	"GET":    handleGet,
	"SET":    handleSet,
	"MSET":   handleMSet,
	"MGET":   handleMGet,
	"DEL":    handleDel,
	"EXISTS": handleExists,
	"INCR":   handleIncr,
	"DECR":   handleDecr,
	"INCRBY": handleIncrBy,
	"DECRBY": handleDecrBy,
	"EXPIRE": handleExpire,
	"TTL":    handleTTL,
	"KEYS":   handleKeys,

	"LPUSH":  handleLPush,
	"RPUSH":  handleRPush,
	"LLEN":   handleLLen,
	"LRANGE": handleLRange,

	"HSET":    handleHSet,
	"HGET":    handleHGet,
	"HDEL":    handleHDel,
	"HEXISTS": handleHExists,
	"HGETALL": handleHGetAll,
	"HKEYS":   handleHKeys,
	"HVALS":   handleHVals,
	"HLEN":    handleHLen,

	"SADD":      handleSAdd,
	"SREM":      handleSRem,
	"SMEMBERS":  handleSMembers,
	"SISMEMBER": handleSIsMember,
	"SCARD":     handleSCard,
	"SINTER":    handleSInter,
	"SUNION":    handleSUnion,

	"ZADD":   handleZAdd,
	"ZREM":   handleZRem,
	"ZSCORE": handleZScore,
	"ZRANK":  handleZRank,
	"ZCARD":  handleZCard,
	"ZRANGE": handleZRange,
}

// dispatch looks up and runs the handler for args[0] (case-insensitively),
// returning the canonical uppercased command name for metrics labeling
// alongside the encoded reply.
func (s *Server) dispatch(args [][]byte) (name string, reply []byte, closeAfter bool) {
	if len(args) == 0 {
		return "", resp.EncodeError("unknown command ''"), false
	}
	name = strings.ToUpper(string(args[0]))
	handler, ok := commandTable[name]
	if !ok {
		return name, resp.EncodeError("unknown command '" + string(args[0]) + "'"), false
	}
	reply, closeAfter = handler(s, args)
	return name, reply, closeAfter
}

// arityErr renders the wrongArgs(name) error for a command invoked with
// the wrong number of arguments.
func arityErr(name string) []byte {
	return resp.EncodeError("wrong number of arguments for '" + strings.ToLower(name) + "' command")
}

func storeErrReply(err error) []byte {
	return resp.EncodeError(err.Error())
}

// ---- Utility commands ----

func handlePing(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) > 1 {
		return resp.EncodeBulkString(args[1]), false
	}
	return resp.EncodeSimpleString("PONG"), false
}

func handleEcho(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("ECHO"), false
	}
	return resp.EncodeBulkString(args[1]), false
}

func handleQuit(s *Server, args [][]byte) ([]byte, bool) {
	return resp.EncodeSimpleString("OK"), true
}

// ---- String family ----

func handleGet(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("GET"), false
	}
	value, found, err := s.store.Get(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	if !found {
		return resp.EncodeNullBulk(), false
	}
	return resp.EncodeBulkString(value), false
}

// parseExpireOption parses SET's optional trailing "EX <seconds>" or
// "PX <milliseconds>" clause. A nil errReply means parsing succeeded
// (hasTTL may still be false if no option was given).
func parseExpireOption(rest [][]byte) (ttl time.Duration, hasTTL bool, errReply []byte) {
	if len(rest) == 0 {
		return 0, false, nil
	}
	if len(rest) != 2 {
		return 0, false, storeErrReply(store.ErrSyntax)
	}

	opt := strings.ToUpper(string(rest[0]))
	n, err := strconv.ParseInt(string(rest[1]), 10, 64)
	if err != nil {
		return 0, false, storeErrReply(store.ErrNonInteger)
	}

	switch opt {
	case "EX":
		if n <= 0 {
			return 0, false, storeErrReply(store.ErrInvalidExpireTime)
		}
		return time.Duration(n) * time.Second, true, nil
	case "PX":
		if n <= 0 {
			return 0, false, storeErrReply(store.ErrInvalidExpireTime)
		}
		return time.Duration(n) * time.Millisecond, true, nil
	default:
		return 0, false, storeErrReply(store.ErrSyntax)
	}
}

func handleSet(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("SET"), false
	}
	ttl, hasTTL, errReply := parseExpireOption(args[3:])
	if errReply != nil {
		return errReply, false
	}
	s.store.Set(string(args[1]), args[2], ttl, hasTTL)
	return resp.EncodeSimpleString("OK"), false
}

func handleMSet(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 || len(args)%2 != 1 {
		return arityErr("MSET"), false
	}
	pairs := make([][2][]byte, 0, (len(args)-1)/2)
	for i := 1; i+1 < len(args); i += 2 {
		pairs = append(pairs, [2][]byte{args[i], args[i+1]})
	}
	s.store.MSet(pairs)
	return resp.EncodeSimpleString("OK"), false
}

func handleMGet(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 2 {
		return arityErr("MGET"), false
	}
	values := s.store.MGet(args[1:])
	buf := resp.EncodeArrayHeader(len(values))
	for _, v := range values {
		if v == nil {
			buf = append(buf, resp.EncodeNullBulk()...)
			continue
		}
		buf = append(buf, resp.EncodeBulkString(v)...)
	}
	return buf, false
}

func handleDel(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 2 {
		return arityErr("DEL"), false
	}
	return resp.EncodeInteger(s.store.Del(args[1:])), false
}

func handleExists(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 2 {
		return arityErr("EXISTS"), false
	}
	return resp.EncodeInteger(s.store.Exists(args[1:])), false
}

func handleIncr(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("INCR"), false
	}
	n, err := s.store.IncrBy(string(args[1]), 1)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleDecr(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("DECR"), false
	}
	n, err := s.store.IncrBy(string(args[1]), -1)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleIncrBy(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("INCRBY"), false
	}
	delta, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	n, err := s.store.IncrBy(string(args[1]), delta)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleDecrBy(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("DECRBY"), false
	}
	delta, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	n, err := s.store.IncrBy(string(args[1]), -delta)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleExpire(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("EXPIRE"), false
	}
	seconds, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	return resp.EncodeInteger(s.store.Expire(string(args[1]), seconds)), false
}

func handleTTL(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("TTL"), false
	}
	return resp.EncodeInteger(s.store.TTL(string(args[1]))), false
}

func handleKeys(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("KEYS"), false
	}
	keys := s.store.Keys(string(args[1]))
	items := make([][]byte, len(keys))
	for i, k := range keys {
		items[i] = []byte(k)
	}
	return resp.EncodeBulkArray(items), false
}

// ---- List family ----

func handleLPush(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("LPUSH"), false
	}
	n, err := s.store.LPush(string(args[1]), args[2:])
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleRPush(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("RPUSH"), false
	}
	n, err := s.store.RPush(string(args[1]), args[2:])
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleLLen(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("LLEN"), false
	}
	n, err := s.store.LLen(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleLRange(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 4 {
		return arityErr("LRANGE"), false
	}
	start, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	stop, err := strconv.ParseInt(string(args[3]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	items, err := s.store.LRange(string(args[1]), start, stop)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeBulkArray(items), false
}

// ---- Hash family ----

func handleHSet(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 4 {
		return arityErr("HSET"), false
	}
	n, err := s.store.HSet(string(args[1]), string(args[2]), args[3])
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleHGet(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("HGET"), false
	}
	value, found, err := s.store.HGet(string(args[1]), string(args[2]))
	if err != nil {
		return storeErrReply(err), false
	}
	if !found {
		return resp.EncodeNullBulk(), false
	}
	return resp.EncodeBulkString(value), false
}

func handleHDel(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("HDEL"), false
	}
	fields := make([]string, len(args)-2)
	for i, f := range args[2:] {
		fields[i] = string(f)
	}
	n, err := s.store.HDel(string(args[1]), fields)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleHExists(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("HEXISTS"), false
	}
	ok, err := s.store.HExists(string(args[1]), string(args[2]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(boolToInt(ok)), false
}

func handleHGetAll(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("HGETALL"), false
	}
	items, err := s.store.HGetAll(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeBulkArray(items), false
}

func handleHKeys(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("HKEYS"), false
	}
	items, err := s.store.HKeys(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeBulkArray(items), false
}

func handleHVals(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("HVALS"), false
	}
	items, err := s.store.HVals(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeBulkArray(items), false
}

func handleHLen(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("HLEN"), false
	}
	n, err := s.store.HLen(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

// ---- Set family ----

func bytesToStrings(items [][]byte) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = string(b)
	}
	return out
}

func stringsToBulkArray(items []string) []byte {
	bs := make([][]byte, len(items))
	for i, m := range items {
		bs[i] = []byte(m)
	}
	return resp.EncodeBulkArray(bs)
}

func handleSAdd(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("SADD"), false
	}
	n, err := s.store.SAdd(string(args[1]), bytesToStrings(args[2:]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleSRem(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("SREM"), false
	}
	n, err := s.store.SRem(string(args[1]), bytesToStrings(args[2:]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleSMembers(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("SMEMBERS"), false
	}
	members, err := s.store.SMembers(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return stringsToBulkArray(members), false
}

func handleSIsMember(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("SISMEMBER"), false
	}
	ok, err := s.store.SIsMember(string(args[1]), string(args[2]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(boolToInt(ok)), false
}

func handleSCard(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("SCARD"), false
	}
	n, err := s.store.SCard(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleSInter(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 2 {
		return arityErr("SINTER"), false
	}
	members, err := s.store.SInter(bytesToStrings(args[1:]))
	if err != nil {
		return storeErrReply(err), false
	}
	return stringsToBulkArray(members), false
}

func handleSUnion(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 2 {
		return arityErr("SUNION"), false
	}
	members, err := s.store.SUnion(bytesToStrings(args[1:]))
	if err != nil {
		return storeErrReply(err), false
	}
	return stringsToBulkArray(members), false
}

// ---- Sorted set family ----

func parseFloatArg(b []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, store.ErrNonFloat
	}
	return f, nil
}

func handleZAdd(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 4 || len(args)%2 != 0 {
		return arityErr("ZADD"), false
	}
	rest := args[2:]
	pairs := make([]store.ZAddPair, 0, len(rest)/2)
	for i := 0; i+1 < len(rest); i += 2 {
		score, err := parseFloatArg(rest[i])
		if err != nil {
			return storeErrReply(err), false
		}
		pairs = append(pairs, store.ZAddPair{Member: string(rest[i+1]), Score: score})
	}
	n, err := s.store.ZAdd(string(args[1]), pairs)
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleZRem(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) < 3 {
		return arityErr("ZREM"), false
	}
	n, err := s.store.ZRem(string(args[1]), bytesToStrings(args[2:]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleZScore(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("ZSCORE"), false
	}
	score, found, err := s.store.ZScore(string(args[1]), string(args[2]))
	if err != nil {
		return storeErrReply(err), false
	}
	if !found {
		return resp.EncodeNullBulk(), false
	}
	return resp.EncodeBulkString([]byte(resp.FormatScore(score))), false
}

func handleZRank(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 3 {
		return arityErr("ZRANK"), false
	}
	rank, found, err := s.store.ZRank(string(args[1]), string(args[2]))
	if err != nil {
		return storeErrReply(err), false
	}
	if !found {
		return resp.EncodeNullBulk(), false
	}
	return resp.EncodeInteger(rank), false
}

func handleZCard(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 2 {
		return arityErr("ZCARD"), false
	}
	n, err := s.store.ZCard(string(args[1]))
	if err != nil {
		return storeErrReply(err), false
	}
	return resp.EncodeInteger(n), false
}

func handleZRange(s *Server, args [][]byte) ([]byte, bool) {
	if len(args) != 4 && len(args) != 5 {
		return arityErr("ZRANGE"), false
	}
	withScores := false
	if len(args) == 5 {
		if strings.ToUpper(string(args[4])) != "WITHSCORES" {
			return storeErrReply(store.ErrSyntax), false
		}
		withScores = true
	}
	start, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	stop, err := strconv.ParseInt(string(args[3]), 10, 64)
	if err != nil {
		return storeErrReply(store.ErrNonInteger), false
	}
	members, err := s.store.ZRange(string(args[1]), start, stop)
	if err != nil {
		return storeErrReply(err), false
	}

	if !withScores {
		items := make([][]byte, len(members))
		for i, m := range members {
			items[i] = []byte(m.Member)
		}
		return resp.EncodeBulkArray(items), false
	}

	buf := resp.EncodeArrayHeader(len(members) * 2)
	for _, m := range members {
		buf = append(buf, resp.EncodeBulkString([]byte(m.Member))...)
		buf = append(buf, resp.EncodeBulkString([]byte(resp.FormatScore(m.Score)))...)
	}
	return buf, false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
