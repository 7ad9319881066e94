package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchLiteral(t *testing.T) {
	p := Compile("abc")
	assert.True(t, p.Match([]byte("abc")))
	assert.False(t, p.Match([]byte("abcd")))
	assert.False(t, p.Match([]byte("ab")))
}

func TestMatchStar(t *testing.T) {
	p := Compile("a*c")
	assert.True(t, p.Match([]byte("ac")))
	assert.True(t, p.Match([]byte("abc")))
	assert.True(t, p.Match([]byte("abbbbc")))
	assert.False(t, p.Match([]byte("abcd")))
}

func TestMatchQuestion(t *testing.T) {
	p := Compile("a?c")
	assert.True(t, p.Match([]byte("abc")))
	assert.True(t, p.Match([]byte("axc")))
	assert.False(t, p.Match([]byte("ac")))
	assert.False(t, p.Match([]byte("abbc")))
}

func TestMatchClass(t *testing.T) {
	p := Compile("ab[bc]")
	assert.True(t, p.Match([]byte("abb")))
	assert.True(t, p.Match([]byte("abc")))
	assert.False(t, p.Match([]byte("aba")))
}

func TestMatchNegatedClass(t *testing.T) {
	p := Compile("ab[!bc]")
	assert.True(t, p.Match([]byte("aba")))
	assert.False(t, p.Match([]byte("abb")))
	assert.False(t, p.Match([]byte("abc")))
}

func TestMatchEscape(t *testing.T) {
	p := Compile(`a\*c`)
	assert.True(t, p.Match([]byte("a*c")))
	assert.False(t, p.Match([]byte("abc")))
}

func TestMatchUnterminatedClassIsLiteral(t *testing.T) {
	p := Compile("ab[bc")
	assert.True(t, p.Match([]byte("ab[bc")))
	assert.False(t, p.Match([]byte("abb")))
}

func TestMatchTrailingBackslashIsLiteral(t *testing.T) {
	p := Compile(`ab\`)
	assert.True(t, p.Match([]byte(`ab\`)))
}

func TestCacheReusesCompiledPattern(t *testing.T) {
	c := NewCache()
	p1 := c.Get("a*c")
	p2 := c.Get("a*c")
	assert.Same(t, p1, p2)
}
