package resp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, wire string) Value {
	t.Helper()
	p := NewParser(strings.NewReader(wire))
	v, err := p.ReadValue()
	require.NoError(t, err)
	return v
}

func TestParseSimpleString(t *testing.T) {
	v := parseOne(t, "+OK\r\n")
	assert.Equal(t, KindSimpleString, v.Kind)
	assert.Equal(t, "OK", string(v.Str))
}

func TestParseBulkString(t *testing.T) {
	v := parseOne(t, "$5\r\nhello\r\n")
	assert.Equal(t, KindBulkString, v.Kind)
	assert.Equal(t, "hello", string(v.Str))
}

func TestParseNullBulk(t *testing.T) {
	v := parseOne(t, "$-1\r\n")
	assert.Equal(t, KindNull, v.Kind)
}

func TestParseNullResp3(t *testing.T) {
	v := parseOne(t, "_\r\n")
	assert.Equal(t, KindNull, v.Kind)
}

func TestParseInteger(t *testing.T) {
	v := parseOne(t, ":1000\r\n")
	assert.Equal(t, KindInteger, v.Kind)
	assert.Equal(t, int64(1000), v.Int)
}

func TestParseDouble(t *testing.T) {
	v := parseOne(t, ",3.14\r\n")
	assert.Equal(t, KindDouble, v.Kind)
	assert.InDelta(t, 3.14, v.Double, 1e-9)
}

func TestParseBoolean(t *testing.T) {
	v := parseOne(t, "#t\r\n")
	assert.Equal(t, KindBoolean, v.Kind)
	assert.True(t, v.Bool)
}

func TestParseBigNumber(t *testing.T) {
	v := parseOne(t, "(3492890328409238509324850943850943825024385\r\n")
	assert.Equal(t, KindBigNumber, v.Kind)
}

func TestParseVerbatimString(t *testing.T) {
	v := parseOne(t, "=15\r\ntxt:Some string\r\n")
	assert.Equal(t, KindVerbatimString, v.Kind)
	assert.Equal(t, "txt", v.VerbatimFormat)
	assert.Equal(t, "Some string", string(v.Str))
}

func TestParseSimpleError(t *testing.T) {
	v := parseOne(t, "-ERR bad thing\r\n")
	assert.True(t, v.IsError())
	assert.Equal(t, "ERR bad thing", string(v.Str))
}

func TestParseArray(t *testing.T) {
	v := parseOne(t, "*2\r\n$3\r\nfoo\r\n:7\r\n")
	require.Equal(t, KindArray, v.Kind)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "foo", string(v.Array[0].Str))
	assert.Equal(t, int64(7), v.Array[1].Int)
}

func TestParseEmptyArray(t *testing.T) {
	v := parseOne(t, "*0\r\n")
	assert.Equal(t, KindArray, v.Kind)
	assert.Len(t, v.Array, 0)
}

func TestParseMap(t *testing.T) {
	v := parseOne(t, "%2\r\n+k1\r\n:1\r\n+k2\r\n:2\r\n")
	require.Equal(t, KindMap, v.Kind)
	require.Len(t, v.Map, 2)
	assert.Equal(t, "k1", string(v.Map[0].Key.Str))
	assert.Equal(t, int64(1), v.Map[0].Value.Int)
}

func TestParseSetAndPush(t *testing.T) {
	v := parseOne(t, "~2\r\n:1\r\n:2\r\n")
	assert.Equal(t, KindSet, v.Kind)
	v2 := parseOne(t, ">1\r\n+hello\r\n")
	assert.Equal(t, KindPush, v2.Kind)
}

func TestParseNestedArray(t *testing.T) {
	v := parseOne(t, "*2\r\n*2\r\n:1\r\n:2\r\n$3\r\nfoo\r\n")
	require.Len(t, v.Array, 2)
	require.Len(t, v.Array[0].Array, 2)
	assert.Equal(t, "foo", string(v.Array[1].Str))
}

func TestParseAttribute(t *testing.T) {
	v := parseOne(t, "|1\r\n+key-popularity\r\n%2\r\n$1\r\na\r\n,0.1923\r\n$1\r\nb\r\n,0.0012\r\n*2\r\n:1\r\n:2\r\n")
	assert.Equal(t, KindArray, v.Kind)
	require.Len(t, v.Attribute, 1)
	assert.Equal(t, "key-popularity", string(v.Attribute[0].Key.Str))
}

func TestParseDeepNestingNoOverflow(t *testing.T) {
	const depth = 200_000
	var buf bytes.Buffer
	for i := 0; i < depth; i++ {
		buf.WriteString("*1\r\n")
	}
	buf.WriteString(":42\r\n")

	p := NewParser(&buf)
	p.SetMaxBulkLen(0)
	v, err := p.ReadValue()
	require.NoError(t, err)

	cur := v
	for i := 0; i < depth; i++ {
		require.Equal(t, KindArray, cur.Kind)
		require.Len(t, cur.Array, 1)
		cur = cur.Array[0]
	}
	assert.Equal(t, KindInteger, cur.Kind)
	assert.Equal(t, int64(42), cur.Int)
}

func TestParseInlineCommand(t *testing.T) {
	v := ParseInline([]byte("SET foo bar"))
	require.Equal(t, KindArray, v.Kind)
	require.Len(t, v.Array, 3)
	assert.Equal(t, "SET", string(v.Array[0].Str))
	assert.Equal(t, "bar", string(v.Array[2].Str))
}

func TestLooksLikeInline(t *testing.T) {
	assert.True(t, LooksLikeInline([]byte("PING")))
	assert.False(t, LooksLikeInline([]byte("+OK")))
}

func TestHugeDeclaredBulkLengthRejected(t *testing.T) {
	p := NewParser(strings.NewReader("$4294967295\r\n"))
	_, err := p.ReadValue()
	assert.Error(t, err)
}

func TestWriterBuildCommandRoundTrips(t *testing.T) {
	w := NewWriter()
	bufs := w.BuildCommand([][]byte{[]byte("SET"), []byte("foo"), []byte("bar")})
	var out bytes.Buffer
	for _, b := range bufs {
		out.Write(b)
	}
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n", out.String())
}

func TestWriterCoalescesSmallArgsWithinBudget(t *testing.T) {
	w := &Writer{MaxIOVec: 3}
	args := make([][]byte, 0, 50)
	for i := 0; i < 50; i++ {
		args = append(args, []byte("x"))
	}
	bufs := w.BuildCommand(args)
	assert.LessOrEqual(t, len(bufs), 3)

	p := NewParser(bytes.NewReader(joinBuffers(bufs)))
	v, err := p.ReadValue()
	require.NoError(t, err)
	require.Len(t, v.Array, 50)
}

func joinBuffers(bufs [][]byte) []byte {
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}
