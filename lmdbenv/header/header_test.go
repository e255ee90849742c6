package header

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genTestVal(stored, expires time.Time) []byte {
	testVal := []byte{
		0, 0, 0, 0, 0, 0, 0, 0, // stored-at filled below
		0, 0, 0, 0, 0, 0, 0, 0, // expires-at filled below
		0, 0x01, 0, 0, 0, 0, 0, 0, // version, flags, reserved
		't', 'e', 's', 't', // application value
	}
	binary.BigEndian.PutUint64(testVal[:8], uint64(stored.UnixNano()))
	binary.BigEndian.PutUint64(testVal[8:16], uint64(expires.UnixNano()))
	return testVal
}

func BenchmarkParse(b *testing.B) {
	now := time.Now()
	testVal := genTestVal(now, now.Add(time.Hour))

	var (
		h   Header
		v   []byte
		err error
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, v, err = Parse(testVal)
	}
	b.StopTimer()

	// To ensure it did not get optimised away
	assert.NoError(b, err)
	assert.Equal(b, 0, h.Version)
	assert.Equal(b, []byte("test"), v)
}

func TestParse(t *testing.T) {
	stored := time.Now()
	expires := stored.Add(time.Minute)
	testVal := genTestVal(stored, expires)

	h, v, err := Parse(testVal)
	assert.NoError(t, err)
	assert.True(t, stored.Equal(h.StoredAt))
	assert.True(t, expires.Equal(h.ExpiresAt))
	assert.Equal(t, 0, h.Version)
	assert.Equal(t, uint8(0x1), h.Flags)
	assert.Equal(t, []byte("test"), v)

	_, _, err = Parse(testVal[:20])
	assert.Equal(t, ErrTooShort, err)

	_, v, err = Parse(testVal[:24])
	assert.NoError(t, err)
	assert.Equal(t, []byte{}, v)

	testVal[VersionOffset] = 1
	_, _, err = Parse(testVal)
	assert.Equal(t, ErrVersion, err)
}

func TestSkip(t *testing.T) {
	now := time.Now()
	v, err := Skip(genTestVal(now, now))
	assert.NoError(t, err)
	assert.Equal(t, []byte("test"), v)

	_, err = Skip([]byte("short"))
	assert.Equal(t, ErrTooShort, err)
}

func TestHeader_roundtrip(t *testing.T) {
	now := time.Unix(1700000000, 123)

	h := New(now, 0)
	b := append(h.Bytes(), "val"...)
	got, v, err := Parse(b)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.IsZero())
	assert.True(t, now.Equal(got.StoredAt))
	assert.Equal(t, []byte("val"), v)
	assert.False(t, got.Expired(now.Add(1000*time.Hour)))

	h = New(now, time.Minute)
	got, _, err = Parse(h.Bytes())
	require.NoError(t, err)
	assert.False(t, got.Expired(now.Add(59*time.Second)))
	assert.True(t, got.Expired(now.Add(time.Minute)))
}

func TestHeader_PutClearsReserved(t *testing.T) {
	b := make([]byte, Size)
	for i := range b {
		b[i] = 0xff
	}
	New(time.Unix(1, 0), 0).Put(b)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, b[8:16])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, b[16:24])
}
