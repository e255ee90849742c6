package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bathbot/entitycache/model"
)

func testHash(animated bool) model.ImageHash {
	h := model.ImageHash{Animated: animated}
	for i := range h.Bytes {
		h.Bytes[i] = byte(i * 7)
	}
	return h
}

func TestFixed_roundtrip(t *testing.T) {
	b := make([]byte, 32)

	ID[model.GuildID]{}.Put(b, 1234567890123)
	id, err := ID[model.GuildID]{}.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, model.GuildID(1234567890123), id)

	perms := model.PermissionAdministrator | model.PermissionManageRoles
	Bitflags[model.Permissions]{}.Put(b, perms)
	p, err := Bitflags[model.Permissions]{}.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, perms, p)

	Uint16{}.Put(b, 4321)
	d, err := Uint16{}.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, uint16(4321), d)

	Int32{}.Put(b, -5)
	i32, err := Int32{}.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, int32(-5), i32)

	Int64{}.Put(b, -1<<40)
	i64, err := Int64{}.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, int64(-1<<40), i64)

	for _, v := range []bool{true, false} {
		Bool{}.Put(b, v)
		got, err := Bool{}.Get(b)
		assert.NoError(t, err)
		assert.Equal(t, v, got)
	}

	for _, animated := range []bool{true, false} {
		h := testHash(animated)
		ImageHash{}.Put(b, h)
		got, err := ImageHash{}.Get(b)
		assert.NoError(t, err)
		assert.Equal(t, h, got)
	}
}

func TestFixed_tooShort(t *testing.T) {
	_, err := ID[model.UserID]{}.Get(make([]byte, 7))
	assert.ErrorIs(t, err, ErrTooShort)
	_, err = ImageHash{}.Get(make([]byte, 16))
	assert.ErrorIs(t, err, ErrTooShort)
	_, err = Uint16{}.Get(nil)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestByteTag(t *testing.T) {
	c := ByteTag[model.ChannelType]{Name: "channel type", Known: model.ChannelType.Known}
	b := []byte{0}
	c.Put(b, model.ChannelGuildForum)
	assert.Equal(t, byte(15), b[0])
	v, err := c.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, model.ChannelGuildForum, v)

	// Unknown values are an error, never coerced
	_, err = c.Get([]byte{99})
	var tagErr *InvalidTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, uint8(99), tagErr.Value)
	assert.Equal(t, "unknown channel type tag 99", err.Error())

	// Check agrees with Get, so writers can refuse what readers would reject
	assert.NoError(t, c.Check(model.ChannelGuildMedia))
	err = c.Check(model.ChannelType(99))
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, uint8(99), tagErr.Value)
	assert.NoError(t, ByteTag[model.ChannelType]{Name: "any"}.Check(99))

	c.Put(b, model.ChannelGuildMedia)
	v, err = c.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, model.ChannelGuildMedia, v)
}

func TestBool_invalid(t *testing.T) {
	_, err := Bool{}.Get([]byte{2})
	assert.ErrorIs(t, err, ErrInvalidBool)
}

func TestOptional(t *testing.T) {
	c := OptionalOf[model.ImageHash](ImageHash{})
	assert.Equal(t, 18, c.Size())
	b := make([]byte, c.Size())

	h := testHash(true)
	c.Put(b, &h)
	got, err := c.Get(b)
	assert.NoError(t, err)
	assert.Equal(t, &h, got)

	v, ok, err := c.Value(b)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, h, v)

	// Absent values keep the width, with a zeroed payload
	c.Put(b, nil)
	assert.Equal(t, make([]byte, 18), b)
	got, err = c.Get(b)
	assert.NoError(t, err)
	assert.Nil(t, got)
	_, ok, err = c.Value(b)
	assert.NoError(t, err)
	assert.False(t, ok)

	b[0] = 7
	_, err = c.Get(b)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestLayout(t *testing.T) {
	l := NewLayout(18, 8, SlotSize, 8, 9)
	assert.Equal(t, 0, l.Offset(0))
	assert.Equal(t, 18, l.Offset(1))
	assert.Equal(t, 26, l.Offset(2))
	assert.Equal(t, 34, l.Offset(3))
	assert.Equal(t, 42, l.Offset(4))
	assert.Equal(t, 51, l.Size())
	assert.ErrorIs(t, l.Check(make([]byte, 50)), ErrTooShort)
	assert.NoError(t, l.Check(make([]byte, 51)))
}

// record is a small test record: one id, a name, an optional nick and a list
// of role ids.
var recordLayout = NewLayout(8, SlotSize, 1+SlotSize, SlotSize)

func encodeRecord(id model.UserID, name string, nick *string, roles []model.RoleID) []byte {
	roleCodec := ListOf[model.RoleID](ID[model.RoleID]{})
	size := recordLayout.Size() + len(name) + OptionalString{}.DataSize(nick) + roleCodec.DataSize(roles)
	_, b := Grow(nil, size)
	tail := recordLayout.Size()
	ID[model.UserID]{}.Put(b[recordLayout.Offset(0):], id)
	tail += String{}.Put(b, recordLayout.Offset(1), tail, name)
	tail += OptionalString{}.Put(b, recordLayout.Offset(2), tail, nick)
	tail += roleCodec.Put(b, recordLayout.Offset(3), tail, roles)
	if tail != size {
		panic("size mismatch")
	}
	return b
}

func TestVar_roundtrip(t *testing.T) {
	roleCodec := ListOf[model.RoleID](ID[model.RoleID]{})
	nick := "nick ✓"
	roles := []model.RoleID{3, 1, 2}
	b := encodeRecord(42, "Name", &nick, roles)

	assert.NoError(t, String{}.Validate(b, recordLayout.Offset(1), recordLayout.Size()))
	assert.NoError(t, OptionalString{}.Validate(b, recordLayout.Offset(2), recordLayout.Size()))
	assert.NoError(t, roleCodec.Validate(b, recordLayout.Offset(3), recordLayout.Size()))

	name, err := String{}.Get(b, recordLayout.Offset(1))
	assert.NoError(t, err)
	assert.Equal(t, "Name", name)
	assert.Equal(t, []byte("Name"), String{}.View(b, recordLayout.Offset(1)))

	gotNick, err := OptionalString{}.Get(b, recordLayout.Offset(2))
	assert.NoError(t, err)
	assert.Equal(t, &nick, gotNick)
	view, ok := OptionalString{}.View(b, recordLayout.Offset(2))
	assert.True(t, ok)
	assert.Equal(t, nick, string(view))

	gotRoles, err := roleCodec.Get(b, recordLayout.Offset(3))
	assert.NoError(t, err)
	assert.Equal(t, roles, gotRoles)
	lv := roleCodec.View(b, recordLayout.Offset(3))
	assert.Equal(t, 3, lv.Len())
	assert.Equal(t, model.RoleID(1), lv.At(1))
	assert.True(t, ListEqual(lv, roles))
	assert.False(t, ListEqual(lv, []model.RoleID{3, 1}))
	assert.False(t, ListEqual(lv, []model.RoleID{3, 1, 4}))
}

func TestVar_absentAndEmpty(t *testing.T) {
	roleCodec := ListOf[model.RoleID](ID[model.RoleID]{})
	b := encodeRecord(1, "", nil, nil)
	assert.Equal(t, recordLayout.Size(), len(b))

	nick, err := OptionalString{}.Get(b, recordLayout.Offset(2))
	assert.NoError(t, err)
	assert.Nil(t, nick)
	_, ok := OptionalString{}.View(b, recordLayout.Offset(2))
	assert.False(t, ok)

	roles, err := roleCodec.Get(b, recordLayout.Offset(3))
	assert.NoError(t, err)
	assert.Nil(t, roles)
}

func TestOptionalList(t *testing.T) {
	c := OptionalListOf[model.RoleID](ID[model.RoleID]{})
	l := NewLayout(c.SlotSize())
	for _, v := range [][]model.RoleID{nil, {}, {7, 8}} {
		_, b := Grow(nil, l.Size()+c.DataSize(v))
		c.Put(b, 0, l.Size(), v)
		assert.NoError(t, c.Validate(b, 0, l.Size()))
		got, err := c.Get(b, 0)
		assert.NoError(t, err)
		assert.Equal(t, v, got)
		_, ok := c.View(b, 0)
		assert.Equal(t, v != nil, ok)
	}
}

func TestVar_validate(t *testing.T) {
	nick := "nick"
	b := encodeRecord(1, "Name", &nick, []model.RoleID{1})

	// Truncated tail
	err := String{}.Validate(b[:len(b)-9], recordLayout.Offset(1), recordLayout.Size())
	assert.NoError(t, err) // the name itself is still in range
	err = ListOf[model.RoleID](ID[model.RoleID]{}).Validate(b[:len(b)-1], recordLayout.Offset(3), recordLayout.Size())
	assert.ErrorIs(t, err, ErrOutOfBounds)

	// Slot pointing into the fixed section
	bad := append([]byte(nil), b...)
	putSlot(bad[recordLayout.Offset(1):], slot{off: 0, n: 4})
	assert.ErrorIs(t, String{}.Validate(bad, recordLayout.Offset(1), recordLayout.Size()), ErrOutOfBounds)

	// Invalid UTF-8
	bad = append([]byte(nil), b...)
	bad[recordLayout.Size()] = 0xff
	assert.ErrorIs(t, String{}.Validate(bad, recordLayout.Offset(1), recordLayout.Size()), ErrInvalidUTF8)

	// Invalid presence byte
	bad = append([]byte(nil), b...)
	bad[recordLayout.Offset(2)] = 2
	assert.ErrorIs(t, OptionalString{}.Validate(bad, recordLayout.Offset(2), recordLayout.Size()), ErrInvalidOption)
}

func TestGrow_alloc(t *testing.T) {
	buf := make([]byte, 0, 64)
	allocs := testing.AllocsPerRun(100, func() {
		_, _ = Grow(buf, 64)
	})
	assert.Equal(t, 0.0, allocs)

	out, added := Grow([]byte{1, 2}, 3)
	assert.Equal(t, []byte{1, 2, 0, 0, 0}, out)
	assert.Len(t, added, 3)
}
