package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	overwriteAllow = iota
	overwriteDeny
	overwriteID
	overwriteKind
)

// OverwriteCodec packs a permission overwrite into 25 bytes: allow and deny
// bits, target id and target kind, without padding. It implements
// codec.Fixed, so lists of overwrites are packed back to back.
var OverwriteCodec = overwriteCodec{
	layout: codec.NewLayout(
		permsCodec.Size(),
		permsCodec.Size(),
		genericIDCodec.Size(),
		overwriteTypeCodec.Size(),
	),
}

type overwriteCodec struct {
	layout codec.Layout
}

func (c overwriteCodec) Size() int {
	return c.layout.Size()
}

// Resolve writes v into buf at base. The caller guarantees buf holds
// Size() bytes from base.
func (c overwriteCodec) Resolve(v model.PermissionOverwrite, base int, buf []byte) {
	rec := buf[base : base+c.Size()]
	permsCodec.Put(rec[c.layout.Offset(overwriteAllow):], v.Allow)
	permsCodec.Put(rec[c.layout.Offset(overwriteDeny):], v.Deny)
	genericIDCodec.Put(rec[c.layout.Offset(overwriteID):], v.ID)
	overwriteTypeCodec.Put(rec[c.layout.Offset(overwriteKind):], v.Kind)
}

// Serialize appends the record for v to dst.
func (c overwriteCodec) Serialize(dst []byte, v model.PermissionOverwrite) []byte {
	buf, rec := codec.Grow(dst, c.Size())
	c.Resolve(v, 0, rec)
	return buf
}

// Deserialize decodes the record at buf[base:].
func (c overwriteCodec) Deserialize(buf []byte, base int) (model.PermissionOverwrite, error) {
	var v model.PermissionOverwrite
	if base < 0 || len(buf)-base < c.Size() {
		return v, errors.Wrap(codec.ErrTooShort, "permission overwrite")
	}
	rec := buf[base : base+c.Size()]
	var err error
	if v.Allow, err = permsCodec.Get(rec[c.layout.Offset(overwriteAllow):]); err != nil {
		return v, errors.Wrap(err, "allow")
	}
	if v.Deny, err = permsCodec.Get(rec[c.layout.Offset(overwriteDeny):]); err != nil {
		return v, errors.Wrap(err, "deny")
	}
	if v.ID, err = genericIDCodec.Get(rec[c.layout.Offset(overwriteID):]); err != nil {
		return v, errors.Wrap(err, "id")
	}
	if v.Kind, err = overwriteTypeCodec.Get(rec[c.layout.Offset(overwriteKind):]); err != nil {
		return v, errors.Wrap(err, "kind")
	}
	return v, nil
}

func (c overwriteCodec) Put(b []byte, v model.PermissionOverwrite) {
	c.Resolve(v, 0, b)
}

func (c overwriteCodec) Get(b []byte) (model.PermissionOverwrite, error) {
	return c.Deserialize(b, 0)
}
