package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	roleID = iota
	roleName
	rolePermissions
	rolePosition
)

var (
	int64Codec = codec.Int64{}

	roleLayout = codec.NewLayout(
		roleIDCodec.Size(),
		stringCodec.SlotSize(),
		permsCodec.Size(),
		int64Codec.Size(),
	)
)

type CachedRole struct {
	ID          model.RoleID
	Name        string
	Permissions model.Permissions
	Position    int64
}

func NewCachedRole(r *model.Role) CachedRole {
	return CachedRole{
		ID:          r.ID,
		Name:        r.Name,
		Permissions: r.Permissions,
		Position:    r.Position,
	}
}

func (r CachedRole) EncodedSize() int {
	return roleLayout.Size() + stringCodec.DataSize(r.Name)
}

func (r CachedRole) Encode(dst []byte) []byte {
	buf, b := codec.Grow(dst, r.EncodedSize())
	roleIDCodec.Put(b[roleLayout.Offset(roleID):], r.ID)
	stringCodec.Put(b, roleLayout.Offset(roleName), roleLayout.Size(), r.Name)
	permsCodec.Put(b[roleLayout.Offset(rolePermissions):], r.Permissions)
	int64Codec.Put(b[roleLayout.Offset(rolePosition):], r.Position)
	return buf
}

type ArchivedRole struct {
	b []byte
}

func ParseRole(b []byte) (ArchivedRole, error) {
	if err := roleLayout.Check(b); err != nil {
		return ArchivedRole{}, errors.Wrap(err, "role")
	}
	if err := stringCodec.Validate(b, roleLayout.Offset(roleName), roleLayout.Size()); err != nil {
		return ArchivedRole{}, errors.Wrap(err, "role: name")
	}
	return ArchivedRole{b: b}, nil
}

func (a ArchivedRole) at(field int) []byte {
	return a.b[roleLayout.Offset(field):]
}

func (a ArchivedRole) Bytes() []byte { return a.b }

func (a ArchivedRole) ID() model.RoleID {
	v, _ := roleIDCodec.Get(a.at(roleID))
	return v
}

func (a ArchivedRole) RawName() []byte {
	return stringCodec.View(a.b, roleLayout.Offset(roleName))
}

func (a ArchivedRole) Name() string {
	return string(a.RawName())
}

func (a ArchivedRole) Permissions() model.Permissions {
	v, _ := permsCodec.Get(a.at(rolePermissions))
	return v
}

func (a ArchivedRole) Position() int64 {
	v, _ := int64Codec.Get(a.at(rolePosition))
	return v
}

func (a ArchivedRole) Deserialize() (CachedRole, error) {
	name, err := stringCodec.Get(a.b, roleLayout.Offset(roleName))
	if err != nil {
		return CachedRole{}, errors.Wrap(err, "name")
	}
	return CachedRole{
		ID:          a.ID(),
		Name:        name,
		Permissions: a.Permissions(),
		Position:    a.Position(),
	}, nil
}
