package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	memberAvatar = iota
	memberNick
	memberRoles
)

var memberLayout = codec.NewLayout(
	optImageHash.Size(),
	optStringCodec.SlotSize(),
	roleListCodec.SlotSize(),
)

// CachedMember is the retained subset of a guild member. The user is cached
// separately, guild and user ids are part of the key.
type CachedMember struct {
	Avatar *model.ImageHash
	Nick   *string
	Roles  []model.RoleID
}

// NewCachedMember borrows the fields of m.
func NewCachedMember(m *model.Member) CachedMember {
	return CachedMember{
		Avatar: m.Avatar,
		Nick:   m.Nick,
		Roles:  m.Roles,
	}
}

func (m CachedMember) EncodedSize() int {
	return memberLayout.Size() + optStringCodec.DataSize(m.Nick) + roleListCodec.DataSize(m.Roles)
}

func (m CachedMember) Encode(dst []byte) []byte {
	buf, b := codec.Grow(dst, m.EncodedSize())
	tail := memberLayout.Size()
	optImageHash.Put(b[memberLayout.Offset(memberAvatar):], m.Avatar)
	tail += optStringCodec.Put(b, memberLayout.Offset(memberNick), tail, m.Nick)
	roleListCodec.Put(b, memberLayout.Offset(memberRoles), tail, m.Roles)
	return buf
}

type ArchivedMember struct {
	b []byte
}

func ParseMember(b []byte) (ArchivedMember, error) {
	if err := memberLayout.Check(b); err != nil {
		return ArchivedMember{}, errors.Wrap(err, "member")
	}
	a := ArchivedMember{b: b}
	if _, _, err := optImageHash.Value(a.at(memberAvatar)); err != nil {
		return ArchivedMember{}, errors.Wrap(err, "member: avatar")
	}
	if err := optStringCodec.Validate(b, memberLayout.Offset(memberNick), memberLayout.Size()); err != nil {
		return ArchivedMember{}, errors.Wrap(err, "member: nick")
	}
	if err := roleListCodec.Validate(b, memberLayout.Offset(memberRoles), memberLayout.Size()); err != nil {
		return ArchivedMember{}, errors.Wrap(err, "member: roles")
	}
	return a, nil
}

func (a ArchivedMember) at(field int) []byte {
	return a.b[memberLayout.Offset(field):]
}

func (a ArchivedMember) Bytes() []byte { return a.b }

func (a ArchivedMember) Avatar() (model.ImageHash, bool) {
	h, ok, _ := optImageHash.Value(a.at(memberAvatar))
	return h, ok
}

// RawNick returns the nick bytes without copying them, ok is false when the
// member has no nick.
func (a ArchivedMember) RawNick() (nick []byte, ok bool) {
	return optStringCodec.View(a.b, memberLayout.Offset(memberNick))
}

func (a ArchivedMember) Nick() (string, bool) {
	nick, ok := a.RawNick()
	return string(nick), ok
}

func (a ArchivedMember) Roles() codec.ListView[model.RoleID] {
	return roleListCodec.View(a.b, memberLayout.Offset(memberRoles))
}

func (a ArchivedMember) Deserialize() (CachedMember, error) {
	var (
		m   CachedMember
		err error
	)
	if m.Avatar, err = optImageHash.Get(a.at(memberAvatar)); err != nil {
		return m, errors.Wrap(err, "avatar")
	}
	if m.Nick, err = optStringCodec.Get(a.b, memberLayout.Offset(memberNick)); err != nil {
		return m, errors.Wrap(err, "nick")
	}
	if m.Roles, err = roleListCodec.Get(a.b, memberLayout.Offset(memberRoles)); err != nil {
		return m, errors.Wrap(err, "roles")
	}
	return m, nil
}

func (a ArchivedMember) setAvatar(v *model.ImageHash) { optImageHash.Put(a.at(memberAvatar), v) }

// UpdateMember patches a member archive. Nick and roles are compared by
// content; the avatar is the only fixed-width field.
func UpdateMember(avatar *model.ImageHash, nick *string, roles []model.RoleID) PatchFunc {
	return func(buf []byte) ([]byte, Path, error) {
		a, err := ParseMember(buf)
		if err != nil {
			return nil, PathNone, err
		}
		archivedNick, hasNick := a.RawNick()
		if !equalOptString(archivedNick, hasNick, nick) || !codec.ListEqual(a.Roles(), roles) {
			return rewrite[CachedMember](a, MemberCacheable, memberUpdate(avatar, nick, roles))
		}
		a.setAvatar(avatar)
		return buf, PathInPlace, nil
	}
}

func memberUpdate(avatar *model.ImageHash, nick *string, roles []model.RoleID) func(*CachedMember) {
	return func(m *CachedMember) {
		m.Avatar = avatar
		m.Nick = nick
		m.Roles = roles
	}
}

// OnMemberUpdate is the update hook of members
func OnMemberUpdate(ev *model.MemberUpdate) PatchFunc {
	return UpdateMember(ev.Avatar, ev.Nick, ev.Roles)
}

// MemberUpdateViaPartial applies the partial member attached to an
// interaction.
func MemberUpdateViaPartial(p *model.PartialMember) PatchFunc {
	return UpdateMember(p.Avatar, p.Nick, p.Roles)
}
