package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	userAvatar = iota
	userBot
	userDiscriminator
	userID
	userName
)

var (
	boolCodec   = codec.Bool{}
	uint16Codec = codec.Uint16{}

	userLayout = codec.NewLayout(
		optImageHash.Size(),
		boolCodec.Size(),
		uint16Codec.Size(),
		userIDCodec.Size(),
		stringCodec.SlotSize(),
	)
)

type CachedUser struct {
	Avatar        *model.ImageHash
	Bot           bool
	Discriminator uint16
	ID            model.UserID
	Name          string
}

// NewCachedUser borrows the fields of u.
func NewCachedUser(u *model.User) CachedUser {
	return CachedUser{
		Avatar:        u.Avatar,
		Bot:           u.Bot,
		Discriminator: u.Discriminator,
		ID:            u.ID,
		Name:          u.Name,
	}
}

func (u CachedUser) EncodedSize() int {
	return userLayout.Size() + stringCodec.DataSize(u.Name)
}

func (u CachedUser) Encode(dst []byte) []byte {
	buf, b := codec.Grow(dst, u.EncodedSize())
	optImageHash.Put(b[userLayout.Offset(userAvatar):], u.Avatar)
	boolCodec.Put(b[userLayout.Offset(userBot):], u.Bot)
	uint16Codec.Put(b[userLayout.Offset(userDiscriminator):], u.Discriminator)
	userIDCodec.Put(b[userLayout.Offset(userID):], u.ID)
	stringCodec.Put(b, userLayout.Offset(userName), userLayout.Size(), u.Name)
	return buf
}

// ArchivedUser is a validated view over a user archive.
type ArchivedUser struct {
	b []byte
}

func ParseUser(b []byte) (ArchivedUser, error) {
	if err := userLayout.Check(b); err != nil {
		return ArchivedUser{}, errors.Wrap(err, "user")
	}
	a := ArchivedUser{b: b}
	if _, _, err := optImageHash.Value(a.at(userAvatar)); err != nil {
		return ArchivedUser{}, errors.Wrap(err, "user: avatar")
	}
	if _, err := boolCodec.Get(a.at(userBot)); err != nil {
		return ArchivedUser{}, errors.Wrap(err, "user: bot")
	}
	if err := stringCodec.Validate(b, userLayout.Offset(userName), userLayout.Size()); err != nil {
		return ArchivedUser{}, errors.Wrap(err, "user: name")
	}
	return a, nil
}

func (a ArchivedUser) at(field int) []byte {
	return a.b[userLayout.Offset(field):]
}

func (a ArchivedUser) Bytes() []byte { return a.b }

func (a ArchivedUser) Avatar() (model.ImageHash, bool) {
	h, ok, _ := optImageHash.Value(a.at(userAvatar))
	return h, ok
}

func (a ArchivedUser) Bot() bool {
	v, _ := boolCodec.Get(a.at(userBot))
	return v
}

func (a ArchivedUser) Discriminator() uint16 {
	v, _ := uint16Codec.Get(a.at(userDiscriminator))
	return v
}

func (a ArchivedUser) ID() model.UserID {
	v, _ := userIDCodec.Get(a.at(userID))
	return v
}

func (a ArchivedUser) RawName() []byte {
	return stringCodec.View(a.b, userLayout.Offset(userName))
}

func (a ArchivedUser) Name() string {
	return string(a.RawName())
}

func (a ArchivedUser) Deserialize() (CachedUser, error) {
	var (
		u   CachedUser
		err error
	)
	if u.Avatar, err = optImageHash.Get(a.at(userAvatar)); err != nil {
		return u, errors.Wrap(err, "avatar")
	}
	if u.Bot, err = boolCodec.Get(a.at(userBot)); err != nil {
		return u, errors.Wrap(err, "bot")
	}
	u.Discriminator = a.Discriminator()
	u.ID = a.ID()
	if u.Name, err = stringCodec.Get(a.b, userLayout.Offset(userName)); err != nil {
		return u, errors.Wrap(err, "name")
	}
	return u, nil
}

func (a ArchivedUser) setAvatar(v *model.ImageHash) { optImageHash.Put(a.at(userAvatar), v) }

func (a ArchivedUser) setDiscriminator(v uint16) { uint16Codec.Put(a.at(userDiscriminator), v) }

// UpdateUser patches a user archive with the fields of a partial user.
func UpdateUser(p *model.PartialUser) PatchFunc {
	return func(buf []byte) ([]byte, Path, error) {
		a, err := ParseUser(buf)
		if err != nil {
			return nil, PathNone, err
		}
		if string(a.RawName()) != p.Name {
			return rewrite[CachedUser](a, UserCacheable, userUpdate(p))
		}
		a.setAvatar(p.Avatar)
		a.setDiscriminator(p.Discriminator)
		return buf, PathInPlace, nil
	}
}

func userUpdate(p *model.PartialUser) func(*CachedUser) {
	return func(u *CachedUser) {
		u.Avatar = p.Avatar
		u.Discriminator = p.Discriminator
		u.Name = p.Name
	}
}

// UserUpdateViaPartial is the hook applying the inviter of an invite.
func UserUpdateViaPartial(p *model.PartialUser) PatchFunc {
	return UpdateUser(p)
}
