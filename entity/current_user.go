package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	currentUserAvatar = iota
	currentUserDiscriminator
	currentUserID
	currentUserName
)

var currentUserLayout = codec.NewLayout(
	optImageHash.Size(),
	uint16Codec.Size(),
	userIDCodec.Size(),
	stringCodec.SlotSize(),
)

// CachedCurrentUser is the retained subset of the logged in user.
type CachedCurrentUser struct {
	Avatar        *model.ImageHash
	Discriminator uint16
	ID            model.UserID
	Name          string
}

func NewCachedCurrentUser(u *model.CurrentUser) CachedCurrentUser {
	return CachedCurrentUser{
		Avatar:        u.Avatar,
		Discriminator: u.Discriminator,
		ID:            u.ID,
		Name:          u.Name,
	}
}

func (u CachedCurrentUser) EncodedSize() int {
	return currentUserLayout.Size() + stringCodec.DataSize(u.Name)
}

func (u CachedCurrentUser) Encode(dst []byte) []byte {
	buf, b := codec.Grow(dst, u.EncodedSize())
	optImageHash.Put(b[currentUserLayout.Offset(currentUserAvatar):], u.Avatar)
	uint16Codec.Put(b[currentUserLayout.Offset(currentUserDiscriminator):], u.Discriminator)
	userIDCodec.Put(b[currentUserLayout.Offset(currentUserID):], u.ID)
	stringCodec.Put(b, currentUserLayout.Offset(currentUserName), currentUserLayout.Size(), u.Name)
	return buf
}

type ArchivedCurrentUser struct {
	b []byte
}

func ParseCurrentUser(b []byte) (ArchivedCurrentUser, error) {
	if err := currentUserLayout.Check(b); err != nil {
		return ArchivedCurrentUser{}, errors.Wrap(err, "current user")
	}
	a := ArchivedCurrentUser{b: b}
	if _, _, err := optImageHash.Value(a.at(currentUserAvatar)); err != nil {
		return ArchivedCurrentUser{}, errors.Wrap(err, "current user: avatar")
	}
	err := stringCodec.Validate(b, currentUserLayout.Offset(currentUserName), currentUserLayout.Size())
	if err != nil {
		return ArchivedCurrentUser{}, errors.Wrap(err, "current user: name")
	}
	return a, nil
}

func (a ArchivedCurrentUser) at(field int) []byte {
	return a.b[currentUserLayout.Offset(field):]
}

func (a ArchivedCurrentUser) Bytes() []byte { return a.b }

func (a ArchivedCurrentUser) Avatar() (model.ImageHash, bool) {
	h, ok, _ := optImageHash.Value(a.at(currentUserAvatar))
	return h, ok
}

func (a ArchivedCurrentUser) Discriminator() uint16 {
	v, _ := uint16Codec.Get(a.at(currentUserDiscriminator))
	return v
}

func (a ArchivedCurrentUser) ID() model.UserID {
	v, _ := userIDCodec.Get(a.at(currentUserID))
	return v
}

func (a ArchivedCurrentUser) RawName() []byte {
	return stringCodec.View(a.b, currentUserLayout.Offset(currentUserName))
}

func (a ArchivedCurrentUser) Name() string {
	return string(a.RawName())
}

func (a ArchivedCurrentUser) Deserialize() (CachedCurrentUser, error) {
	var (
		u   CachedCurrentUser
		err error
	)
	if u.Avatar, err = optImageHash.Get(a.at(currentUserAvatar)); err != nil {
		return u, errors.Wrap(err, "avatar")
	}
	u.Discriminator = a.Discriminator()
	u.ID = a.ID()
	if u.Name, err = stringCodec.Get(a.b, currentUserLayout.Offset(currentUserName)); err != nil {
		return u, errors.Wrap(err, "name")
	}
	return u, nil
}
