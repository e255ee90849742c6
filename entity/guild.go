package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	guildIcon = iota
	guildID
	guildName
	guildOwnerID
	guildPermissions
)

var guildLayout = codec.NewLayout(
	optImageHash.Size(),
	guildIDCodec.Size(),
	stringCodec.SlotSize(),
	userIDCodec.Size(),
	optPerms.Size(),
)

// CachedGuild is the retained subset of a guild. Channels, roles and members
// are cached under their own keys.
type CachedGuild struct {
	Icon        *model.ImageHash
	ID          model.GuildID
	Name        string
	OwnerID     model.UserID
	Permissions *model.Permissions
}

// NewCachedGuild borrows the fields of g.
func NewCachedGuild(g *model.Guild) CachedGuild {
	return CachedGuild{
		Icon:        g.Icon,
		ID:          g.ID,
		Name:        g.Name,
		OwnerID:     g.OwnerID,
		Permissions: g.Permissions,
	}
}

func (g CachedGuild) EncodedSize() int {
	return guildLayout.Size() + stringCodec.DataSize(g.Name)
}

func (g CachedGuild) Encode(dst []byte) []byte {
	buf, b := codec.Grow(dst, g.EncodedSize())
	tail := guildLayout.Size()
	optImageHash.Put(b[guildLayout.Offset(guildIcon):], g.Icon)
	guildIDCodec.Put(b[guildLayout.Offset(guildID):], g.ID)
	stringCodec.Put(b, guildLayout.Offset(guildName), tail, g.Name)
	userIDCodec.Put(b[guildLayout.Offset(guildOwnerID):], g.OwnerID)
	optPerms.Put(b[guildLayout.Offset(guildPermissions):], g.Permissions)
	return buf
}

// ArchivedGuild is a validated view over a guild archive.
type ArchivedGuild struct {
	b []byte
}

func ParseGuild(b []byte) (ArchivedGuild, error) {
	if err := guildLayout.Check(b); err != nil {
		return ArchivedGuild{}, errors.Wrap(err, "guild")
	}
	a := ArchivedGuild{b: b}
	if _, _, err := optImageHash.Value(a.at(guildIcon)); err != nil {
		return ArchivedGuild{}, errors.Wrap(err, "guild: icon")
	}
	if err := stringCodec.Validate(b, guildLayout.Offset(guildName), guildLayout.Size()); err != nil {
		return ArchivedGuild{}, errors.Wrap(err, "guild: name")
	}
	if _, _, err := optPerms.Value(a.at(guildPermissions)); err != nil {
		return ArchivedGuild{}, errors.Wrap(err, "guild: permissions")
	}
	return a, nil
}

func (a ArchivedGuild) at(field int) []byte {
	return a.b[guildLayout.Offset(field):]
}

// Bytes returns the underlying archive
func (a ArchivedGuild) Bytes() []byte { return a.b }

func (a ArchivedGuild) Icon() (model.ImageHash, bool) {
	h, ok, _ := optImageHash.Value(a.at(guildIcon))
	return h, ok
}

func (a ArchivedGuild) ID() model.GuildID {
	id, _ := guildIDCodec.Get(a.at(guildID))
	return id
}

// RawName returns the name bytes without copying them.
func (a ArchivedGuild) RawName() []byte {
	return stringCodec.View(a.b, guildLayout.Offset(guildName))
}

func (a ArchivedGuild) Name() string {
	return string(a.RawName())
}

func (a ArchivedGuild) OwnerID() model.UserID {
	id, _ := userIDCodec.Get(a.at(guildOwnerID))
	return id
}

func (a ArchivedGuild) Permissions() (model.Permissions, bool) {
	p, ok, _ := optPerms.Value(a.at(guildPermissions))
	return p, ok
}

func (a ArchivedGuild) Deserialize() (CachedGuild, error) {
	var (
		g   CachedGuild
		err error
	)
	if g.Icon, err = optImageHash.Get(a.at(guildIcon)); err != nil {
		return g, errors.Wrap(err, "icon")
	}
	g.ID = a.ID()
	if g.Name, err = stringCodec.Get(a.b, guildLayout.Offset(guildName)); err != nil {
		return g, errors.Wrap(err, "name")
	}
	g.OwnerID = a.OwnerID()
	if g.Permissions, err = optPerms.Get(a.at(guildPermissions)); err != nil {
		return g, errors.Wrap(err, "permissions")
	}
	return g, nil
}

func (a ArchivedGuild) setIcon(v *model.ImageHash) { optImageHash.Put(a.at(guildIcon), v) }

func (a ArchivedGuild) setID(v model.GuildID) { guildIDCodec.Put(a.at(guildID), v) }

func (a ArchivedGuild) setOwnerID(v model.UserID) { userIDCodec.Put(a.at(guildOwnerID), v) }

func (a ArchivedGuild) setPermissions(v *model.Permissions) { optPerms.Put(a.at(guildPermissions), v) }

// UpdateGuild patches a guild archive with the fields of a guild update.
func UpdateGuild(ev *model.GuildUpdate) PatchFunc {
	return func(buf []byte) ([]byte, Path, error) {
		a, err := ParseGuild(buf)
		if err != nil {
			return nil, PathNone, err
		}
		if string(a.RawName()) != ev.Name {
			return rewrite[CachedGuild](a, GuildCacheable, guildUpdate(ev))
		}
		a.setIcon(ev.Icon)
		a.setID(ev.ID)
		a.setOwnerID(ev.OwnerID)
		a.setPermissions(ev.Permissions)
		return buf, PathInPlace, nil
	}
}

func guildUpdate(ev *model.GuildUpdate) func(*CachedGuild) {
	return func(g *CachedGuild) {
		g.Icon = ev.Icon
		g.ID = ev.ID
		g.Name = ev.Name
		g.OwnerID = ev.OwnerID
		g.Permissions = ev.Permissions
	}
}

// OnGuildUpdate is the update hook of guilds
func OnGuildUpdate(ev *model.GuildUpdate) PatchFunc {
	return UpdateGuild(ev)
}
