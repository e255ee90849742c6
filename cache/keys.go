package cache

import (
	"github.com/bathbot/entitycache/entity"
	"github.com/bathbot/entitycache/model"
	"github.com/bathbot/entitycache/storage"
)

// UnavailableGuildNamespace holds the markers of guilds the gateway reported
// as unavailable. Marker values are empty.
const UnavailableGuildNamespace = "unavailable_guild"

// CurrentUserKey is the only key of the current user namespace
var CurrentUserKey = storage.Key(entity.KindCurrentUser.String(), "self")

func ChannelKey(id model.ChannelID) string {
	return storage.Key(entity.KindChannel.String(), id.String())
}

func GuildKey(id model.GuildID) string {
	return storage.Key(entity.KindGuild.String(), id.String())
}

func MemberKey(guild model.GuildID, user model.UserID) string {
	return storage.Key(entity.KindMember.String(), guild.String(), user.String())
}

func RoleKey(guild model.GuildID, id model.RoleID) string {
	return storage.Key(entity.KindRole.String(), guild.String(), id.String())
}

func UserKey(id model.UserID) string {
	return storage.Key(entity.KindUser.String(), id.String())
}

func UnavailableGuildKey(id model.GuildID) string {
	return storage.Key(UnavailableGuildNamespace, id.String())
}

// guildPrefix is the Range prefix of the guild scoped member and role keys
func guildPrefix(id model.GuildID) string {
	return id.String() + ":"
}
