package entity

import (
	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

// Codecs shared by several kinds
var (
	optImageHash = codec.OptionalOf[model.ImageHash](codec.ImageHash{})
	optGuildID   = codec.OptionalOf[model.GuildID](codec.ID[model.GuildID]{})
	optChannelID = codec.OptionalOf[model.ChannelID](codec.ID[model.ChannelID]{})
	optPerms     = codec.OptionalOf[model.Permissions](codec.Bitflags[model.Permissions]{})
	optInt32     = codec.OptionalOf[int32](codec.Int32{})

	guildIDCodec   = codec.ID[model.GuildID]{}
	channelIDCodec = codec.ID[model.ChannelID]{}
	userIDCodec    = codec.ID[model.UserID]{}
	roleIDCodec    = codec.ID[model.RoleID]{}
	genericIDCodec = codec.ID[model.GenericID]{}
	permsCodec     = codec.Bitflags[model.Permissions]{}

	channelTypeCodec = codec.ByteTag[model.ChannelType]{
		Name:  "channel type",
		Known: model.ChannelType.Known,
	}
	overwriteTypeCodec = codec.ByteTag[model.PermissionOverwriteType]{
		Name:  "permission overwrite type",
		Known: model.PermissionOverwriteType.Known,
	}

	stringCodec    = codec.String{}
	optStringCodec = codec.OptionalString{}
	roleListCodec  = codec.ListOf[model.RoleID](roleIDCodec)
)
