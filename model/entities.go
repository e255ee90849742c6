package model

import "time"

// PermissionOverwrite overrides the permissions of a role or member in
// a single channel.
type PermissionOverwrite struct {
	Allow Permissions             `yaml:"allow"`
	Deny  Permissions             `yaml:"deny"`
	ID    GenericID               `yaml:"id"`
	Kind  PermissionOverwriteType `yaml:"kind"`
}

type Channel struct {
	GuildID              *GuildID              `yaml:"guild_id,omitempty"`
	ID                   ChannelID             `yaml:"id"`
	Kind                 ChannelType           `yaml:"kind"`
	Name                 *string               `yaml:"name,omitempty"`
	ParentID             *ChannelID            `yaml:"parent_id,omitempty"`
	PermissionOverwrites []PermissionOverwrite `yaml:"permission_overwrites,omitempty"`
	Position             *int32                `yaml:"position,omitempty"`
	Topic                *string               `yaml:"topic,omitempty"`
	NSFW                 bool                  `yaml:"nsfw"`
	LastPinTimestamp     *time.Time            `yaml:"last_pin_timestamp,omitempty"`
}

type User struct {
	Avatar        *ImageHash `yaml:"avatar,omitempty"`
	Bot           bool       `yaml:"bot"`
	Discriminator uint16     `yaml:"discriminator"`
	ID            UserID     `yaml:"id"`
	Name          string     `yaml:"name"`
	GlobalName    *string    `yaml:"global_name,omitempty"`
}

// CurrentUser is the user the bot is logged in as.
type CurrentUser struct {
	Avatar        *ImageHash `yaml:"avatar,omitempty"`
	Discriminator uint16     `yaml:"discriminator"`
	ID            UserID     `yaml:"id"`
	Name          string     `yaml:"name"`
	MFAEnabled    bool       `yaml:"mfa_enabled"`
	Verified      *bool      `yaml:"verified,omitempty"`
}

type Role struct {
	ID          RoleID      `yaml:"id"`
	Name        string      `yaml:"name"`
	Permissions Permissions `yaml:"permissions"`
	Position    int64       `yaml:"position"`
	Color       uint32      `yaml:"color"`
	Hoist       bool        `yaml:"hoist"`
	Managed     bool        `yaml:"managed"`
	Mentionable bool        `yaml:"mentionable"`
}

type Member struct {
	Avatar   *ImageHash `yaml:"avatar,omitempty"`
	Nick     *string    `yaml:"nick,omitempty"`
	Roles    []RoleID   `yaml:"roles"`
	User     User       `yaml:"user"`
	JoinedAt time.Time  `yaml:"joined_at"`
	Deaf     bool       `yaml:"deaf"`
	Mute     bool       `yaml:"mute"`
}

// PartialMember is the reduced member data attached to interactions.
type PartialMember struct {
	Avatar *ImageHash `yaml:"avatar,omitempty"`
	Nick   *string    `yaml:"nick,omitempty"`
	Roles  []RoleID   `yaml:"roles"`
	User   *User      `yaml:"user,omitempty"`
}

// PartialUser is the reduced user data attached to invites.
type PartialUser struct {
	Avatar        *ImageHash `yaml:"avatar,omitempty"`
	Discriminator uint16     `yaml:"discriminator"`
	ID            UserID     `yaml:"id"`
	Name          string     `yaml:"name"`
}

type Guild struct {
	Icon        *ImageHash   `yaml:"icon,omitempty"`
	ID          GuildID      `yaml:"id"`
	Name        string       `yaml:"name"`
	OwnerID     UserID       `yaml:"owner_id"`
	Permissions *Permissions `yaml:"permissions,omitempty"`
	Channels    []Channel    `yaml:"channels,omitempty"`
	Roles       []Role       `yaml:"roles,omitempty"`
	Members     []Member     `yaml:"members,omitempty"`
	MemberCount uint64       `yaml:"member_count"`
	Unavailable bool         `yaml:"unavailable"`
}

// UnavailableGuild is a guild the gateway reported as unavailable, usually
// because of an outage.
type UnavailableGuild struct {
	ID          GuildID `yaml:"id"`
	Unavailable bool    `yaml:"unavailable"`
}
