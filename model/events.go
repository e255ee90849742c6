package model

import "time"

// Event is a gateway change notification. Each event carries only the fields
// its kind is documented to report.
type Event interface {
	EventName() string
}

type ChannelCreate struct {
	Channel `yaml:",inline"`
}
type ChannelUpdate struct {
	Channel `yaml:",inline"`
}
type ChannelDelete struct {
	Channel `yaml:",inline"`
}

type ChannelPinsUpdate struct {
	ChannelID        ChannelID  `yaml:"channel_id"`
	GuildID          *GuildID   `yaml:"guild_id,omitempty"`
	LastPinTimestamp *time.Time `yaml:"last_pin_timestamp,omitempty"`
}

type GuildCreate struct {
	Guild `yaml:",inline"`
}

// GuildUpdate carries the new state of a guild without its member, role and
// channel lists.
type GuildUpdate struct {
	Icon        *ImageHash   `yaml:"icon,omitempty"`
	ID          GuildID      `yaml:"id"`
	Name        string       `yaml:"name"`
	OwnerID     UserID       `yaml:"owner_id"`
	Permissions *Permissions `yaml:"permissions,omitempty"`
}

type GuildDelete struct {
	ID          GuildID `yaml:"id"`
	Unavailable bool    `yaml:"unavailable"`
}

type MemberAdd struct {
	GuildID GuildID `yaml:"guild_id"`
	Member  `yaml:",inline"`
}

type MemberUpdate struct {
	GuildID GuildID    `yaml:"guild_id"`
	Avatar  *ImageHash `yaml:"avatar,omitempty"`
	Nick    *string    `yaml:"nick,omitempty"`
	Roles   []RoleID   `yaml:"roles"`
	User    User       `yaml:"user"`
}

type MemberRemove struct {
	GuildID GuildID `yaml:"guild_id"`
	User    User    `yaml:"user"`
}

type MemberChunk struct {
	GuildID GuildID  `yaml:"guild_id"`
	Members []Member `yaml:"members"`
}

type RoleCreate struct {
	GuildID GuildID `yaml:"guild_id"`
	Role    Role    `yaml:"role"`
}

type RoleUpdate struct {
	GuildID GuildID `yaml:"guild_id"`
	Role    Role    `yaml:"role"`
}

type RoleDelete struct {
	GuildID GuildID `yaml:"guild_id"`
	RoleID  RoleID  `yaml:"role_id"`
}

// UserUpdate reports a change of the current user.
type UserUpdate struct {
	CurrentUser `yaml:",inline"`
}

// InteractionCreate is reduced to the member data an interaction carries.
type InteractionCreate struct {
	GuildID *GuildID       `yaml:"guild_id,omitempty"`
	Member  *PartialMember `yaml:"member,omitempty"`
}

// InviteCreate is reduced to the inviter data an invite carries.
type InviteCreate struct {
	ChannelID ChannelID    `yaml:"channel_id"`
	GuildID   GuildID      `yaml:"guild_id"`
	Inviter   *PartialUser `yaml:"inviter,omitempty"`
}

type Ready struct {
	User   CurrentUser        `yaml:"user"`
	Guilds []UnavailableGuild `yaml:"guilds"`
}

// MessageCreate is accepted but never cached.
type MessageCreate struct {
	ChannelID ChannelID `yaml:"channel_id"`
	Content   string    `yaml:"content"`
}

func (ChannelCreate) EventName() string     { return "CHANNEL_CREATE" }
func (ChannelUpdate) EventName() string     { return "CHANNEL_UPDATE" }
func (ChannelDelete) EventName() string     { return "CHANNEL_DELETE" }
func (ChannelPinsUpdate) EventName() string { return "CHANNEL_PINS_UPDATE" }
func (GuildCreate) EventName() string       { return "GUILD_CREATE" }
func (GuildUpdate) EventName() string       { return "GUILD_UPDATE" }
func (GuildDelete) EventName() string       { return "GUILD_DELETE" }
func (MemberAdd) EventName() string         { return "GUILD_MEMBER_ADD" }
func (MemberUpdate) EventName() string      { return "GUILD_MEMBER_UPDATE" }
func (MemberRemove) EventName() string      { return "GUILD_MEMBER_REMOVE" }
func (MemberChunk) EventName() string       { return "GUILD_MEMBERS_CHUNK" }
func (RoleCreate) EventName() string        { return "GUILD_ROLE_CREATE" }
func (RoleUpdate) EventName() string        { return "GUILD_ROLE_UPDATE" }
func (RoleDelete) EventName() string        { return "GUILD_ROLE_DELETE" }
func (UserUpdate) EventName() string        { return "USER_UPDATE" }
func (InteractionCreate) EventName() string { return "INTERACTION_CREATE" }
func (InviteCreate) EventName() string      { return "INVITE_CREATE" }
func (Ready) EventName() string             { return "READY" }
func (MessageCreate) EventName() string     { return "MESSAGE_CREATE" }
