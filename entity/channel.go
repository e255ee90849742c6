package entity

import (
	"github.com/pkg/errors"

	"github.com/bathbot/entitycache/codec"
	"github.com/bathbot/entitycache/model"
)

const (
	channelGuildID = iota
	channelID
	channelKind
	channelName
	channelParentID
	channelOverwrites
	channelPosition
)

var (
	overwriteListCodec = codec.OptionalListOf[model.PermissionOverwrite](OverwriteCodec)

	channelLayout = codec.NewLayout(
		optGuildID.Size(),
		channelIDCodec.Size(),
		channelTypeCodec.Size(),
		optStringCodec.SlotSize(),
		optChannelID.Size(),
		overwriteListCodec.SlotSize(),
		optInt32.Size(),
	)
)

type CachedChannel struct {
	GuildID              *model.GuildID
	ID                   model.ChannelID
	Kind                 model.ChannelType
	Name                 *string
	ParentID             *model.ChannelID
	PermissionOverwrites []model.PermissionOverwrite
	Position             *int32
}

// NewCachedChannel borrows the fields of c.
func NewCachedChannel(c *model.Channel) CachedChannel {
	return CachedChannel{
		GuildID:              c.GuildID,
		ID:                   c.ID,
		Kind:                 c.Kind,
		Name:                 c.Name,
		ParentID:             c.ParentID,
		PermissionOverwrites: c.PermissionOverwrites,
		Position:             c.Position,
	}
}

// Check rejects channel and overwrite types ParseChannel would reject.
func (c CachedChannel) Check() error {
	if err := channelTypeCodec.Check(c.Kind); err != nil {
		return errors.Wrap(err, "channel: kind")
	}
	for i, o := range c.PermissionOverwrites {
		if err := overwriteTypeCodec.Check(o.Kind); err != nil {
			return errors.Wrapf(err, "channel: permission_overwrites[%d]", i)
		}
	}
	return nil
}

func (c CachedChannel) EncodedSize() int {
	return channelLayout.Size() +
		optStringCodec.DataSize(c.Name) +
		overwriteListCodec.DataSize(c.PermissionOverwrites)
}

func (c CachedChannel) Encode(dst []byte) []byte {
	buf, b := codec.Grow(dst, c.EncodedSize())
	tail := channelLayout.Size()
	optGuildID.Put(b[channelLayout.Offset(channelGuildID):], c.GuildID)
	channelIDCodec.Put(b[channelLayout.Offset(channelID):], c.ID)
	channelTypeCodec.Put(b[channelLayout.Offset(channelKind):], c.Kind)
	tail += optStringCodec.Put(b, channelLayout.Offset(channelName), tail, c.Name)
	optChannelID.Put(b[channelLayout.Offset(channelParentID):], c.ParentID)
	overwriteListCodec.Put(b, channelLayout.Offset(channelOverwrites), tail, c.PermissionOverwrites)
	optInt32.Put(b[channelLayout.Offset(channelPosition):], c.Position)
	return buf
}

type ArchivedChannel struct {
	b []byte
}

func ParseChannel(b []byte) (ArchivedChannel, error) {
	if err := channelLayout.Check(b); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel")
	}
	a := ArchivedChannel{b: b}
	dataStart := channelLayout.Size()
	if _, _, err := optGuildID.Value(a.at(channelGuildID)); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel: guild_id")
	}
	if _, err := channelTypeCodec.Get(a.at(channelKind)); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel: kind")
	}
	if err := optStringCodec.Validate(b, channelLayout.Offset(channelName), dataStart); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel: name")
	}
	if _, _, err := optChannelID.Value(a.at(channelParentID)); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel: parent_id")
	}
	if err := overwriteListCodec.Validate(b, channelLayout.Offset(channelOverwrites), dataStart); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel: permission_overwrites")
	}
	if _, _, err := optInt32.Value(a.at(channelPosition)); err != nil {
		return ArchivedChannel{}, errors.Wrap(err, "channel: position")
	}
	return a, nil
}

func (a ArchivedChannel) at(field int) []byte {
	return a.b[channelLayout.Offset(field):]
}

func (a ArchivedChannel) Bytes() []byte { return a.b }

func (a ArchivedChannel) GuildID() (model.GuildID, bool) {
	v, ok, _ := optGuildID.Value(a.at(channelGuildID))
	return v, ok
}

func (a ArchivedChannel) ID() model.ChannelID {
	v, _ := channelIDCodec.Get(a.at(channelID))
	return v
}

func (a ArchivedChannel) Kind() model.ChannelType {
	v, _ := channelTypeCodec.Get(a.at(channelKind))
	return v
}

func (a ArchivedChannel) RawName() ([]byte, bool) {
	return optStringCodec.View(a.b, channelLayout.Offset(channelName))
}

func (a ArchivedChannel) Name() (string, bool) {
	name, ok := a.RawName()
	return string(name), ok
}

func (a ArchivedChannel) ParentID() (model.ChannelID, bool) {
	v, ok, _ := optChannelID.Value(a.at(channelParentID))
	return v, ok
}

// PermissionOverwrites gives access to the packed overwrite records.
func (a ArchivedChannel) PermissionOverwrites() (codec.ListView[model.PermissionOverwrite], bool) {
	return overwriteListCodec.View(a.b, channelLayout.Offset(channelOverwrites))
}

func (a ArchivedChannel) Position() (int32, bool) {
	v, ok, _ := optInt32.Value(a.at(channelPosition))
	return v, ok
}

func (a ArchivedChannel) Deserialize() (CachedChannel, error) {
	var (
		c   CachedChannel
		err error
	)
	if c.GuildID, err = optGuildID.Get(a.at(channelGuildID)); err != nil {
		return c, errors.Wrap(err, "guild_id")
	}
	c.ID = a.ID()
	if c.Kind, err = channelTypeCodec.Get(a.at(channelKind)); err != nil {
		return c, errors.Wrap(err, "kind")
	}
	if c.Name, err = optStringCodec.Get(a.b, channelLayout.Offset(channelName)); err != nil {
		return c, errors.Wrap(err, "name")
	}
	if c.ParentID, err = optChannelID.Get(a.at(channelParentID)); err != nil {
		return c, errors.Wrap(err, "parent_id")
	}
	c.PermissionOverwrites, err = overwriteListCodec.Get(a.b, channelLayout.Offset(channelOverwrites))
	if err != nil {
		return c, errors.Wrap(err, "permission_overwrites")
	}
	if c.Position, err = optInt32.Get(a.at(channelPosition)); err != nil {
		return c, errors.Wrap(err, "position")
	}
	return c, nil
}

// OnChannelPinsUpdate returns nil: pins are not part of the cached channel.
func OnChannelPinsUpdate(*model.ChannelPinsUpdate) PatchFunc {
	return nil
}
