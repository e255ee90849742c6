// Package model contains the live domain objects delivered by the gateway and
// the change events that reference them.
package model

import "strconv"

// Snowflake identifiers. Each entity gets its own named type so ids of
// different entities cannot be mixed up by accident.
type (
	GuildID   uint64
	ChannelID uint64
	UserID    uint64
	RoleID    uint64
	// GenericID is used where an id may refer to more than one entity kind,
	// like the target of a permission overwrite.
	GenericID uint64
)

func (id GuildID) String() string   { return strconv.FormatUint(uint64(id), 10) }
func (id ChannelID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id UserID) String() string    { return strconv.FormatUint(uint64(id), 10) }
func (id RoleID) String() string    { return strconv.FormatUint(uint64(id), 10) }
func (id GenericID) String() string { return strconv.FormatUint(uint64(id), 10) }
