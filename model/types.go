package model

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
)

// Permissions is a permission bit set. Validating which bits are legal is up
// to the platform, the cache stores whatever it receives.
type Permissions uint64

const (
	PermissionCreateInvite   Permissions = 1 << 0
	PermissionKickMembers    Permissions = 1 << 1
	PermissionBanMembers     Permissions = 1 << 2
	PermissionAdministrator  Permissions = 1 << 3
	PermissionManageChannels Permissions = 1 << 4
	PermissionManageGuild    Permissions = 1 << 5
	PermissionViewChannel    Permissions = 1 << 10
	PermissionSendMessages   Permissions = 1 << 11
	PermissionEmbedLinks     Permissions = 1 << 14
	PermissionAttachFiles    Permissions = 1 << 15
	PermissionManageRoles    Permissions = 1 << 28
)

// Contains reports whether all bits of o are set in p.
func (p Permissions) Contains(o Permissions) bool {
	return p&o == o
}

// ChannelType is the closed set of channel kinds.
type ChannelType uint8

const (
	ChannelGuildText          ChannelType = 0
	ChannelPrivate            ChannelType = 1
	ChannelGuildVoice         ChannelType = 2
	ChannelGroup              ChannelType = 3
	ChannelGuildCategory      ChannelType = 4
	ChannelGuildAnnouncement  ChannelType = 5
	ChannelAnnouncementThread ChannelType = 10
	ChannelPublicThread       ChannelType = 11
	ChannelPrivateThread      ChannelType = 12
	ChannelGuildStageVoice    ChannelType = 13
	ChannelGuildDirectory     ChannelType = 14
	ChannelGuildForum         ChannelType = 15
	ChannelGuildMedia         ChannelType = 16
)

// Known reports whether t is one of the defined channel types.
func (t ChannelType) Known() bool {
	switch t {
	case ChannelGuildText, ChannelPrivate, ChannelGuildVoice, ChannelGroup,
		ChannelGuildCategory, ChannelGuildAnnouncement, ChannelAnnouncementThread,
		ChannelPublicThread, ChannelPrivateThread, ChannelGuildStageVoice,
		ChannelGuildDirectory, ChannelGuildForum, ChannelGuildMedia:
		return true
	}
	return false
}

// PermissionOverwriteType tells whether an overwrite targets a role or a member.
type PermissionOverwriteType uint8

const (
	OverwriteRole   PermissionOverwriteType = 0
	OverwriteMember PermissionOverwriteType = 1
)

// Known reports whether t is one of the defined overwrite types.
func (t PermissionOverwriteType) Known() bool {
	return t == OverwriteRole || t == OverwriteMember
}

// ImageHashSize is the number of bytes in a decoded image hash
const ImageHashSize = 16

// ImageHash is the hash of an avatar or icon. Animated hashes are prefixed
// with "a_" in their textual form.
type ImageHash struct {
	Animated bool
	Bytes    [ImageHashSize]byte
}

// ParseImageHash parses the textual form of an image hash.
func ParseImageHash(s string) (ImageHash, error) {
	var h ImageHash
	if len(s) > 2 && s[:2] == "a_" {
		h.Animated = true
		s = s[2:]
	}
	if len(s) != 2*ImageHashSize {
		return h, fmt.Errorf("image hash: invalid length %d", len(s))
	}
	if _, err := hex.Decode(h.Bytes[:], []byte(s)); err != nil {
		return h, errors.Wrap(err, "image hash")
	}
	return h, nil
}

func (h ImageHash) String() string {
	s := hex.EncodeToString(h.Bytes[:])
	if h.Animated {
		return "a_" + s
	}
	return s
}

// MarshalYAML implements yaml.Marshaler
func (h ImageHash) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (h *ImageHash) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseImageHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
