package entity

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a cached entity kind. Its name is also the key namespace
// of the kind.
type Kind uint8

const (
	KindChannel Kind = iota
	KindCurrentUser
	KindGuild
	KindMember
	KindRole
	KindUser
)

var kindNames = [...]string{
	KindChannel:     "channel",
	KindCurrentUser: "current_user",
	KindGuild:       "guild",
	KindMember:      "member",
	KindRole:        "role",
	KindUser:        "user",
}

// Kinds returns all kinds
func Kinds() []Kind {
	return []Kind{KindChannel, KindCurrentUser, KindGuild, KindMember, KindRole, KindUser}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given name
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, errors.Errorf("unknown entity kind %q", name)
}

func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

func (k *Kind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	v, err := ParseKind(name)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Validate parses b as an archive of this kind.
func (k Kind) Validate(b []byte) error {
	var err error
	switch k {
	case KindChannel:
		_, err = ParseChannel(b)
	case KindCurrentUser:
		_, err = ParseCurrentUser(b)
	case KindGuild:
		_, err = ParseGuild(b)
	case KindMember:
		_, err = ParseMember(b)
	case KindRole:
		_, err = ParseRole(b)
	case KindUser:
		_, err = ParseUser(b)
	default:
		err = errors.Errorf("unknown entity kind %d", uint8(k))
	}
	return err
}

// Decode parses b as an archive of this kind and returns an owned copy of
// the snapshot.
func (k Kind) Decode(b []byte) (Record, error) {
	switch k {
	case KindChannel:
		return decode[ArchivedChannel, CachedChannel](ParseChannel, b)
	case KindCurrentUser:
		return decode[ArchivedCurrentUser, CachedCurrentUser](ParseCurrentUser, b)
	case KindGuild:
		return decode[ArchivedGuild, CachedGuild](ParseGuild, b)
	case KindMember:
		return decode[ArchivedMember, CachedMember](ParseMember, b)
	case KindRole:
		return decode[ArchivedRole, CachedRole](ParseRole, b)
	case KindUser:
		return decode[ArchivedUser, CachedUser](ParseUser, b)
	}
	return nil, errors.Errorf("unknown entity kind %d", uint8(k))
}

func decode[A deserializer[T], T Record](parse func([]byte) (A, error), b []byte) (Record, error) {
	a, err := parse(b)
	if err != nil {
		return nil, err
	}
	return a.Deserialize()
}

// Cacheable returns the storage decisions of the kind
func (k Kind) Cacheable() Cacheable {
	switch k {
	case KindChannel:
		return ChannelCacheable
	case KindCurrentUser:
		return CurrentUserCacheable
	case KindGuild:
		return GuildCacheable
	case KindMember:
		return MemberCacheable
	case KindRole:
		return RoleCacheable
	case KindUser:
		return UserCacheable
	}
	panic(fmt.Sprintf("no cacheable for %s", k))
}
