package model

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var eventTypes = map[string]func() Event{
	ChannelCreate{}.EventName():     func() Event { return &ChannelCreate{} },
	ChannelUpdate{}.EventName():     func() Event { return &ChannelUpdate{} },
	ChannelDelete{}.EventName():     func() Event { return &ChannelDelete{} },
	ChannelPinsUpdate{}.EventName(): func() Event { return &ChannelPinsUpdate{} },
	GuildCreate{}.EventName():       func() Event { return &GuildCreate{} },
	GuildUpdate{}.EventName():       func() Event { return &GuildUpdate{} },
	GuildDelete{}.EventName():       func() Event { return &GuildDelete{} },
	MemberAdd{}.EventName():         func() Event { return &MemberAdd{} },
	MemberUpdate{}.EventName():      func() Event { return &MemberUpdate{} },
	MemberRemove{}.EventName():      func() Event { return &MemberRemove{} },
	MemberChunk{}.EventName():       func() Event { return &MemberChunk{} },
	RoleCreate{}.EventName():        func() Event { return &RoleCreate{} },
	RoleUpdate{}.EventName():        func() Event { return &RoleUpdate{} },
	RoleDelete{}.EventName():        func() Event { return &RoleDelete{} },
	UserUpdate{}.EventName():        func() Event { return &UserUpdate{} },
	InteractionCreate{}.EventName(): func() Event { return &InteractionCreate{} },
	InviteCreate{}.EventName():      func() Event { return &InviteCreate{} },
	Ready{}.EventName():             func() Event { return &Ready{} },
	MessageCreate{}.EventName():     func() Event { return &MessageCreate{} },
}

// NewEvent returns a pointer to a new zero event with the given name
func NewEvent(name string) (Event, error) {
	newEvent, ok := eventTypes[name]
	if !ok {
		return nil, errors.Errorf("unknown event type %q", name)
	}
	return newEvent(), nil
}

type envelope struct {
	Type string      `yaml:"type"`
	Data interface{} `yaml:"data"`
}

// ParseEvents parses a YAML list of events in the form
//
//	- type: GUILD_UPDATE
//	  data: {id: 1, name: foo, owner_id: 2}
//
// The returned events are pointers.
func ParseEvents(b []byte) ([]Event, error) {
	var envelopes []envelope
	if err := yaml.UnmarshalStrict(b, &envelopes); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(envelopes))
	for i, env := range envelopes {
		ev, err := NewEvent(env.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
		// The data was decoded generically, decode it again into the event
		data, err := yaml.Marshal(env.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
		if err := yaml.UnmarshalStrict(data, ev); err != nil {
			return nil, errors.Wrapf(err, "event %d (%s)", i, env.Type)
		}
		events = append(events, ev)
	}
	return events, nil
}
