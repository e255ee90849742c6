package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestKind_names(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("emoji")
	assert.Error(t, err)
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestKind_Cacheable(t *testing.T) {
	assert.True(t, KindUser.Cacheable().Buffer.IsInline())
	assert.Equal(t, 192, KindUser.Cacheable().Buffer.Size())
	assert.Equal(t, RoleCacheable.Buffer.Size(), KindRole.Cacheable().Buffer.Size())
	for _, k := range Kinds() {
		assert.NotPanics(t, func() { k.Cacheable() }, k.String())
	}
	assert.PanicsWithValue(t, "no cacheable for kind(6)", func() { Kind(6).Cacheable() })
}

func TestKind_yaml(t *testing.T) {
	var kinds []Kind
	require.NoError(t, yaml.UnmarshalStrict([]byte("[member, role]"), &kinds))
	assert.Equal(t, []Kind{KindMember, KindRole}, kinds)

	out, err := yaml.Marshal(kinds)
	require.NoError(t, err)
	assert.Equal(t, "- member\n- role\n", string(out))

	assert.Error(t, yaml.UnmarshalStrict([]byte("[presence]"), &kinds))
}

func TestKind_Validate(t *testing.T) {
	role := encode(CachedRole{ID: 1, Name: "r"})
	assert.NoError(t, KindRole.Validate(role))
	assert.Error(t, KindGuild.Validate(role[:10]))
	assert.Error(t, Kind(99).Validate(role))
}

func TestKind_Decode(t *testing.T) {
	role := CachedRole{ID: 1, Name: "r", Permissions: 8, Position: -1}
	r, err := KindRole.Decode(encode(role))
	assert.NoError(t, err)
	assert.Equal(t, role, r)

	_, err = KindUser.Decode(encode(role))
	assert.Error(t, err)
	_, err = Kind(99).Decode(nil)
	assert.Error(t, err)
}
