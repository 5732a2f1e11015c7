package shop

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssociationKey(t *testing.T) {
	shape := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}-[A-HJ-NP-Z2-9]{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key, err := NewAssociationKey()
		require.NoError(t, err)
		assert.Regexp(t, shape, key)
		seen[key] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestVehicleAssociationKey(t *testing.T) {
	v := &Vehicle{Plate: "AB123CD"}
	assert.False(t, v.VerifyAssociationKey("ABCD-EFGH"), "no key set")

	require.NoError(t, v.SetAssociationKey("ABCD-2345"))
	assert.NotContains(t, v.KeyHash, "ABCD")
	assert.NotEmpty(t, v.KeySalt)

	assert.True(t, v.VerifyAssociationKey("ABCD-2345"))
	assert.True(t, v.VerifyAssociationKey(" abcd 2345 "))
	assert.True(t, v.VerifyAssociationKey("abcd2345"))
	assert.False(t, v.VerifyAssociationKey("ABCD-2346"))
	assert.False(t, v.VerifyAssociationKey(""))

	oldHash := v.KeyHash
	require.NoError(t, v.SetAssociationKey("ZZZZ-9999"))
	assert.NotEqual(t, oldHash, v.KeyHash)
	assert.False(t, v.VerifyAssociationKey("ABCD-2345"), "rotated key invalidates the old one")
}

func TestHashAssociationKeyUsesSalt(t *testing.T) {
	a := HashAssociationKey("salt-a", "ABCD-2345")
	b := HashAssociationKey("salt-b", "ABCD-2345")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashAssociationKey("salt-a", strings.ToLower("abcd2345")))
}

func TestVehicleOwners(t *testing.T) {
	v := &Vehicle{OwnerIDs: []string{"c1"}}
	v.AddOwner("c2")
	v.AddOwner("c2")
	assert.Equal(t, []string{"c1", "c2"}, v.OwnerIDs)
	assert.True(t, v.HasOwner("c2"))

	v.RemoveOwner("c1")
	assert.Equal(t, []string{"c2"}, v.OwnerIDs)
	assert.False(t, v.HasOwner("c1"))

	v.RemoveOwner("c2")
	assert.Empty(t, v.OwnerIDs)
}
