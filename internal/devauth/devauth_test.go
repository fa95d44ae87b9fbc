package devauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	a := New("lxcloud-controller-")

	first := a.DeriveKey("SN-100")
	second := a.DeriveKey("SN-100")

	assert.Equal(t, first, second)
	assert.Len(t, first, KeyLength)
}

func TestDeriveKeyVariesBySerialAndPrefix(t *testing.T) {
	a := New("lxcloud-controller-")
	b := New("other-prefix-")

	assert.NotEqual(t, a.DeriveKey("SN-100"), a.DeriveKey("SN-101"))
	assert.NotEqual(t, a.DeriveKey("SN-100"), b.DeriveKey("SN-100"))
}

func TestVerify(t *testing.T) {
	a := New("lxcloud-controller-")
	key := a.DeriveKey("SN-100")

	assert.True(t, a.Verify("SN-100", key))
	assert.False(t, a.Verify("SN-100", "deadbeefdeadbeef"))
	assert.False(t, a.Verify("SN-101", key))
	assert.False(t, a.Verify("SN-100", ""))
}

func TestNewRegistrationSecret(t *testing.T) {
	first, err := NewRegistrationSecret()
	require.NoError(t, err)
	second, err := NewRegistrationSecret()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
