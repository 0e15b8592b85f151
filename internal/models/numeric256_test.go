package models_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/AccountantBot/AccountantBot-Backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumeric256RejectsNegative(t *testing.T) {
	_, err := models.ParseNumeric256("-1")
	assert.Error(t, err)
}

func TestParseNumeric256RejectsGarbage(t *testing.T) {
	_, err := models.ParseNumeric256("not-a-number")
	assert.Error(t, err)
}

func TestNumeric256JSONRoundTrip(t *testing.T) {
	n, err := models.ParseNumeric256("123456789012345678901234567890")
	require.NoError(t, err)

	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(b))

	var out models.Numeric256
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, n.Equal(out))
}

func TestNumeric256UnmarshalBareNumber(t *testing.T) {
	var out models.Numeric256
	require.NoError(t, json.Unmarshal([]byte(`42`), &out))
	assert.Equal(t, "42", out.String())
}

func TestNumeric256Add(t *testing.T) {
	a := models.NewNumeric256(big.NewInt(10))
	b := models.NewNumeric256(big.NewInt(32))
	assert.Equal(t, "42", a.Add(b).String())
}

func TestNumeric256ZeroValueIsZero(t *testing.T) {
	var n models.Numeric256
	assert.True(t, n.IsZero())
	assert.False(t, n.IsPositive())
	assert.Equal(t, "0", n.String())
}
