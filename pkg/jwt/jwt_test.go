package jwt_test

import (
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-api/pkg/jwt"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	id := jwt.Identity{UserID: "u-1", Username: "ana", Role: "admin", PharmacyID: 3}

	tok, err := jwt.Generate("secreto", "farmacia-api", 60, id)
	require.NoError(t, err)

	claims, err := jwt.Parse("secreto", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, 3, claims.PharmacyID)
	assert.Equal(t, "farmacia-api", claims.Issuer)
}

func TestParse_RechazaFirmaIncorrecta(t *testing.T) {
	tok, err := jwt.Generate("uno", "x", 60, jwt.Identity{UserID: "u"})
	require.NoError(t, err)

	_, err = jwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_RechazaExpirado(t *testing.T) {
	tok, err := jwt.Generate("secreto", "x", -1, jwt.Identity{UserID: "u"})
	require.NoError(t, err)

	_, err = jwt.Parse("secreto", tok)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "x", 60, jwt.Identity{})
	assert.Error(t, err)
}
