package grant

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptRoundTrip(t *testing.T) {
	r := NewReceipts("test-secret", time.Hour)
	issued := time.Now().UTC()

	signed, err := r.Sign("tok-1", "uploads/abc.pdf", "application/pdf", issued)
	require.NoError(t, err)

	claims, err := r.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", claims.Token())
	assert.Equal(t, "uploads/abc.pdf", claims.Key)
	assert.Equal(t, "application/pdf", claims.ContentType)
	assert.Equal(t, receiptIssuer, claims.Issuer)
}

func TestReceiptRejectsTamperingAndExpiry(t *testing.T) {
	r := NewReceipts("test-secret", time.Minute)
	issued := time.Now().UTC()

	signed, err := r.Sign("tok-1", "uploads/abc.pdf", "application/pdf", issued)
	require.NoError(t, err)

	other := NewReceipts("other-secret", time.Minute)
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	r.nowFunc = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = r.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	_, err = r.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestReceiptRejectsForeignIssuer(t *testing.T) {
	r := NewReceipts("test-secret", time.Hour)
	claims := ReceiptClaims{
		Key: "uploads/abc.pdf",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "tok-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = r.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestNewReceiptsDisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewReceipts("", time.Hour))
}
