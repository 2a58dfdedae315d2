package grant

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const receiptIssuer = "secureupload"

// ErrInvalidReceipt is returned for receipts that fail signature, issuer or expiry checks.
var ErrInvalidReceipt = errors.New("invalid grant receipt")

// ReceiptClaims binds a grant to the token that requested it.
type ReceiptClaims struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	jwt.RegisteredClaims
}

// Token returns the upload token the receipt was issued to.
func (c ReceiptClaims) Token() string {
	return c.Subject
}

// Receipts signs and verifies grant receipts with an HMAC secret.
type Receipts struct {
	secret  []byte
	ttl     time.Duration
	parser  *jwt.Parser
	nowFunc func() time.Time
}

// NewReceipts returns nil when secret is empty, which disables receipts.
func NewReceipts(secret string, ttl time.Duration) *Receipts {
	if secret == "" {
		return nil
	}
	r := &Receipts{
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}
	r.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(receiptIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return r.nowFunc() }),
	)
	return r
}

// Sign issues a receipt for key/contentType granted to token at issuedAt.
func (r *Receipts) Sign(token, key, contentType string, issuedAt time.Time) (string, error) {
	claims := ReceiptClaims{
		Key:         key,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    receiptIssuer,
			Subject:   token,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(r.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign receipt: %w", err)
	}
	return signed, nil
}

// Verify parses a receipt and returns its claims.
func (r *Receipts) Verify(receipt string) (ReceiptClaims, error) {
	var claims ReceiptClaims
	parsed, err := r.parser.ParseWithClaims(receipt, &claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ReceiptClaims{}, ErrInvalidReceipt
	}
	if claims.Subject == "" || claims.Key == "" {
		return ReceiptClaims{}, ErrInvalidReceipt
	}
	return claims, nil
}
