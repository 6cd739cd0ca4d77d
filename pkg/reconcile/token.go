package reconcile

import (
	"errors"

	"github.com/zhy3800/MovieWebsite/pkg/jwt"
)

// ErrMalformedToken is returned for tokens that are not structurally valid JWTs.
var ErrMalformedToken = errors.New("malformed token")

// CheckTokenShape verifies the token decodes as a JWT with a JSON object
// payload. It does not verify the signature.
func CheckTokenShape(token string) error {
	if _, err := jwt.ExtractClaims(token); err != nil {
		return ErrMalformedToken
	}
	return nil
}
