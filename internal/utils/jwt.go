package utils // package utils provides helper functions for token creation and password checks

import (
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// StaffToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Staff tokens are short-lived and encoded
// in the Authorization header when calling the operator endpoints.
type StaffToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewStaffToken builds and signs an HS256 JWT for the staff role.  It takes
// the signing secret and a TTL in minutes and returns a StaffToken with the
// signed token and its expiration time.  The JWT includes a role claim,
// expiration (exp) and issued at (iat).
func NewStaffToken(secret string, ttlMin int) (StaffToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "role": "STAFF",
        "exp":  exp.Unix(),
        "iat":  time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return StaffToken{}, err
    }
    return StaffToken{Token: signed, Exp: exp}, nil
}
