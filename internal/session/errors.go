package session

import "errors"

var ErrMalformedToken = errors.New("token is not a three-segment credential")
