package infra

import "errors"

var errNilRecord = errors.New("nil api key record")
