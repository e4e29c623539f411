package application

import "errors"

var errNoStorage = errors.New("key manager: storage not configured")
