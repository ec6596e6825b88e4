package mongo

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
	ErrQueryFailed            = errors.New("mongo registry query failed")
	ErrInvalidDocument        = errors.New("mongo registry document is invalid")
)
