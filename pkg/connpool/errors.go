package connpool

import "errors"

var (
	ErrPoolClosed       = errors.New("connpool: pool is closed")
	ErrInvalidTarget    = errors.New("connpool: tenant and org are required")
	ErrOrgMismatch      = errors.New("connpool: org does not belong to tenant")
	ErrNilHandle        = errors.New("connpool: factory returned nil handle")
	ErrLoadConfig       = errors.New("connpool: failed to load database config")
	ErrDecrypt          = errors.New("connpool: failed to decrypt database credentials")
	ErrCreateHandle     = errors.New("connpool: failed to create database handle")
	ErrInvalidMasterKey = errors.New("connpool: invalid master key")
	ErrNoFallbackDB     = errors.New("connpool: no database configured for the fallback tenant")
)
