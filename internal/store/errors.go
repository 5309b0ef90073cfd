package store

import "errors"

var (
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrDatabaseIDTaken  = errors.New("database id already taken")
	ErrDatabaseLimit    = errors.New("database limit reached")
	ErrRecordNotFound   = errors.New("record not found")
	ErrQuotaExceeded    = errors.New("request limit reached")
)
