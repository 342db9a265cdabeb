package domain

import "errors"

var (
	ErrRecordNotFound  = errors.New("interaction record not found")
	ErrSettingNotFound = errors.New("user setting not found")
	ErrNameNotFound    = errors.New("display name not found")
)
