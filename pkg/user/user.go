package user

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserDataInvalid = errors.New("invalid user data")
)

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

type Settings struct {
	// Timezone is an IANA zone name. Days are cut at midnight in this zone.
	Timezone string
}

// Location resolves the user's timezone, falling back to UTC when none is set.
func (u User) Location() (*time.Location, error) {
	if u.Settings.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(u.Settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("could not load location for timezone %s: %w", u.Settings.Timezone, err)
	}
	return loc, nil
}
