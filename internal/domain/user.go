package domain

import (
	"strings"
	"time"
)

// TimestampLayout renders timestamps the way the API has always exposed them
// (en-US locale string in UTC).
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// User represents a single user record held by the store.
//
// Timestamps are kept as the strings they were stored with; records written
// by older runtimes or edited by hand are not rewritten on load.
type User struct {
	ID          string
	Name        string
	Email       string
	Password    string
	Mobile      string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

// NewUser carries the caller supplied fields of a user about to be created.
type NewUser struct {
	Name        string
	Email       string
	Password    string
	Mobile      string
	Description string
}

// UserChanges is a partial update. Nil fields are left untouched.
type UserChanges struct {
	Name        *string
	Email       *string
	Password    *string
	Mobile      *string
	Description *string
}

// Apply merges the changes over user and stamps UpdatedAt.
func (c UserChanges) Apply(user User, now time.Time) User {
	if c.Name != nil {
		user.Name = *c.Name
	}
	if c.Email != nil {
		user.Email = *c.Email
	}
	if c.Password != nil {
		user.Password = *c.Password
	}
	if c.Mobile != nil {
		user.Mobile = *c.Mobile
	}
	if c.Description != nil {
		user.Description = *c.Description
	}
	user.UpdatedAt = FormatTimestamp(now)
	return user
}

// Clock returns the current time. Repositories and services accept one so
// tests can pin timestamps.
type Clock func() time.Time

// Now reads the clock in UTC at second precision, the precision timestamps
// are persisted with.
func (c Clock) Now() time.Time {
	if c == nil {
		c = time.Now
	}
	return c().UTC().Truncate(time.Second)
}

// FormatTimestamp renders t using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp. The narrow no-break
// space newer ICU builds put before AM/PM is accepted too.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.ReplaceAll(value, "\u202f", " ")
	return time.ParseInLocation(TimestampLayout, value, time.UTC)
}
