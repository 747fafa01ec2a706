// Package datamodel holds the gorm row types. Subpackages map one table
// each.
package datamodel

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKey reports a unique constraint violation. Drivers that do not
// translate errors are matched on their message.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint failed")
}
