// Package store provides durable slots for the lookup cache. Each slot keeps
// one opaque blob per key and overwrites it on every Store.
package store

import "errors"

// ErrSlotEmpty is returned by Load when nothing has been stored under a key.
var ErrSlotEmpty = errors.New("slot is empty")
