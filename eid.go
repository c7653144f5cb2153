// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mmdrt

// eid.go defines handle identifiers for loaded models. A host embedding the
// runtime may load and unload many models over its lifetime; handles are
// recycled indices so model storage stays a flat array.

import (
	"log"
)

// handle is a model identifier comprised of an id used as a live reference
// to data and an edition used to track when ids are deleted and reused.
// Handles are expected to be used as array indices for model storage and,
// as such, will not change value over their lifetime.
type handle uint32

// Divide the handle bits into an index id and an edition. The edition
// bits track when a handle has been released and reused.
const idBits = 20                     // handle array index : 1048575
const edBits = 12                     // handle edition      :    4096
const maxHandleID = (1 << idBits) - 1 // mask and max active handles.
const maxEdition = (1 << edBits) - 1  // mask and max release/reuse cycles.

// id is the value used for array lookups.
func (h handle) id() uint32 { return uint32(h & maxHandleID) }

// edition returns the value that tracks if the handle is still valid.
func (h handle) edition() uint16 { return uint16((h >> idBits) & maxEdition) }

// handle
// =============================================================================
// handles allocate and recycle handle values.

// handles ensures a limited set of unique handle identifiers, used as
// indices into arrays of per-model data.
type handles struct {
	editions []uint16 // track currently used handles.
	free     []uint32 // handles ready for reuse.
}

// maxFree starts recycling ids once the amount of released ids
// reaches the given size.
const maxFree = (1 << (edBits - 1)) // recycling when free reaches 2048.

// create returns a new handle. Zero is returned for the first handle and
// when all handle identifiers have been allocated.
func (hs *handles) create() handle {
	id := uint32(0)
	if len(hs.free) > maxFree {
		id = hs.free[0]
		hs.free = append(hs.free[:0], hs.free[1:]...)
	} else {
		hs.editions = append(hs.editions, 0)
		if id = uint32(len(hs.editions) - 1); id > maxHandleID {
			if len(hs.free) == 0 {
				log.Printf("all %d model handles in use", maxHandleID+1)
				return 0 // design error to be caught during development.
			}
			id = hs.free[0]
			hs.free = append(hs.free[:0], hs.free[1:]...)
		}
	}
	return handle(id | uint32(hs.editions[id])<<idBits)
}

// valid handles are those that have been created and not yet released.
func (hs *handles) valid(h handle) bool {
	id := h.id()
	if id >= uint32(len(hs.editions)) {
		return false
	}
	return hs.editions[h.id()] == h.edition()
}

// release marks a handle as no longer valid, queuing its id for reuse.
func (hs *handles) release(h handle) {
	id := h.id()
	hs.editions[id]++
	hs.free = append(hs.free, id)
}

// reset discards all handle information, returning hs to its initial state.
func (hs *handles) reset() {
	hs.editions = []uint16{}
	hs.free = []uint32{}
}
