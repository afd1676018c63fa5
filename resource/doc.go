// Package resource provides the slot tables that back simulated reference
// tables.
//
// A Table maps small integer handles to values. Every slot records the owner
// that created it, which lets a caller count or drop everything one owner
// holds (all local references of one environment, for example):
//
//	locals := resource.NewTable[uint64](0)
//
//	h, err := locals.Insert(envID, objectID)
//	n := locals.CountOwner(envID)
//	dropped := locals.RemoveOwner(envID)
//
// # Capacity
//
// A table created with a positive capacity refuses inserts beyond it with
// ErrFull. Freed handles are reused, so a handle is only meaningful while its
// slot is live.
//
// # Observers
//
// Register observers to track slot lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	        log.Printf("slot %d created by %d", e.Handle, e.Owner)
//	    case resource.EventDropped:
//	        log.Printf("slot %d dropped", e.Handle)
//	    }
//	}))
//
// Observers run after the table lock is released and may call back into the
// table.
package resource
