// Package store holds seen journals that live outside the run database.
//
// RedisSeenJournal lets several notecrawl processes on different machines
// share one set of processed item identifiers, so no two of them spend API
// calls on the same note.
package store
