// Package kvlite is an embedded, single-process key-value store.
//
// Pairs are kept in an AVL tree in memory (package avl). A database opened
// with a path persists through two files next to each other:
//
//	users.kvdb      snapshot, the whole tree in pre-order with a CRC32 per record
//	users.kvdb.jnl  journal, every Insert and Remove since the last Save
//
// Open loads the snapshot and replays the journal, a record cut short by a
// crash is dropped. Save rewrites the snapshot and empties the journal.
//
//	db, err := kvlite.Open("data/users.kvdb")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	_ = db.Insert([]byte("alice"), []byte("admin"))
//	value, err := db.Lookup([]byte("alice"))
package kvlite
