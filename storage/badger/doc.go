// Package badger implements storage.CatalogRepository on BadgerDB.
//
// Records are stored under a big-endian position key so iteration returns them
// in import order. A secondary pincode index maps each postal code to the
// positions of its records. Office and district lookups are substring scans.
package badger
