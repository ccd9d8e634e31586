// Package types defines the wire types of the readings data source contract.
// They are shared by the source readers, the vitals core and the exporters,
// and are kept separate from the derived in-memory representations.
package types
