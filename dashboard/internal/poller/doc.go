// Package poller drives the dashboard refresh cycle.
//
// One ticker refreshes at the configured interval; user actions (apply a
// query, refresh, export) call Refresh directly. Concurrent refreshes share
// a single in-flight fetch through singleflight, so a tick and a user action
// never race to render.
package poller
