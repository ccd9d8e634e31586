// Package source reads the readings list from the configured data source.
//
// Two implementations sit behind the Source interface: an HTTP source
// (resty) that calls the list endpoint with action, key, deviceId,
// patientId, from and to parameters, and a file source for local JSON
// exports. An http endpoint whose path ends in .json is treated as a
// static file and receives no parameters.
//
// Every failure (transport, non-200, malformed JSON, "ok": false) is folded
// into FetchResult.Err with no rows, so the caller renders a single
// unavailable state. There are no retries; the next poll retries.
package source
