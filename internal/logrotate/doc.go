// Package logrotate manages the per-endpoint log files of the poller.
//
// Each endpoint owns exactly one active log, <logdir>/<name>.log, holding one
// line per failed check. Once the active log is older than the rotation
// interval it is gzipped into <name>.log.<created>_<rotated>.gz and replaced by
// an empty file. Archives older than the retention interval are deleted.
//
// The main components are:
//
//   - [Log]: the active log plus its archives for one endpoint
//   - [Log.RotateIfDue]: prune, then rotate when the active log is old enough
//   - [Log.Append]: write one timestamped line
//
// Age is measured from the file's creation time. On Linux this is the birth
// time reported by statx(2), falling back to the inode change time on
// filesystems that do not record birth time. Elsewhere the modification time
// is used.
package logrotate
