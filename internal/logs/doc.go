// Package logs reads the daemon log file for `streamgrab logs`.
//
// Last returns the final lines of the file together with the byte offset the
// caller should follow from; Follow polls for lines appended after an offset
// and restarts from the top when the file is truncated or rotated.
package logs
